package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/pkg/db"
)

// AssignmentRepository is read-only; assignments are authored elsewhere.
type AssignmentRepository struct {
	coll *mongo.Collection
}

func NewAssignmentRepository(database *mongo.Database) *AssignmentRepository {
	return &AssignmentRepository{coll: database.Collection(db.CollectionAssignments)}
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errdefs.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]*domain.Assignment, error) {
	return r.find(ctx, bson.M{"trainer": trainerID})
}

// ListByCourses returns assignments in storage order.
func (r *AssignmentRepository) ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]*domain.Assignment, error) {
	if len(courseIDs) == 0 {
		return []*domain.Assignment{}, nil
	}
	return r.find(ctx, bson.M{"course": bson.M{"$in": courseIDs}})
}

func (r *AssignmentRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Assignment, error) {
	if len(ids) == 0 {
		return []*domain.Assignment{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// ListDueBetween returns assignments whose deadline falls in (from, to].
func (r *AssignmentRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Assignment, error) {
	return r.find(ctx, bson.M{"deadline": bson.M{"$gt": from, "$lte": to}})
}

func (r *AssignmentRepository) find(ctx context.Context, filter bson.M) ([]*domain.Assignment, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	assignments := make([]*domain.Assignment, 0)
	if err := cur.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}
