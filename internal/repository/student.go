package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/pkg/db"
)

type StudentRepository struct {
	coll *mongo.Collection
}

func NewStudentRepository(database *mongo.Database) *StudentRepository {
	return &StudentRepository{coll: database.Collection(db.CollectionStudents)}
}

func (r *StudentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Student, error) {
	var student domain.Student
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&student); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errdefs.ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}

// ListByIDs returns the name/email/course projection of the given students.
func (r *StudentRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.StudentSummary, error) {
	if len(ids) == 0 {
		return []*domain.StudentSummary{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "course": 1})
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}

	students := make([]*domain.StudentSummary, 0)
	if err := cur.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) ListByCourse(ctx context.Context, courseID primitive.ObjectID) ([]*domain.Student, error) {
	cur, err := r.coll.Find(ctx, bson.M{"course": courseID})
	if err != nil {
		return nil, err
	}

	students := make([]*domain.Student, 0)
	if err := cur.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) AddSubmission(ctx context.Context, studentID, submissionID primitive.ObjectID) error {
	return r.updateRefs(ctx, studentID, bson.M{"$addToSet": bson.M{"assignments": submissionID}})
}

func (r *StudentRepository) RemoveSubmission(ctx context.Context, studentID, submissionID primitive.ObjectID) error {
	return r.updateRefs(ctx, studentID, bson.M{"$pull": bson.M{"assignments": submissionID}})
}

func (r *StudentRepository) updateRefs(ctx context.Context, studentID primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": studentID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}
