package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/pkg/db"
)

type SubmissionRepository struct {
	coll *mongo.Collection
}

func NewSubmissionRepository(database *mongo.Database) *SubmissionRepository {
	return &SubmissionRepository{coll: database.Collection(db.CollectionSubmissions)}
}

// Create inserts the submission. A second submission for the same
// (assignment, student) pair is rejected by the unique index.
func (r *SubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	if submission.ID.IsZero() {
		submission.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	if submission.UpdatedAt.IsZero() {
		submission.UpdatedAt = submission.CreatedAt
	}

	if _, err := r.coll.InsertOne(ctx, submission); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("submission for assignment %s: %w", submission.AssignmentID.Hex(), errdefs.ErrAlreadyExists)
		}
		return err
	}

	return nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Submission, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *SubmissionRepository) GetByPair(ctx context.Context, assignmentID, studentID primitive.ObjectID) (*domain.Submission, error) {
	return r.findOne(ctx, bson.M{"assignment": assignmentID, "student": studentID})
}

func (r *SubmissionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Submission, error) {
	var submission domain.Submission
	if err := r.coll.FindOne(ctx, filter).Decode(&submission); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errdefs.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// Update overwrites the mutable fields of the stored submission.
func (r *SubmissionRepository) Update(ctx context.Context, submission *domain.Submission) error {
	if submission.UpdatedAt.IsZero() {
		submission.UpdatedAt = time.Now().UTC()
	}

	update := bson.M{"$set": bson.M{
		"file":           submission.File,
		"codeLink":       submission.CodeLink,
		"deploymentLink": submission.DeploymentLink,
		"videoLink":      submission.VideoLink,
		"updatedAt":      submission.UpdatedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": submission.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}

func (r *SubmissionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}

// ListByAssignments returns submissions for any of the given assignments,
// newest first.
func (r *SubmissionRepository) ListByAssignments(ctx context.Context, assignmentIDs []primitive.ObjectID) ([]*domain.Submission, error) {
	if len(assignmentIDs) == 0 {
		return []*domain.Submission{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"assignment": bson.M{"$in": assignmentIDs}}, opts)
}

func (r *SubmissionRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Submission, error) {
	if len(ids) == 0 {
		return []*domain.Submission{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *SubmissionRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Submission, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	submissions := make([]*domain.Submission, 0)
	if err := cur.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}
