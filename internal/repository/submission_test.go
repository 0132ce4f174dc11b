package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/pkg/db"
)

func strPtr(s string) *string { return &s }

func TestSubmissionRepository_Create(t *testing.T) {
	mt := newMockDeployment(t)

	mt.Run("success assigns id and timestamps", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		submission := &domain.Submission{
			AssignmentID: primitive.NewObjectID(),
			StudentID:    primitive.NewObjectID(),
			CodeLink:     strPtr("https://github.com/s/repo"),
		}
		err := repo.Create(context.Background(), submission)

		require.NoError(mt, err)
		assert.False(mt, submission.ID.IsZero())
		assert.False(mt, submission.CreatedAt.IsZero())
		assert.Equal(mt, submission.CreatedAt, submission.UpdatedAt)
	})

	mt.Run("duplicate pair", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Create(context.Background(), &domain.Submission{
			AssignmentID: primitive.NewObjectID(),
			StudentID:    primitive.NewObjectID(),
		})

		assert.ErrorIs(mt, err, errdefs.ErrAlreadyExists)
	})
}

func TestSubmissionRepository_Get(t *testing.T) {
	mt := newMockDeployment(t)

	mt.Run("by id", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		expected := domain.Submission{
			ID:           primitive.NewObjectID(),
			AssignmentID: primitive.NewObjectID(),
			StudentID:    primitive.NewObjectID(),
			File:         strPtr("https://cdn.example.com/a.pdf"),
			CreatedAt:    time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		}
		mt.AddMockResponses(cursor(mt, db.CollectionSubmissions, toDoc(mt, expected)))

		got, err := repo.GetByID(context.Background(), expected.ID)

		require.NoError(mt, err)
		assert.Equal(mt, expected.ID, got.ID)
		assert.Equal(mt, expected.AssignmentID, got.AssignmentID)
		require.NotNil(mt, got.File)
		assert.Equal(mt, *expected.File, *got.File)
		assert.Nil(mt, got.CodeLink)
	})

	mt.Run("pair not found", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(cursor(mt, db.CollectionSubmissions))

		got, err := repo.GetByPair(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())

		assert.Nil(mt, got)
		assert.ErrorIs(mt, err, errdefs.ErrNotFound)
	})
}

func TestSubmissionRepository_UpdateDelete(t *testing.T) {
	mt := newMockDeployment(t)

	mt.Run("update matched", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.Update(context.Background(), &domain.Submission{ID: primitive.NewObjectID()})
		assert.NoError(mt, err)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.Update(context.Background(), &domain.Submission{ID: primitive.NewObjectID()})
		assert.ErrorIs(mt, err, errdefs.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		assert.NoError(mt, err)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, errdefs.ErrNotFound)
	})
}

func TestSubmissionRepository_ListByAssignments(t *testing.T) {
	mt := newMockDeployment(t)

	mt.Run("empty ids skip query", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)

		got, err := repo.ListByAssignments(context.Background(), nil)

		require.NoError(mt, err)
		assert.Empty(mt, got)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("sorted newest first", func(mt *mtest.T) {
		repo := NewSubmissionRepository(mt.DB)
		first := domain.Submission{ID: primitive.NewObjectID(), CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
		second := domain.Submission{ID: primitive.NewObjectID(), CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		mt.AddMockResponses(cursor(mt, db.CollectionSubmissions, toDoc(mt, first), toDoc(mt, second)))

		got, err := repo.ListByAssignments(context.Background(), []primitive.ObjectID{primitive.NewObjectID()})

		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, first.ID, got[0].ID)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		sort, err := started.Command.LookupErr("sort")
		require.NoError(mt, err)
		assert.Contains(mt, sort.String(), "createdAt")
	})
}
