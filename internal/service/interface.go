//go:generate mockgen -source=interface.go -destination=mocks/mocks.go -package=mocks
package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"submission_service/internal/domain"
)

type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Submission, error)
	GetByPair(ctx context.Context, assignmentID, studentID primitive.ObjectID) (*domain.Submission, error)
	Update(ctx context.Context, submission *domain.Submission) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListByAssignments(ctx context.Context, assignmentIDs []primitive.ObjectID) ([]*domain.Submission, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Submission, error)
}

type AssignmentRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]*domain.Assignment, error)
	ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]*domain.Assignment, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Assignment, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Assignment, error)
}

type StudentRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Student, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.StudentSummary, error)
	ListByCourse(ctx context.Context, courseID primitive.ObjectID) ([]*domain.Student, error)
	AddSubmission(ctx context.Context, studentID, submissionID primitive.ObjectID) error
	RemoveSubmission(ctx context.Context, studentID, submissionID primitive.ObjectID) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type BlobStore interface {
	Upload(ctx context.Context, attachment *domain.Attachment) (string, error)
	Discard(stagedPath string) error
}

type EventPublisher interface {
	Send(ctx context.Context, topic, key string, message interface{}) error
}

type StatusCache interface {
	GetStatus(ctx context.Context, studentID primitive.ObjectID) ([]*domain.AssignmentStatus, bool)
	SetStatus(ctx context.Context, studentID primitive.ObjectID, statuses []*domain.AssignmentStatus)
	InvalidateStatus(ctx context.Context, studentID primitive.ObjectID)
}
