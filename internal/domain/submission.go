package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Submission struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	AssignmentID   primitive.ObjectID `bson:"assignment" json:"assignment"`
	StudentID      primitive.ObjectID `bson:"student" json:"student"`
	File           *string            `bson:"file" json:"file"`
	CodeLink       *string            `bson:"codeLink,omitempty" json:"codeLink,omitempty"`
	DeploymentLink *string            `bson:"deploymentLink,omitempty" json:"deploymentLink,omitempty"`
	VideoLink      *string            `bson:"videoLink,omitempty" json:"videoLink,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PopulatedSubmission is a submission with its assignment and a partial
// student record inlined.
type PopulatedSubmission struct {
	ID             primitive.ObjectID `json:"_id"`
	Assignment     *Assignment        `json:"assignment"`
	Student        *StudentSummary    `json:"student"`
	File           *string            `json:"file"`
	CodeLink       *string            `json:"codeLink,omitempty"`
	DeploymentLink *string            `json:"deploymentLink,omitempty"`
	VideoLink      *string            `json:"videoLink,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Attachment is a binary payload staged on local disk before upload.
type Attachment struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

type CreateSubmissionInput struct {
	AssignmentID   primitive.ObjectID
	StudentID      primitive.ObjectID
	Attachment     *Attachment
	CodeLink       string
	DeploymentLink string
	VideoLink      string
}

type UpdateSubmissionInput struct {
	SubmissionID   primitive.ObjectID
	Attachment     *Attachment
	CodeLink       string
	DeploymentLink string
	VideoLink      string
}

type SubmissionEvent struct {
	Type         SubmissionEventType `json:"type"`
	SubmissionID string              `json:"submission_id"`
	AssignmentID string              `json:"assignment_id"`
	StudentID    string              `json:"student_id"`
	At           time.Time           `json:"at"`
}

type DeadlineReminder struct {
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	TrainerID    string    `json:"trainer_id"`
	Title        string    `json:"title"`
	Deadline     time.Time `json:"deadline"`
}
