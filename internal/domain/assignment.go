package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Assignment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TrainerID   primitive.ObjectID `bson:"trainer" json:"trainer"`
	CourseID    primitive.ObjectID `bson:"course" json:"course"`
	Deadline    time.Time          `bson:"deadline" json:"deadline"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
}

// DeadlinePassed reports whether now is strictly after the deadline.
func (a *Assignment) DeadlinePassed(now time.Time) bool {
	return now.After(a.Deadline)
}

// AssignmentStatus is one row of a student's assignment overview.
type AssignmentStatus struct {
	AssignmentID   primitive.ObjectID `json:"_id"`
	Title          string             `json:"title"`
	Deadline       time.Time          `json:"deadline"`
	Submitted      bool               `json:"submitted"`
	SubmissionDate *time.Time         `json:"submissionDate"`
	Status         SubmissionState    `json:"status"`
}
