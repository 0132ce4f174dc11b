package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is a learner profile. Submissions holds back-references to the
// student's own submissions and is kept in sync by the submission service.
type Student struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name        string               `bson:"name" json:"name"`
	Email       string               `bson:"email" json:"email"`
	Courses     []primitive.ObjectID `bson:"course" json:"course"`
	Submissions []primitive.ObjectID `bson:"assignments" json:"assignments"`
}

// StudentSummary is the projection inlined into trainer listings.
type StudentSummary struct {
	ID      primitive.ObjectID   `bson:"_id" json:"_id"`
	Name    string               `bson:"name" json:"name"`
	Email   string               `bson:"email" json:"email"`
	Courses []primitive.ObjectID `bson:"course" json:"course"`
}
