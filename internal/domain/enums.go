package domain

type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleTeacher UserRole = "teacher"
	UserRoleAdmin   UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleStudent, UserRoleTeacher, UserRoleAdmin:
		return true
	default:
		return false
	}
}

type SubmissionState string

const (
	SubmissionStateSubmitted    SubmissionState = "submitted"
	SubmissionStateNotCompleted SubmissionState = "not completed"
	SubmissionStatePending      SubmissionState = "pending"
)

type SubmissionEventType string

const (
	SubmissionEventCreated SubmissionEventType = "submission.created"
	SubmissionEventUpdated SubmissionEventType = "submission.updated"
	SubmissionEventDeleted SubmissionEventType = "submission.deleted"
)
