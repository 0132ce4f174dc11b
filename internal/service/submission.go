package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/internal/metrics"
	"submission_service/pkg/logging"
)

type SubmissionServiceInterface interface {
	CreateSubmission(ctx context.Context, input *domain.CreateSubmissionInput) (*domain.Submission, error)
	GetSubmission(ctx context.Context, assignmentID, studentID primitive.ObjectID) (*domain.Submission, error)
	UpdateSubmission(ctx context.Context, input *domain.UpdateSubmissionInput) (*domain.Submission, error)
	DeleteSubmission(ctx context.Context, submissionID primitive.ObjectID) error
	ListSubmissionsForTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]*domain.PopulatedSubmission, error)
	ComputeAssignmentStatus(ctx context.Context, studentID primitive.ObjectID) ([]*domain.AssignmentStatus, error)
}

type SubmissionService struct {
	submissions SubmissionRepository
	assignments AssignmentRepository
	students    StudentRepository
	blobs       BlobStore

	events      EventPublisher
	eventsTopic string
	cache       StatusCache
	metrics     *metrics.Collector
	logger      *logging.Logger
	now         func() time.Time
}

type Option func(*SubmissionService)

func WithEvents(publisher EventPublisher, topic string) Option {
	return func(s *SubmissionService) {
		s.events = publisher
		s.eventsTopic = topic
	}
}

func WithStatusCache(cache StatusCache) Option {
	return func(s *SubmissionService) { s.cache = cache }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(s *SubmissionService) { s.metrics = collector }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *SubmissionService) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *SubmissionService) { s.now = now }
}

func NewSubmissionService(
	submissions SubmissionRepository,
	assignments AssignmentRepository,
	students StudentRepository,
	blobs BlobStore,
	opts ...Option,
) *SubmissionService {
	s := &SubmissionService{
		submissions: submissions,
		assignments: assignments,
		students:    students,
		blobs:       blobs,
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SubmissionService) CreateSubmission(ctx context.Context, input *domain.CreateSubmissionInput) (submission *domain.Submission, err error) {
	defer func() { s.observe("create", err) }()
	if input.Attachment != nil {
		defer s.discard(ctx, input.Attachment)
	}

	if input.AssignmentID.IsZero() || input.StudentID.IsZero() {
		return nil, fmt.Errorf("assignment and student ids are required: %w", errdefs.ErrInvalidArgument)
	}

	assignment, err := s.assignments.GetByID(ctx, input.AssignmentID)
	if err != nil {
		return nil, wrapNotFound(err, "assignment", input.AssignmentID)
	}
	student, err := s.students.GetByID(ctx, input.StudentID)
	if err != nil {
		return nil, wrapNotFound(err, "student", input.StudentID)
	}

	if _, err := s.submissions.GetByPair(ctx, assignment.ID, student.ID); err == nil {
		return nil, fmt.Errorf("assignment already submitted: %w", errdefs.ErrConflict)
	} else if !errors.Is(err, errdefs.ErrNotFound) {
		return nil, err
	}

	var fileURL *string
	if input.Attachment != nil {
		url, err := s.blobs.Upload(ctx, input.Attachment)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment: %w", err)
		}
		fileURL = &url
	}

	now := s.now().UTC()
	submission = &domain.Submission{
		ID:             primitive.NewObjectID(),
		AssignmentID:   assignment.ID,
		StudentID:      student.ID,
		File:           fileURL,
		CodeLink:       optional(input.CodeLink),
		DeploymentLink: optional(input.DeploymentLink),
		VideoLink:      optional(input.VideoLink),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.submissions.Create(ctx, submission); err != nil {
		if errors.Is(err, errdefs.ErrAlreadyExists) {
			return nil, fmt.Errorf("assignment already submitted: %w", errdefs.ErrConflict)
		}
		return nil, err
	}

	if err := s.students.AddSubmission(ctx, student.ID, submission.ID); err != nil {
		s.log(ctx).Warn(ctx, "Failed to add submission to student",
			zap.String("student_id", student.ID.Hex()),
			zap.String("submission_id", submission.ID.Hex()),
			zap.Error(err),
		)
	}

	s.invalidateStatus(ctx, student.ID)
	s.publish(ctx, domain.SubmissionEventCreated, submission)

	s.log(ctx).Info(ctx, "Assignment submitted",
		zap.String("submission_id", submission.ID.Hex()),
		zap.String("assignment_id", assignment.ID.Hex()),
		zap.String("student_id", student.ID.Hex()),
	)

	return submission, nil
}

// GetSubmission returns nil without error when the student has not
// submitted the assignment.
func (s *SubmissionService) GetSubmission(ctx context.Context, assignmentID, studentID primitive.ObjectID) (*domain.Submission, error) {
	submission, err := s.submissions.GetByPair(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return submission, nil
}

func (s *SubmissionService) UpdateSubmission(ctx context.Context, input *domain.UpdateSubmissionInput) (submission *domain.Submission, err error) {
	defer func() { s.observe("update", err) }()
	if input.Attachment != nil {
		defer s.discard(ctx, input.Attachment)
	}

	submission, err = s.submissions.GetByID(ctx, input.SubmissionID)
	if err != nil {
		return nil, wrapNotFound(err, "submission", input.SubmissionID)
	}
	if err := s.checkDeadline(ctx, submission); err != nil {
		return nil, err
	}

	if input.Attachment != nil {
		url, err := s.blobs.Upload(ctx, input.Attachment)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment: %w", err)
		}
		submission.File = &url
	}
	if input.CodeLink != "" {
		submission.CodeLink = optional(input.CodeLink)
	}
	if input.DeploymentLink != "" {
		submission.DeploymentLink = optional(input.DeploymentLink)
	}
	if input.VideoLink != "" {
		submission.VideoLink = optional(input.VideoLink)
	}
	submission.UpdatedAt = s.now().UTC()

	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, wrapNotFound(err, "submission", submission.ID)
	}

	s.publish(ctx, domain.SubmissionEventUpdated, submission)
	s.log(ctx).Info(ctx, "Submission updated", zap.String("submission_id", submission.ID.Hex()))

	return submission, nil
}

// DeleteSubmission pulls the back-reference from the owning student and
// then removes the submission. The two writes are not atomic.
func (s *SubmissionService) DeleteSubmission(ctx context.Context, submissionID primitive.ObjectID) (err error) {
	defer func() { s.observe("delete", err) }()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return wrapNotFound(err, "submission", submissionID)
	}
	if err := s.checkDeadline(ctx, submission); err != nil {
		return err
	}

	if err := s.students.RemoveSubmission(ctx, submission.StudentID, submission.ID); err != nil && !errors.Is(err, errdefs.ErrNotFound) {
		return fmt.Errorf("failed to remove student back-reference: %w", err)
	}

	if err := s.submissions.Delete(ctx, submission.ID); err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return wrapNotFound(err, "submission", submission.ID)
		}
		s.log(ctx).Warn(ctx, "Dangling back-reference: student reference removed but submission delete failed",
			zap.String("submission_id", submission.ID.Hex()),
			zap.String("student_id", submission.StudentID.Hex()),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.DanglingReferences.Inc()
		}
		return err
	}

	s.invalidateStatus(ctx, submission.StudentID)
	s.publish(ctx, domain.SubmissionEventDeleted, submission)
	s.log(ctx).Info(ctx, "Submission deleted", zap.String("submission_id", submission.ID.Hex()))

	return nil
}

// ListSubmissionsForTrainer returns every submission made to the trainer's
// assignments, newest first, with the assignment and a student summary
// inlined.
func (s *SubmissionService) ListSubmissionsForTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]*domain.PopulatedSubmission, error) {
	if trainerID.IsZero() {
		return nil, fmt.Errorf("trainer id is required: %w", errdefs.ErrInvalidArgument)
	}

	assignments, err := s.assignments.ListByTrainer(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []*domain.PopulatedSubmission{}, nil
	}

	assignmentByID := make(map[primitive.ObjectID]*domain.Assignment, len(assignments))
	assignmentIDs := make([]primitive.ObjectID, 0, len(assignments))
	for _, a := range assignments {
		assignmentByID[a.ID] = a
		assignmentIDs = append(assignmentIDs, a.ID)
	}

	submissions, err := s.submissions.ListByAssignments(ctx, assignmentIDs)
	if err != nil {
		return nil, err
	}

	studentIDs := make([]primitive.ObjectID, 0, len(submissions))
	seen := make(map[primitive.ObjectID]bool, len(submissions))
	for _, sub := range submissions {
		if !seen[sub.StudentID] {
			seen[sub.StudentID] = true
			studentIDs = append(studentIDs, sub.StudentID)
		}
	}

	students, err := s.students.ListByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	studentByID := make(map[primitive.ObjectID]*domain.StudentSummary, len(students))
	for _, st := range students {
		studentByID[st.ID] = st
	}

	result := make([]*domain.PopulatedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		result = append(result, &domain.PopulatedSubmission{
			ID:             sub.ID,
			Assignment:     assignmentByID[sub.AssignmentID],
			Student:        studentByID[sub.StudentID],
			File:           sub.File,
			CodeLink:       sub.CodeLink,
			DeploymentLink: sub.DeploymentLink,
			VideoLink:      sub.VideoLink,
			CreatedAt:      sub.CreatedAt,
			UpdatedAt:      sub.UpdatedAt,
		})
	}

	return result, nil
}

// ComputeAssignmentStatus reports, for every assignment in the student's
// courses, whether the student has submitted it. Entries follow the storage
// order of the assignments.
func (s *SubmissionService) ComputeAssignmentStatus(ctx context.Context, studentID primitive.ObjectID) ([]*domain.AssignmentStatus, error) {
	if s.cache != nil {
		statuses, ok := s.cache.GetStatus(ctx, studentID)
		ok = ok && !staleStatus(statuses, s.now())
		if s.metrics != nil {
			s.metrics.ObserveCacheLookup(ok)
		}
		if ok {
			return statuses, nil
		}
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, wrapNotFound(err, "student", studentID)
	}

	submitted, err := s.submissions.ListByIDs(ctx, student.Submissions)
	if err != nil {
		return nil, err
	}
	submittedByID := make(map[primitive.ObjectID]*domain.Submission, len(submitted))
	for _, sub := range submitted {
		submittedByID[sub.ID] = sub
	}

	// first back-reference wins when a student holds several submissions
	// for one assignment
	byAssignment := make(map[primitive.ObjectID]*domain.Submission, len(submitted))
	for _, id := range student.Submissions {
		sub, ok := submittedByID[id]
		if !ok {
			continue
		}
		if _, exists := byAssignment[sub.AssignmentID]; !exists {
			byAssignment[sub.AssignmentID] = sub
		}
	}

	assignments, err := s.assignments.ListByCourses(ctx, student.Courses)
	if err != nil {
		return nil, err
	}

	now := s.now()
	statuses := make([]*domain.AssignmentStatus, 0, len(assignments))
	for _, a := range assignments {
		status := &domain.AssignmentStatus{
			AssignmentID: a.ID,
			Title:        a.Title,
			Deadline:     a.Deadline,
		}
		switch sub, ok := byAssignment[a.ID]; {
		case ok:
			createdAt := sub.CreatedAt
			status.Submitted = true
			status.SubmissionDate = &createdAt
			status.Status = domain.SubmissionStateSubmitted
		case a.DeadlinePassed(now):
			status.Status = domain.SubmissionStateNotCompleted
		default:
			status.Status = domain.SubmissionStatePending
		}
		statuses = append(statuses, status)
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, studentID, statuses)
	}

	return statuses, nil
}

// SendDeadlineReminders publishes a reminder for every enrolled student who
// has not submitted an assignment due within horizon. It returns the number
// of reminders sent.
func (s *SubmissionService) SendDeadlineReminders(ctx context.Context, horizon time.Duration, topic string) (int, error) {
	if s.events == nil {
		return 0, nil
	}

	now := s.now()
	assignments, err := s.assignments.ListDueBetween(ctx, now, now.Add(horizon))
	if err != nil {
		return 0, fmt.Errorf("failed to list assignments due soon: %w", err)
	}

	sent := 0
	for _, a := range assignments {
		n, err := s.remindAssignment(ctx, a, topic)
		sent += n
		if err != nil {
			s.log(ctx).Error(ctx, "Failed to send reminders for assignment",
				zap.String("assignment_id", a.ID.Hex()),
				zap.Error(err),
			)
			continue
		}
	}

	if s.metrics != nil {
		s.metrics.RemindersSent.Add(float64(sent))
	}
	return sent, nil
}

func (s *SubmissionService) remindAssignment(ctx context.Context, a *domain.Assignment, topic string) (int, error) {
	students, err := s.students.ListByCourse(ctx, a.CourseID)
	if err != nil {
		return 0, err
	}
	submissions, err := s.submissions.ListByAssignments(ctx, []primitive.ObjectID{a.ID})
	if err != nil {
		return 0, err
	}

	done := make(map[primitive.ObjectID]bool, len(submissions))
	for _, sub := range submissions {
		done[sub.StudentID] = true
	}

	sent := 0
	for _, st := range students {
		if done[st.ID] {
			continue
		}
		reminder := domain.DeadlineReminder{
			AssignmentID: a.ID.Hex(),
			StudentID:    st.ID.Hex(),
			TrainerID:    a.TrainerID.Hex(),
			Title:        a.Title,
			Deadline:     a.Deadline,
		}
		if err := s.events.Send(ctx, topic, st.ID.Hex(), reminder); err != nil {
			s.log(ctx).Warn(ctx, "Failed to send reminder",
				zap.String("assignment_id", a.ID.Hex()),
				zap.String("student_id", st.ID.Hex()),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *SubmissionService) checkDeadline(ctx context.Context, submission *domain.Submission) error {
	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return wrapNotFound(err, "assignment", submission.AssignmentID)
	}
	if assignment.DeadlinePassed(s.now()) {
		return fmt.Errorf("assignment deadline %s has passed: %w",
			assignment.Deadline.Format(time.RFC3339), errdefs.ErrDeadlineExceeded)
	}
	return nil
}

func (s *SubmissionService) discard(ctx context.Context, attachment *domain.Attachment) {
	if err := s.blobs.Discard(attachment.Path); err != nil {
		s.log(ctx).Warn(ctx, "Failed to remove staged attachment",
			zap.String("path", attachment.Path),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.StagedCleanupFailures.Inc()
		}
	}
}

func (s *SubmissionService) publish(ctx context.Context, eventType domain.SubmissionEventType, submission *domain.Submission) {
	if s.events == nil {
		return
	}

	event := domain.SubmissionEvent{
		Type:         eventType,
		SubmissionID: submission.ID.Hex(),
		AssignmentID: submission.AssignmentID.Hex(),
		StudentID:    submission.StudentID.Hex(),
		At:           s.now().UTC(),
	}
	if err := s.events.Send(ctx, s.eventsTopic, event.StudentID, event); err != nil {
		s.log(ctx).Warn(ctx, "Failed to publish submission event",
			zap.String("type", string(eventType)),
			zap.String("submission_id", event.SubmissionID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.EventPublishFailures.Inc()
		}
	}
}

// staleStatus reports whether a cached entry still reads pending after its
// deadline has passed.
func staleStatus(statuses []*domain.AssignmentStatus, now time.Time) bool {
	for _, st := range statuses {
		if st.Status == domain.SubmissionStatePending && now.After(st.Deadline) {
			return true
		}
	}
	return false
}

func (s *SubmissionService) invalidateStatus(ctx context.Context, studentID primitive.ObjectID) {
	if s.cache != nil {
		s.cache.InvalidateStatus(ctx, studentID)
	}
}

func (s *SubmissionService) observe(operation string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, err)
	}
}

func (s *SubmissionService) log(ctx context.Context) *logging.Logger {
	if logger, ok := logging.GetFromContext(ctx); ok {
		return logger
	}
	return s.logger
}

func wrapNotFound(err error, entity string, id primitive.ObjectID) error {
	if errors.Is(err, errdefs.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id.Hex(), errdefs.ErrNotFound)
	}
	return err
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
