package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"submission_service/internal/domain"
	"submission_service/internal/service"
	"submission_service/pkg/logging"
)

const (
	attachmentField = "file"
	maxFormMemory   = 8 << 20
)

type SubmissionService interface {
	CreateSubmission(ctx context.Context, input *domain.CreateSubmissionInput) (*domain.Submission, error)
	GetSubmission(ctx context.Context, assignmentID, studentID primitive.ObjectID) (*domain.Submission, error)
	UpdateSubmission(ctx context.Context, input *domain.UpdateSubmissionInput) (*domain.Submission, error)
	DeleteSubmission(ctx context.Context, submissionID primitive.ObjectID) error
	ListSubmissionsForTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]*domain.PopulatedSubmission, error)
	ComputeAssignmentStatus(ctx context.Context, studentID primitive.ObjectID) ([]*domain.AssignmentStatus, error)
}

type UserService interface {
	Register(ctx context.Context, input *service.RegisterInput) (*domain.User, error)
}

// Stager copies an incoming multipart file to local disk.
type Stager interface {
	Stage(field string, header *multipart.FileHeader) (*domain.Attachment, error)
	Discard(stagedPath string) error
}

type Handler struct {
	submissions SubmissionService
	users       UserService
	stager      Stager
	validator   *Validator
}

func NewHandler(submissions SubmissionService, users UserService, stager Stager) *Handler {
	return &Handler{
		submissions: submissions,
		users:       users,
		stager:      stager,
		validator:   NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assignment-submissions", func(r chi.Router) {
		r.Post("/submit", h.Submit)
		r.Get("/student-submission/{assignmentId}/{studentId}", h.GetStudentSubmission)
		r.Put("/update/{submissionId}", h.Update)
		r.Delete("/delete/{submissionId}", h.Delete)
		r.Get("/submitted-assignments", h.ListSubmittedAssignments)
		r.Get("/student-assignments/{studentId}", h.StudentAssignments)
	})

	r.Post("/users", h.RegisterUser)
}

type submitRequest struct {
	AssignmentID   string `json:"assignmentId" validate:"required,mongodb"`
	StudentID      string `json:"studentId" validate:"required,mongodb"`
	CodeLink       string `json:"codeLink" validate:"omitempty,max=2048"`
	DeploymentLink string `json:"deploymentLink" validate:"omitempty,max=2048"`
	VideoLink      string `json:"videoLink" validate:"omitempty,max=2048"`
}

type updateRequest struct {
	CodeLink       string `json:"codeLink" validate:"omitempty,max=2048"`
	DeploymentLink string `json:"deploymentLink" validate:"omitempty,max=2048"`
	VideoLink      string `json:"videoLink" validate:"omitempty,max=2048"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher admin"`
}

type submissionResponse struct {
	Message    string             `json:"message"`
	Submission *domain.Submission `json:"submission,omitempty"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	attachment, ok := h.decodeSubmission(w, r, &req)
	if !ok {
		return
	}
	if !h.validator.Check(w, &req) {
		h.dropStaged(r.Context(), attachment)
		return
	}

	assignmentID, _ := primitive.ObjectIDFromHex(req.AssignmentID)
	studentID, _ := primitive.ObjectIDFromHex(req.StudentID)

	submission, err := h.submissions.CreateSubmission(r.Context(), &domain.CreateSubmissionInput{
		AssignmentID:   assignmentID,
		StudentID:      studentID,
		Attachment:     attachment,
		CodeLink:       req.CodeLink,
		DeploymentLink: req.DeploymentLink,
		VideoLink:      req.VideoLink,
	})
	if err != nil {
		h.fail(w, r, "Failed to submit assignment", err)
		return
	}

	writeJSON(w, http.StatusCreated, submissionResponse{
		Message:    "Assignment submitted successfully",
		Submission: submission,
	})
}

func (h *Handler) GetStudentSubmission(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseObjectIDParam(r, "assignmentId")
	if err != nil {
		writeError(w, err)
		return
	}
	studentID, err := parseObjectIDParam(r, "studentId")
	if err != nil {
		writeError(w, err)
		return
	}

	submission, err := h.submissions.GetSubmission(r.Context(), assignmentID, studentID)
	if err != nil {
		h.fail(w, r, "Failed to fetch submission", err)
		return
	}

	writeJSON(w, http.StatusOK, submission)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	submissionID, err := parseObjectIDParam(r, "submissionId")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateRequest
	attachment, ok := h.decodeSubmission(w, r, &req)
	if !ok {
		return
	}
	if !h.validator.Check(w, &req) {
		h.dropStaged(r.Context(), attachment)
		return
	}

	submission, err := h.submissions.UpdateSubmission(r.Context(), &domain.UpdateSubmissionInput{
		SubmissionID:   submissionID,
		Attachment:     attachment,
		CodeLink:       req.CodeLink,
		DeploymentLink: req.DeploymentLink,
		VideoLink:      req.VideoLink,
	})
	if err != nil {
		h.fail(w, r, "Failed to update submission", err)
		return
	}

	writeJSON(w, http.StatusOK, submissionResponse{
		Message:    "Submission updated successfully",
		Submission: submission,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	submissionID, err := parseObjectIDParam(r, "submissionId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.submissions.DeleteSubmission(r.Context(), submissionID); err != nil {
		h.fail(w, r, "Failed to delete submission", err)
		return
	}

	writeJSON(w, http.StatusOK, submissionResponse{Message: "Submission deleted successfully"})
}

func (h *Handler) ListSubmittedAssignments(w http.ResponseWriter, r *http.Request) {
	trainer := r.URL.Query().Get("trainer")
	if trainer == "" {
		writeErrorJSON(w, http.StatusBadRequest, "Trainer ID is required")
		return
	}
	trainerID, err := parseObjectID("trainer", trainer)
	if err != nil {
		writeError(w, err)
		return
	}

	submissions, err := h.submissions.ListSubmissionsForTrainer(r.Context(), trainerID)
	if err != nil {
		h.fail(w, r, "Failed to fetch submitted assignments", err)
		return
	}

	writeJSON(w, http.StatusOK, submissions)
}

func (h *Handler) StudentAssignments(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseObjectIDParam(r, "studentId")
	if err != nil {
		writeError(w, err)
		return
	}

	statuses, err := h.submissions.ComputeAssignmentStatus(r.Context(), studentID)
	if err != nil {
		h.fail(w, r, "Failed to fetch assignments", err)
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validator.Check(w, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), &service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.UserRole(req.Role),
	})
	if err != nil {
		h.fail(w, r, "Failed to register user", err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// decodeSubmission fills dst from a multipart form or a JSON body and stages
// the optional attachment. On failure it has already written the response.
func (h *Handler) decodeSubmission(w http.ResponseWriter, r *http.Request, dst interface{}) (*domain.Attachment, bool) {
	contentType := r.Header.Get("Content-Type")

	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
			if err := r.ParseForm(); err != nil {
				writeErrorJSON(w, http.StatusBadRequest, "invalid form body")
				return nil, false
			}
			fillFromForm(dst, r.PostForm.Get)
			return nil, true
		}
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
			return nil, false
		}
		return nil, true
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "attachment too large")
			return nil, false
		}
		writeErrorJSON(w, http.StatusBadRequest, "invalid multipart body")
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fillFromForm(dst, r.PostForm.Get)

	headers := r.MultipartForm.File[attachmentField]
	if len(headers) == 0 {
		return nil, true
	}

	attachment, err := h.stager.Stage(attachmentField, headers[0])
	if err != nil {
		h.fail(w, r, "Failed to stage attachment", err)
		return nil, false
	}
	return attachment, true
}

// dropStaged removes an attachment that never reached the service.
func (h *Handler) dropStaged(ctx context.Context, attachment *domain.Attachment) {
	if attachment == nil {
		return
	}
	if err := h.stager.Discard(attachment.Path); err != nil {
		if logger, ok := logging.GetFromContext(ctx); ok {
			logger.Warn(ctx, "Failed to remove staged attachment", zap.String("path", attachment.Path), zap.Error(err))
		}
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if logger, ok := logging.GetFromContext(r.Context()); ok {
		if mapErr(err) == http.StatusInternalServerError {
			logger.Error(r.Context(), msg, zap.Error(err))
		} else {
			logger.Debug(r.Context(), msg, zap.Error(err))
		}
	}
	writeError(w, err)
}

func fillFromForm(dst interface{}, get func(string) string) {
	switch req := dst.(type) {
	case *submitRequest:
		req.AssignmentID = get("assignmentId")
		req.StudentID = get("studentId")
		req.CodeLink = get("codeLink")
		req.DeploymentLink = get("deploymentLink")
		req.VideoLink = get("videoLink")
	case *updateRequest:
		req.CodeLink = get("codeLink")
		req.DeploymentLink = get("deploymentLink")
		req.VideoLink = get("videoLink")
	default:
		panic(fmt.Sprintf("unsupported form target %T", dst))
	}
}
