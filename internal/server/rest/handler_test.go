package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/internal/metrics"
	"submission_service/internal/service"
	"submission_service/pkg/logging"
)

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) CreateSubmission(ctx context.Context, input *domain.CreateSubmissionInput) (*domain.Submission, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) GetSubmission(ctx context.Context, assignmentID, studentID primitive.ObjectID) (*domain.Submission, error) {
	args := m.Called(ctx, assignmentID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) UpdateSubmission(ctx context.Context, input *domain.UpdateSubmissionInput) (*domain.Submission, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) DeleteSubmission(ctx context.Context, submissionID primitive.ObjectID) error {
	return m.Called(ctx, submissionID).Error(0)
}

func (m *MockSubmissionService) ListSubmissionsForTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]*domain.PopulatedSubmission, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PopulatedSubmission), args.Error(1)
}

func (m *MockSubmissionService) ComputeAssignmentStatus(ctx context.Context, studentID primitive.ObjectID) ([]*domain.AssignmentStatus, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssignmentStatus), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input *service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type fakeStager struct {
	staged    []string
	discarded []string
	err       error
}

func (f *fakeStager) Stage(field string, header *multipart.FileHeader) (*domain.Attachment, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := "/staging/" + field + "-" + header.Filename
	f.staged = append(f.staged, path)
	return &domain.Attachment{Path: path, Filename: header.Filename, Size: header.Size}, nil
}

func (f *fakeStager) Discard(stagedPath string) error {
	f.discarded = append(f.discarded, stagedPath)
	return nil
}

type testServer struct {
	router      http.Handler
	submissions *MockSubmissionService
	users       *MockUserService
	stager      *fakeStager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		submissions: new(MockSubmissionService),
		users:       new(MockUserService),
		stager:      &fakeStager{},
	}
	reg := prometheus.NewRegistry()
	h := NewHandler(ts.submissions, ts.users, ts.stager)
	ts.router = NewRouter(h, RouterConfig{
		Logger:        logging.NewNop(),
		Metrics:       metrics.NewCollector(reg),
		Gatherer:      reg,
		MaxUploadSize: 1 << 20,
	})

	t.Cleanup(func() {
		ts.submissions.AssertExpectations(t)
		ts.users.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, filename string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("content"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"BadRequest", ErrBadRequest, http.StatusBadRequest},
		{"NotFound", errdefs.ErrNotFound, http.StatusNotFound},
		{"Conflict", errdefs.ErrConflict, http.StatusConflict},
		{"AlreadyExists", errdefs.ErrAlreadyExists, http.StatusConflict},
		{"DeadlineExceeded", errdefs.ErrDeadlineExceeded, http.StatusBadRequest},
		{"InvalidArgument", errdefs.ErrInvalidArgument, http.StatusBadRequest},
		{"Validation", errdefs.ErrValidation, http.StatusBadRequest},
		{"Unknown", errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, mapErr(tc.err))
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errors.New("mongo: server selection timeout on 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Internal Server Error", resp.Error)
	assert.Equal(t, "Internal", resp.Kind)
}

func TestSubmit(t *testing.T) {
	assignmentID, studentID := primitive.NewObjectID(), primitive.NewObjectID()

	t.Run("Multipart with attachment", func(t *testing.T) {
		ts := newTestServer(t)
		created := &domain.Submission{ID: primitive.NewObjectID(), AssignmentID: assignmentID, StudentID: studentID}

		ts.submissions.On("CreateSubmission", mock.Anything, mock.MatchedBy(func(in *domain.CreateSubmissionInput) bool {
			return in.AssignmentID == assignmentID &&
				in.StudentID == studentID &&
				in.CodeLink == "https://github.com/ada/site" &&
				in.Attachment != nil && in.Attachment.Filename == "report.pdf"
		})).Return(created, nil)

		w := ts.do(multipartRequest(t, http.MethodPost, "/assignment-submissions/submit", map[string]string{
			"assignmentId": assignmentID.Hex(),
			"studentId":    studentID.Hex(),
			"codeLink":     "https://github.com/ada/site",
		}, "report.pdf"))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp submissionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Assignment submitted successfully", resp.Message)
		assert.Equal(t, created.ID, resp.Submission.ID)
		assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))
	})

	t.Run("JSON body without attachment", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("CreateSubmission", mock.Anything, mock.MatchedBy(func(in *domain.CreateSubmissionInput) bool {
			return in.Attachment == nil && in.VideoLink == "https://youtu.be/x"
		})).Return(&domain.Submission{ID: primitive.NewObjectID()}, nil)

		w := ts.do(jsonRequest(http.MethodPost, "/assignment-submissions/submit", map[string]string{
			"assignmentId": assignmentID.Hex(),
			"studentId":    studentID.Hex(),
			"videoLink":    "https://youtu.be/x",
		}))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Invalid ids fail validation and drop the staged file", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(multipartRequest(t, http.MethodPost, "/assignment-submissions/submit", map[string]string{
			"assignmentId": "not-an-id",
		}, "report.pdf"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "InvalidArgument", resp.Kind)
		assert.Contains(t, resp.Fields, "assignmentId")
		assert.Equal(t, requiredText, resp.Fields["studentId"])
		assert.Equal(t, ts.stager.staged, ts.stager.discarded)
		ts.submissions.AssertNotCalled(t, "CreateSubmission", mock.Anything, mock.Anything)
	})

	t.Run("Conflict", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("CreateSubmission", mock.Anything, mock.Anything).
			Return(nil, errdefs.ErrConflict)

		w := ts.do(jsonRequest(http.MethodPost, "/assignment-submissions/submit", map[string]string{
			"assignmentId": assignmentID.Hex(),
			"studentId":    studentID.Hex(),
		}))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Conflict", decodeError(t, w).Kind)
	})

	t.Run("NotFound", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("CreateSubmission", mock.Anything, mock.Anything).
			Return(nil, errdefs.ErrNotFound)

		w := ts.do(jsonRequest(http.MethodPost, "/assignment-submissions/submit", map[string]string{
			"assignmentId": assignmentID.Hex(),
			"studentId":    studentID.Hex(),
		}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Staging failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.stager.err = errdefs.ErrValidation

		w := ts.do(multipartRequest(t, http.MethodPost, "/assignment-submissions/submit", map[string]string{
			"assignmentId": assignmentID.Hex(),
			"studentId":    studentID.Hex(),
		}, "report.pdf"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStudentSubmission(t *testing.T) {
	assignmentID, studentID := primitive.NewObjectID(), primitive.NewObjectID()
	target := "/assignment-submissions/student-submission/" + assignmentID.Hex() + "/" + studentID.Hex()

	t.Run("Found", func(t *testing.T) {
		ts := newTestServer(t)
		sub := &domain.Submission{ID: primitive.NewObjectID(), AssignmentID: assignmentID, StudentID: studentID}

		ts.submissions.On("GetSubmission", mock.Anything, assignmentID, studentID).Return(sub, nil)

		w := ts.do(httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), sub.ID.Hex())
	})

	t.Run("Absent renders null", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("GetSubmission", mock.Anything, assignmentID, studentID).Return(nil, nil)

		w := ts.do(httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))
	})

	t.Run("Malformed id", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/assignment-submissions/student-submission/xyz/"+studentID.Hex(), nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdate(t *testing.T) {
	submissionID := primitive.NewObjectID()
	target := "/assignment-submissions/update/" + submissionID.Hex()

	t.Run("Partial JSON update", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("UpdateSubmission", mock.Anything, &domain.UpdateSubmissionInput{
			SubmissionID: submissionID,
			VideoLink:    "https://youtu.be/new",
		}).Return(&domain.Submission{ID: submissionID}, nil)

		w := ts.do(jsonRequest(http.MethodPut, target, map[string]string{"videoLink": "https://youtu.be/new"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Submission updated successfully")
	})

	t.Run("Multipart attachment", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("UpdateSubmission", mock.Anything, mock.MatchedBy(func(in *domain.UpdateSubmissionInput) bool {
			return in.SubmissionID == submissionID && in.Attachment != nil
		})).Return(&domain.Submission{ID: submissionID}, nil)

		w := ts.do(multipartRequest(t, http.MethodPut, target, nil, "new.pdf"))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Deadline passed", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("UpdateSubmission", mock.Anything, mock.Anything).
			Return(nil, errdefs.ErrDeadlineExceeded)

		w := ts.do(jsonRequest(http.MethodPut, target, map[string]string{"codeLink": "x"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "DeadlineExceeded", decodeError(t, w).Kind)
	})

	t.Run("Empty body", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("UpdateSubmission", mock.Anything, &domain.UpdateSubmissionInput{SubmissionID: submissionID}).
			Return(&domain.Submission{ID: submissionID}, nil)

		req := httptest.NewRequest(http.MethodPut, target, nil)
		w := ts.do(req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestDelete(t *testing.T) {
	submissionID := primitive.NewObjectID()
	target := "/assignment-submissions/delete/" + submissionID.Hex()

	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("DeleteSubmission", mock.Anything, submissionID).Return(nil)

		w := ts.do(httptest.NewRequest(http.MethodDelete, target, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Submission deleted successfully")
	})

	t.Run("NotFound", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("DeleteSubmission", mock.Anything, submissionID).Return(errdefs.ErrNotFound)

		w := ts.do(httptest.NewRequest(http.MethodDelete, target, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Store failure", func(t *testing.T) {
		ts := newTestServer(t)

		ts.submissions.On("DeleteSubmission", mock.Anything, submissionID).Return(errors.New("boom"))

		w := ts.do(httptest.NewRequest(http.MethodDelete, target, nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestListSubmittedAssignments(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t)
		trainerID := primitive.NewObjectID()
		list := []*domain.PopulatedSubmission{{
			ID:         primitive.NewObjectID(),
			Assignment: &domain.Assignment{Title: "A1"},
			Student:    &domain.StudentSummary{Name: "S1", Email: "s1@example.com"},
		}}

		ts.submissions.On("ListSubmissionsForTrainer", mock.Anything, trainerID).Return(list, nil)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/assignment-submissions/submitted-assignments?trainer="+trainerID.Hex(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "S1", resp[0]["student"].(map[string]interface{})["name"])
	})

	t.Run("Missing trainer", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/assignment-submissions/submitted-assignments", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Trainer ID is required", decodeError(t, w).Error)
	})
}

func TestStudentAssignments(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t)
		studentID := primitive.NewObjectID()
		date := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
		statuses := []*domain.AssignmentStatus{
			{AssignmentID: primitive.NewObjectID(), Title: "A1", Submitted: true, SubmissionDate: &date, Status: domain.SubmissionStateSubmitted},
			{AssignmentID: primitive.NewObjectID(), Title: "A2", Status: domain.SubmissionStateNotCompleted},
		}

		ts.submissions.On("ComputeAssignmentStatus", mock.Anything, studentID).Return(statuses, nil)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/assignment-submissions/student-assignments/"+studentID.Hex(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp, 2)
		assert.Equal(t, "submitted", resp[0]["status"])
		assert.Equal(t, "not completed", resp[1]["status"])
		assert.Nil(t, resp[1]["submissionDate"])
	})

	t.Run("StudentNotFound", func(t *testing.T) {
		ts := newTestServer(t)
		studentID := primitive.NewObjectID()

		ts.submissions.On("ComputeAssignmentStatus", mock.Anything, studentID).Return(nil, errdefs.ErrNotFound)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/assignment-submissions/student-assignments/"+studentID.Hex(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRegisterUser(t *testing.T) {
	t.Run("Success hides password", func(t *testing.T) {
		ts := newTestServer(t)
		user := &domain.User{ID: primitive.NewObjectID(), Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", Role: domain.UserRoleStudent}

		ts.users.On("Register", mock.Anything, &service.RegisterInput{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "hunter22",
		}).Return(user, nil)

		w := ts.do(jsonRequest(http.MethodPost, "/users", map[string]string{
			"name":     "Ada",
			"email":    "ada@example.com",
			"password": "hunter22",
		}))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "hash")
	})

	t.Run("Bad role", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(jsonRequest(http.MethodPost, "/users", map[string]string{
			"name":     "Ada",
			"email":    "ada@example.com",
			"password": "hunter22",
			"role":     "root",
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Fields, "role")
	})

	t.Run("Duplicate email", func(t *testing.T) {
		ts := newTestServer(t)

		ts.users.On("Register", mock.Anything, mock.Anything).Return(nil, errdefs.ErrAlreadyExists)

		w := ts.do(jsonRequest(http.MethodPost, "/users", map[string]string{
			"name":     "Ada",
			"email":    "ada@example.com",
			"password": "hunter22",
		}))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestOpsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lms_http_request_duration_seconds")
}

func TestLoggingMiddleware_KeepsIncomingTraceID(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	w := ts.do(req)

	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-Id"))
}
