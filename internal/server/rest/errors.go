package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"submission_service/internal/errdefs"
)

var ErrBadRequest = errors.New("bad request")

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

func mapErr(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errdefs.ErrConflict), errors.Is(err, errdefs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errdefs.ErrDeadlineExceeded):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrInvalidArgument), errors.Is(err, errdefs.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a response. Internal failures get a generic
// message so store details never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	statusCode := mapErr(err)
	message := err.Error()
	kind := errdefs.Kind(err)
	if statusCode == http.StatusInternalServerError {
		message = http.StatusText(statusCode)
	}
	if errors.Is(err, ErrBadRequest) {
		kind = "InvalidArgument"
	}
	writeJSON(w, statusCode, errorResponse{Error: message, Kind: kind})
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	kind := "InvalidArgument"
	if statusCode >= http.StatusInternalServerError {
		kind = "Internal"
	}
	writeJSON(w, statusCode, errorResponse{Error: message, Kind: kind})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func parseObjectIDParam(r *http.Request, key string) (primitive.ObjectID, error) {
	val := chi.URLParam(r, key)
	if val == "" {
		return primitive.NilObjectID, fmt.Errorf("missing path param %s: %w", key, ErrBadRequest)
	}
	return parseObjectID(key, val)
}

func parseObjectID(name, val string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(val)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s %q: %w", name, val, ErrBadRequest)
	}
	return id, nil
}
