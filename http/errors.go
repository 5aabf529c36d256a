package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"loan-calculator/amortization"
	"loan-calculator/repository"
	"loan-calculator/service"
)

// maxBodyBytes caps request bodies; loan requests are a few hundred bytes.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Details   []string  `json:"details,omitempty"`
}

var errUnsupportedMediaType = errors.New("unsupported media type")

// malformedRequestError carries a client-facing description of a body that
// could not be decoded.
type malformedRequestError struct {
	msg string
}

func (e *malformedRequestError) Error() string { return e.msg }

// requireJSON rejects requests whose Content-Type is not application/json.
func requireJSON(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errUnsupportedMediaType
	}
	return nil
}

// decodeJSON decodes a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr  *json.SyntaxError
			typeErr    *json.UnmarshalTypeError
			maxByteErr *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return &malformedRequestError{msg: "Request body is empty"}
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return &malformedRequestError{msg: fmt.Sprintf("JSON parse error: %v", err)}
		case errors.As(err, &typeErr):
			return &malformedRequestError{msg: fmt.Sprintf(
				"Invalid value (%s) for field '%s'. Expected type: %s.", typeErr.Value, typeErr.Field, typeErr.Type)}
		case errors.As(err, &maxByteErr):
			return &malformedRequestError{msg: fmt.Sprintf("Request body must not exceed %d bytes", maxByteErr.Limit)}
		default:
			return &malformedRequestError{msg: fmt.Sprintf("Malformed JSON request: %v", err)}
		}
	}

	if dec.More() {
		return &malformedRequestError{msg: "Request body must contain a single JSON object"}
	}
	return nil
}

// writeJSON encodes into a buffer first so a failed encode never leaves a
// half-written 200 behind.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("error encoding response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("error writing response", "error", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, title, msg string, details []string) {
	writeJSON(w, logger, status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     title,
		Message:   msg,
		Path:      r.URL.Path,
		Details:   details,
	})
}

// writeError maps an error from decoding or the service layer to a response.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		malformed *malformedRequestError
		validErr  *service.ValidationError
	)

	switch {
	case errors.Is(err, errUnsupportedMediaType):
		writeErrorResponse(w, r, logger, http.StatusUnsupportedMediaType, "Unsupported Media Type",
			"Content-Type must be application/json", nil)

	case errors.As(err, &malformed):
		logger.Warn("malformed JSON request", "path", r.URL.Path, "error", err)
		writeErrorResponse(w, r, logger, http.StatusBadRequest, "Malformed JSON Request", malformed.msg, nil)

	case errors.As(err, &validErr):
		logger.Warn("validation failed", "path", r.URL.Path, "details", validErr.Details)
		writeErrorResponse(w, r, logger, http.StatusBadRequest, "Validation Failed", "Invalid input parameters", validErr.Details)

	case errors.Is(err, amortization.ErrInvalidTerms):
		writeErrorResponse(w, r, logger, http.StatusBadRequest, "Validation Failed", err.Error(), nil)

	case errors.Is(err, amortization.ErrCalculation):
		logger.Error("loan calculation error", "path", r.URL.Path, "error", err)
		writeErrorResponse(w, r, logger, http.StatusInternalServerError, "Loan Calculation Error", err.Error(), nil)

	case errors.Is(err, repository.ErrNotFound):
		writeErrorResponse(w, r, logger, http.StatusNotFound, "Not Found", "Loan not found", nil)

	case errors.Is(err, service.ErrNoMatchingTerm):
		writeErrorResponse(w, r, logger, http.StatusUnprocessableEntity, "No Matching Term", err.Error(), nil)

	default:
		logger.Error("unhandled error", "path", r.URL.Path, "error", err)
		writeErrorResponse(w, r, logger, http.StatusInternalServerError, "Internal Server Error", "Unexpected error", nil)
	}
}
