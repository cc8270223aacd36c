package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"academihub.org/internal/audit"
	"academihub.org/internal/auth"
	"academihub.org/internal/course"
	"academihub.org/internal/coursework"
	"academihub.org/internal/enrollment"
	"academihub.org/internal/obs"
	"academihub.org/internal/validate"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{
		Error:     msg,
		RequestID: audit.RequestIDFromContext(r.Context()),
	})
}

// classify maps a domain error onto a status and a stable machine code.
func classify(err error) (int, string) {
	var verrs *validate.Errors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, auth.ErrExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "validation_failed"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, course.ErrNotFound),
		errors.Is(err, enrollment.ErrNotFound),
		errors.Is(err, coursework.ErrNotFound),
		errors.Is(err, coursework.ErrSubmissionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, course.ErrInvalidAction):
		return http.StatusBadRequest, "invalid_action"
	case errors.Is(err, course.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, errBadRequest),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, course.ErrInvalidInput),
		errors.Is(err, enrollment.ErrInvalidInput),
		errors.Is(err, coursework.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, course.ErrArchived):
		return http.StatusConflict, "course_archived"
	case errors.Is(err, enrollment.ErrCourseNotOpen):
		return http.StatusConflict, "course_not_open"
	case errors.Is(err, auth.ErrConflict),
		errors.Is(err, course.ErrConflict),
		errors.Is(err, enrollment.ErrConflict),
		errors.Is(err, coursework.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// fail writes err as the JSON error body. Unclassified errors are logged,
// reported and replaced with a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)
	body := errorResponse{
		Error:     err.Error(),
		Code:      kind,
		RequestID: audit.RequestIDFromContext(r.Context()),
	}
	var verrs *validate.Errors
	if errors.As(err, &verrs) {
		body.Error = "validation failed"
		body.Fields = verrs.Fields
	}
	switch code {
	case http.StatusInternalServerError:
		obs.Logger().ErrorContext(r.Context(), "request failed",
			"request_id", body.RequestID,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		obs.ReportError(r.Context(), err, map[string]any{
			"request_id": body.RequestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		body.Error = "internal server error"
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	writeJSON(w, code, body)
}

// decode reads a JSON body into dst and validates it.
func (a *API) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		default:
			return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return a.validator.Struct(dst)
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}

func queryID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, key)
	}
	return id, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", errBadRequest, key)
	}
	return &v, nil
}

// paging reads limit and offset query parameters.
func paging(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
