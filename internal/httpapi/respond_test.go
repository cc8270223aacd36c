package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
	"academihub.org/internal/coursework"
	"academihub.org/internal/enrollment"
	"academihub.org/internal/validate"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{auth.ErrExpired, http.StatusUnauthorized, "token_expired"},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("%w: not the owner", auth.ErrForbidden), http.StatusForbidden, "forbidden"},
		{course.ErrNotFound, http.StatusNotFound, "not_found"},
		{coursework.ErrNotPublished, http.StatusNotFound, "not_found"},
		{coursework.ErrSubmissionNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: %q", course.ErrInvalidAction, "fly"), http.StatusBadRequest, "invalid_action"},
		{&course.TransitionError{From: course.Archived, To: course.Draft}, http.StatusBadRequest, "invalid_transition"},
		{auth.ErrWeakPassword, http.StatusBadRequest, "invalid_input"},
		{&validate.Errors{Fields: map[string]string{"email": "email is required"}}, http.StatusBadRequest, "validation_failed"},
		{course.ErrConflict, http.StatusConflict, "conflict"},
		{enrollment.ErrConflict, http.StatusConflict, "conflict"},
		{enrollment.ErrCourseNotOpen, http.StatusConflict, "course_not_open"},
		{fmt.Errorf("%w: CS101", course.ErrArchived), http.StatusConflict, "course_archived"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("classify(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestFailHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	fail(rr, httptest.NewRequest(http.MethodGet, "/v1/courses", nil), errors.New("pq: password authentication failed"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "internal server error" {
		t.Fatalf("leaked error: %q", body.Error)
	}
}

func TestFailReturnsValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	fail(rr, httptest.NewRequest(http.MethodPost, "/v1/courses", nil),
		&validate.Errors{Fields: map[string]string{"code": "code must look like CS101"}})

	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusBadRequest || body.Fields["code"] == "" {
		t.Fatalf("unexpected response %d %+v", rr.Code, body)
	}
}

func TestPathIDRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-4", ""} {
		req := httptest.NewRequest(http.MethodGet, "/v1/courses/x", nil)
		req.SetPathValue("id", raw)
		if _, err := pathID(req); !errors.Is(err, errBadRequest) {
			t.Fatalf("pathID(%q) err = %v", raw, err)
		}
	}
}
