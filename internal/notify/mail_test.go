package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"academihub.org/internal/obs"
)

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutput(&buf)
	defer restore()

	m := NewLogMailer(obs.Logger())
	if err := m.Send(context.Background(), Message{Kind: KindGrade, ToEmail: "s@uni.edu", Subject: "graded"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"s@uni.edu"`) {
		t.Fatalf("expected recipient in log line, got %s", buf.String())
	}
	if err := m.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestSendGridMailerPostsV3Mail(t *testing.T) {
	var got struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
			Subject string `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != sendGridEndpoint || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("SG.key", "noreply@uni.edu", "", "AcademiHub")
	m.host = srv.URL
	err := m.Send(context.Background(), Message{ToEmail: "s@uni.edu", ToName: "Sam", Subject: "hello", Text: "hi", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if auth != "Bearer SG.key" {
		t.Fatalf("unexpected authorization %q", auth)
	}
	if got.From.Email != "noreply@uni.edu" || len(got.Personalizations) != 1 {
		t.Fatalf("unexpected payload %+v", got)
	}
	p := got.Personalizations[0]
	if p.Subject != "[AcademiHub] hello" || len(p.To) != 1 || p.To[0].Email != "s@uni.edu" {
		t.Fatalf("unexpected personalization %+v", p)
	}
	if len(got.Content) != 2 || got.Content[0].Type != "text/plain" {
		t.Fatalf("unexpected content %+v", got.Content)
	}
}

func TestSendGridMailerReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer("bad", "noreply@uni.edu", "Registry", "")
	m.host = srv.URL
	err := m.Send(context.Background(), Message{ToEmail: "s@uni.edu", Subject: "x", Text: "y"})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGradeMessage(t *testing.T) {
	msg := GradeMessage(GradeInput{
		StudentEmail:    "s@uni.edu",
		StudentName:     "Sam",
		CourseCode:      "CS101",
		AssignmentTitle: "Lab 1",
		Score:           87.5,
		MaxScore:        100,
		Feedback:        "Nice <work>",
	})
	if msg.Kind != KindGrade || msg.ToEmail != "s@uni.edu" {
		t.Fatalf("unexpected header fields %+v", msg)
	}
	if !strings.Contains(msg.Text, "87.5 / 100") || !strings.Contains(msg.Text, "Nice <work>") {
		t.Fatalf("text body missing score or feedback: %q", msg.Text)
	}
	if strings.Contains(msg.HTML, "<work>") {
		t.Fatalf("html body not escaped: %q", msg.HTML)
	}
}

func TestReminderMessage(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := ReminderMessage(Reminder{
		StudentEmail:    "s@uni.edu",
		AssignmentTitle: "Essay",
		CourseCode:      "HIS210",
		DueDate:         now.Add(5 * time.Hour),
	}, now)
	if msg.Subject != "HIS210: Essay is due soon" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Hi there") || !strings.Contains(msg.Text, "5h") {
		t.Fatalf("unexpected text %q", msg.Text)
	}
}
