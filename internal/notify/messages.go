package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

// GradeInput carries what the graded-submission email shows.
type GradeInput struct {
	StudentEmail    string
	StudentName     string
	CourseCode      string
	AssignmentTitle string
	Score           float64
	MaxScore        float64
	Feedback        string
}

func GradeMessage(in GradeInput) Message {
	score := formatScore(in.Score) + " / " + formatScore(in.MaxScore)

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", greetingName(in.StudentName))
	fmt.Fprintf(&text, "Your submission for %q (%s) has been graded: %s.\n", in.AssignmentTitle, in.CourseCode, score)
	if in.Feedback != "" {
		fmt.Fprintf(&text, "\nFeedback:\n%s\n", in.Feedback)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Hi %s,</p>", html.EscapeString(greetingName(in.StudentName)))
	fmt.Fprintf(&body, "<p>Your submission for <strong>%s</strong> (%s) has been graded: <strong>%s</strong>.</p>",
		html.EscapeString(in.AssignmentTitle), html.EscapeString(in.CourseCode), score)
	if in.Feedback != "" {
		fmt.Fprintf(&body, "<p>Feedback:</p><blockquote>%s</blockquote>", html.EscapeString(in.Feedback))
	}

	return Message{
		Kind:    KindGrade,
		ToEmail: in.StudentEmail,
		ToName:  in.StudentName,
		Subject: fmt.Sprintf("%s: %s graded", in.CourseCode, in.AssignmentTitle),
		Text:    text.String(),
		HTML:    body.String(),
	}
}

func ReminderMessage(r Reminder, now time.Time) Message {
	left := r.DueDate.Sub(now).Round(time.Hour)
	if left < time.Hour {
		left = time.Hour
	}
	due := r.DueDate.UTC().Format("Mon 02 Jan 15:04 MST")

	text := fmt.Sprintf("Hi %s,\n\n%q in %s is due %s (about %s from now) and we have no submission from you yet.\n",
		greetingName(r.StudentName), r.AssignmentTitle, r.CourseCode, due, shortDuration(left))
	body := fmt.Sprintf("<p>Hi %s,</p><p><strong>%s</strong> in %s is due %s and we have no submission from you yet.</p>",
		html.EscapeString(greetingName(r.StudentName)), html.EscapeString(r.AssignmentTitle), html.EscapeString(r.CourseCode), due)

	return Message{
		Kind:    KindReminder,
		ToEmail: r.StudentEmail,
		ToName:  r.StudentName,
		Subject: fmt.Sprintf("%s: %s is due soon", r.CourseCode, r.AssignmentTitle),
		Text:    text,
		HTML:    body,
	}
}

func greetingName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "there"
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortDuration(d time.Duration) string {
	h := int(d.Hours())
	if h%24 == 0 && h >= 24 {
		return strconv.Itoa(h/24) + "d"
	}
	return strconv.Itoa(h) + "h"
}
