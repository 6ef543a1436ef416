package sched

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"postbot/internal/kit"
)

// Kind discriminates what a job delivers and where.
type Kind string

const (
	// KindTextMessage sends text to a single chat.
	KindTextMessage Kind = "text_message"
	// KindStatusText posts text to the status-broadcast recipient list.
	KindStatusText Kind = "status_text"
	// KindStatusImage posts a staged image (optional caption) as status.
	KindStatusImage Kind = "status_image"
	// KindStatusVideo posts a staged video (optional caption) as status.
	KindStatusVideo Kind = "status_video"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTextMessage, KindStatusText, KindStatusImage, KindStatusVideo:
		return true
	}
	return false
}

// IsStatus reports whether the job targets the broadcast recipient list.
func (k Kind) IsStatus() bool { return k != KindTextMessage }

// MediaKind returns the delivery media kind for media jobs.
func (k Kind) MediaKind() (kit.MediaKind, bool) {
	switch k {
	case KindStatusImage:
		return kit.MediaImage, true
	case KindStatusVideo:
		return kit.MediaVideo, true
	}
	return "", false
}

// Job is a single deferred action. It is immutable once created; the only
// state change it ever sees is removal from the store (dispatched, failed,
// or cancelled, all of which are terminal).
type Job struct {
	ID        uint64    `json:"id"`
	Kind      Kind      `json:"kind"`
	Due       time.Time `json:"due_time"`
	Chat      string    `json:"chat,omitempty"`
	Text      string    `json:"text,omitempty"`
	MediaPath string    `json:"media_path,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Created   time.Time `json:"created_at"`
}

// Request is the creation-time shape of a Job, before an id is allocated.
type Request struct {
	Kind      Kind
	Due       time.Time
	Chat      string // required for text_message, ignored for status kinds
	Text      string
	MediaPath string // required for media kinds; a locally staged file
	Caption   string
	Origin    string // chat that asked for the job, for confirmation replies
}

var ErrNotFound = errors.New("job not found")

func (r Request) validate(now time.Time) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown job kind %q", r.Kind)
	}
	if r.Due.IsZero() {
		return errors.New("due time is required")
	}
	if !r.Due.After(now) {
		return fmt.Errorf("due time %s is not in the future", r.Due.Format(time.RFC3339))
	}
	if r.Kind == KindTextMessage && strings.TrimSpace(r.Chat) == "" {
		return errors.New("message jobs need a target chat")
	}
	if _, media := r.Kind.MediaKind(); media {
		if strings.TrimSpace(r.MediaPath) == "" {
			return fmt.Errorf("%s jobs need a staged media file", r.Kind)
		}
	} else if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}

func (r Request) job(id uint64, now time.Time) Job {
	j := Job{
		ID:      id,
		Kind:    r.Kind,
		Due:     r.Due,
		Text:    r.Text,
		Origin:  r.Origin,
		Created: now,
	}
	if r.Kind == KindTextMessage {
		j.Chat = r.Chat
	}
	if _, media := r.Kind.MediaKind(); media {
		j.MediaPath = r.MediaPath
		j.Caption = r.Caption
		j.Text = ""
	}
	return j
}

// dueLayouts are the due-time formats accepted from callers, tried in order.
// Layouts without a zone are interpreted in the scheduler's configured zone.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04",
}

// ParseDueTime parses a caller-supplied due time in loc.
func ParseDueTime(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New("due time is empty")
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized due time %q (want e.g. %q)", raw, "2006-01-02 15:04")
}
