package sched

import (
	"testing"
	"time"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"text message ok", Request{Kind: KindTextMessage, Due: future, Chat: "123", Text: "hi"}, false},
		{"status text ok", Request{Kind: KindStatusText, Due: future, Text: "hi"}, false},
		{"status image ok", Request{Kind: KindStatusImage, Due: future, MediaPath: "/tmp/a.jpg"}, false},
		{"status video ok", Request{Kind: KindStatusVideo, Due: future, MediaPath: "/tmp/a.mp4", Caption: "c"}, false},
		{"unknown kind", Request{Kind: "poll", Due: future, Text: "hi"}, true},
		{"zero due", Request{Kind: KindStatusText, Text: "hi"}, true},
		{"due equals now", Request{Kind: KindStatusText, Due: now, Text: "hi"}, true},
		{"due in past", Request{Kind: KindTextMessage, Due: now.Add(-time.Second), Chat: "123", Text: "hi"}, true},
		{"message without chat", Request{Kind: KindTextMessage, Due: future, Text: "hi"}, true},
		{"text kind without text", Request{Kind: KindStatusText, Due: future}, true},
		{"media kind without file", Request{Kind: KindStatusImage, Due: future, Caption: "c"}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.validate(now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestJobStripsIrrelevantFields(t *testing.T) {
	t.Parallel()
	now := time.Now()
	req := Request{
		Kind:      KindStatusImage,
		Due:       now.Add(time.Hour),
		Chat:      "ignored-for-status",
		Text:      "ignored-for-media",
		MediaPath: "/tmp/a.jpg",
		Caption:   "cap",
		Origin:    "42",
	}
	j := req.job(7, now)
	if j.ID != 7 || j.Kind != KindStatusImage {
		t.Fatalf("job = %+v", j)
	}
	if j.Chat != "" {
		t.Fatalf("status job must not carry a chat, got %q", j.Chat)
	}
	if j.Text != "" {
		t.Fatalf("media job must not carry text, got %q", j.Text)
	}
	if j.MediaPath != "/tmp/a.jpg" || j.Caption != "cap" || j.Origin != "42" {
		t.Fatalf("job = %+v", j)
	}
	if !j.Created.Equal(now) {
		t.Fatalf("Created = %v, want %v", j.Created, now)
	}
}

func TestParseDueTime(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	got, err := ParseDueTime("2026-09-01 08:30", loc)
	if err != nil {
		t.Fatalf("ParseDueTime: %v", err)
	}
	want := time.Date(2026, 9, 1, 8, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, err = ParseDueTime("01-09-2026 08:30", loc)
	if err != nil {
		t.Fatalf("ParseDueTime dd-mm: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := ParseDueTime("2026-09-01T08:30:00+07:00", loc); err != nil {
		t.Fatalf("ParseDueTime rfc3339: %v", err)
	}
}

func TestParseDueTimeInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "  ", "tomorrow", "25:99", "2026-13-40 08:30"} {
		if _, err := ParseDueTime(raw, time.UTC); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestKindHelpers(t *testing.T) {
	t.Parallel()
	if KindTextMessage.IsStatus() {
		t.Fatal("text_message is not a status kind")
	}
	for _, k := range []Kind{KindStatusText, KindStatusImage, KindStatusVideo} {
		if !k.IsStatus() {
			t.Fatalf("%s should be a status kind", k)
		}
	}
	if _, media := KindStatusText.MediaKind(); media {
		t.Fatal("status_text is not a media kind")
	}
	if mk, media := KindStatusVideo.MediaKind(); !media || mk != "video" {
		t.Fatalf("status_video media kind = %q, %v", mk, media)
	}
}
