package schema

import (
	"encoding/base64"
	"testing"
)

func TestAttachmentKind(t *testing.T) {
	cases := []struct {
		name string
		mime string
		want AttachmentKind
	}{
		{"photo.png", "image/png", AttachmentImage},
		{"doc.pdf", "application/pdf", AttachmentPDF},
		{"notes.txt", "text/plain; charset=utf-8", AttachmentText},
		{"data.json", "application/json", AttachmentText},
		{"report.pdf", "", AttachmentPDF},
		{"shot.JPG", "application/octet-stream", AttachmentImage},
		{"readme.md", "", AttachmentText},
		{"archive.zip", "application/zip", AttachmentBinary},
	}
	for _, tc := range cases {
		a := Attachment{Name: tc.name, MimeType: tc.mime}
		if got := a.Kind(); got != tc.want {
			t.Errorf("%s (%s): got %v, want %v", tc.name, tc.mime, got, tc.want)
		}
	}
}

func TestAttachmentFromDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))

	a, err := AttachmentFromDataURL("a.txt", "", "data:text/plain;base64,"+payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(a.Data) != "hello" || a.MimeType != "text/plain" {
		t.Errorf("got data=%q mime=%q", a.Data, a.MimeType)
	}

	b, err := AttachmentFromDataURL("b.bin", "application/zip", payload)
	if err != nil {
		t.Fatalf("bare payload: %v", err)
	}
	if b.Size() != 5 {
		t.Errorf("size = %d, want 5", b.Size())
	}

	if _, err := AttachmentFromDataURL("c", "", "data:image/png;base64"); err == nil {
		t.Error("expected error for data URL without payload")
	}
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"":      English,
		"en":    English,
		"hi":    Hindi,
		"hi-IN": Hindi,
		"hi_IN": Hindi,
		"Hindi": Hindi,
		"en-GB": English,
		"fr":    English,
		"???":   English,
	}
	for in, want := range cases {
		if got := ParseLanguage(in); got != want {
			t.Errorf("ParseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewMessage_AssignsID(t *testing.T) {
	a := UserMessage("hi")
	b := UserMessage("hi")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Role != RoleUser || a.Timestamp.IsZero() {
		t.Errorf("unexpected message %+v", a)
	}
}
