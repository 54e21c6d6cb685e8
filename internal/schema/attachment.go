package schema

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// AttachmentKind decides how an attachment is encoded into a request.
type AttachmentKind int

const (
	AttachmentBinary AttachmentKind = iota
	AttachmentImage
	AttachmentPDF
	AttachmentText
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentImage:
		return "image"
	case AttachmentPDF:
		return "pdf"
	case AttachmentText:
		return "text"
	default:
		return "binary"
	}
}

// Attachment is a user-supplied file. Data always holds the decoded bytes.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data,omitempty"`
}

// Size returns the payload size in bytes.
func (a Attachment) Size() int { return len(a.Data) }

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true, ".xml": true,
	".yaml": true, ".yml": true, ".log": true, ".html": true, ".go": true,
	".py": true, ".js": true, ".ts": true,
}

// Kind classifies the attachment by MIME type, falling back to the file
// extension when the MIME type is missing or generic.
func (a Attachment) Kind() AttachmentKind {
	mt := strings.ToLower(strings.TrimSpace(a.MimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return AttachmentImage
	case mt == "application/pdf":
		return AttachmentPDF
	case strings.HasPrefix(mt, "text/"),
		mt == "application/json",
		mt == "application/xml",
		mt == "application/x-yaml":
		return AttachmentText
	}

	ext := strings.ToLower(filepath.Ext(a.Name))
	switch {
	case ext == ".pdf":
		return AttachmentPDF
	case ext == ".png" || ext == ".jpg" || ext == ".jpeg" || ext == ".gif" || ext == ".webp":
		return AttachmentImage
	case textExtensions[ext]:
		return AttachmentText
	}
	return AttachmentBinary
}

// AttachmentFromDataURL decodes a browser-style "data:<mime>;base64,<payload>"
// string. A bare base64 payload without the data: prefix is accepted too.
func AttachmentFromDataURL(name, mimeType, dataURL string) (Attachment, error) {
	payload := dataURL
	if strings.HasPrefix(payload, "data:") {
		header, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return Attachment{}, fmt.Errorf("attachment %s: malformed data URL", name)
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Attachment{}, fmt.Errorf("attachment %s: decode base64: %w", name, err)
	}
	return Attachment{Name: name, MimeType: mimeType, Data: data}, nil
}
