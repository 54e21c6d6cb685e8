// Package prompt builds provider-neutral completion requests from a
// conversation, the user's language and any attached files.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/schema"
)

const (
	DefaultHistoryWindow = 4
	DefaultMaxImageBytes = 4 << 20
)

// Options holds the fixed generation parameters.
type Options struct {
	HistoryWindow int
	Temperature   float64
	TopP          float64
	MaxTokens     int
	MaxImageBytes int64
}

// ProgressFunc is told about PDF extraction progress.
type ProgressFunc func(name string, page, total int)

// Builder turns history plus attachments into a CompletionRequest.
// Build has no side effects beyond the optional progress callback.
type Builder struct {
	opts     Options
	pdf      PDFExtractor
	progress ProgressFunc
}

// NewBuilder creates a Builder. A nil extractor selects PlainPDF.
func NewBuilder(opts Options, pdf PDFExtractor) *Builder {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if pdf == nil {
		pdf = PlainPDF{}
	}
	return &Builder{opts: opts, pdf: pdf}
}

// OnProgress registers a PDF progress callback.
func (b *Builder) OnProgress(fn ProgressFunc) { b.progress = fn }

// Build selects the last HistoryWindow messages, prepends the localized
// persona and encodes attachments into the most recent user message.
//
// An image larger than MaxImageBytes fails with ErrPayloadTooLarge before
// anything is sent.
func (b *Builder) Build(history []schema.Message, lang schema.Language, attachments []schema.Attachment, model string) (providers.CompletionRequest, error) {
	window := history
	if len(window) > b.opts.HistoryWindow {
		window = window[len(window)-b.opts.HistoryWindow:]
	}

	msgs := make([]providers.Message, 0, len(window)+2)
	msgs = append(msgs, providers.Message{
		Role:  schema.RoleSystem,
		Parts: []providers.Part{providers.TextPart(Persona(lang))},
	})
	for _, m := range window {
		msgs = append(msgs, providers.Message{
			Role:  m.Role,
			Parts: []providers.Part{providers.TextPart(m.Content)},
		})
	}

	if len(attachments) > 0 {
		last := len(msgs) - 1
		text := ""
		if msgs[last].Role == schema.RoleUser {
			text = msgs[last].Text()
		} else {
			msgs = append(msgs, providers.Message{Role: schema.RoleUser})
			last++
		}
		parts, err := b.encodeAttachments(text, lang, attachments)
		if err != nil {
			return providers.CompletionRequest{}, err
		}
		msgs[last].Parts = parts
	}

	return providers.CompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: b.opts.Temperature,
		TopP:        b.opts.TopP,
		MaxTokens:   b.opts.MaxTokens,
	}, nil
}

func (b *Builder) encodeAttachments(text string, lang schema.Language, attachments []schema.Attachment) ([]providers.Part, error) {
	if strings.TrimSpace(text) == "" {
		text = defaultAttachmentPrompt(lang)
	}
	parts := []providers.Part{providers.TextPart(text)}

	for _, a := range attachments {
		switch a.Kind() {
		case schema.AttachmentImage:
			if int64(a.Size()) > b.opts.MaxImageBytes {
				return nil, &schema.Error{
					Kind:    schema.ErrPayloadTooLarge,
					Message: fmt.Sprintf("image %s is %d bytes, limit is %d", a.Name, a.Size(), b.opts.MaxImageBytes),
				}
			}
			parts = append(parts, providers.InlinePart(a.MimeType, a.Data))
		case schema.AttachmentPDF:
			parts = append(parts, providers.TextPart("\n\n"+b.pdfText(a)))
		case schema.AttachmentText:
			parts = append(parts, providers.TextPart(fmt.Sprintf("\n\nUploaded file (%s):\n%s", a.Name, decodeText(a.Data))))
		default:
			parts = append(parts, providers.TextPart(fmt.Sprintf("\n\n[Attached file: %s (%s), binary content not included]", a.Name, mimeOrUnknown(a.MimeType))))
		}
	}
	return parts, nil
}

// pdfText extracts the document, or returns a placeholder notice when the
// extraction fails so the rest of the request still goes out.
func (b *Builder) pdfText(a schema.Attachment) string {
	var progress func(page, total int)
	if b.progress != nil {
		progress = func(page, total int) { b.progress(a.Name, page, total) }
	}

	pages, err := b.pdf.ExtractPages(a.Data, progress)
	body := strings.TrimSpace(strings.Join(nonEmpty(pages), "\n\n"))
	if err != nil || body == "" {
		slog.Warn("pdf extraction failed", "file", a.Name, "err", err)
		return fmt.Sprintf("[Could not extract text from PDF %s]", a.Name)
	}
	return fmt.Sprintf("Extracted PDF Content (%s):\n%s", a.Name, body)
}

func nonEmpty(pages []string) []string {
	out := pages[:0:0]
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func mimeOrUnknown(m string) string {
	if m == "" {
		return "unknown type"
	}
	return m
}
