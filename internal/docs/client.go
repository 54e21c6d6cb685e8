// Package docs talks to the document-processing service: image summaries
// with quiz questions, question solving and YouTube notes.
package docs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pandaai/panda/internal/schema"
)

const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultMaxUploadBytes = 5 << 20
	maxResponseBytes      = 8 << 20
)

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// MCQ is one multiple-choice question.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Summary is the result of processing an uploaded image.
type Summary struct {
	Summary string `json:"summary"`
	MCQs    []MCQ  `json:"mcqs"`
}

// Solution is a worked answer. Older service versions return the whole
// solution as one text block, which lands in Steps[0].
type Solution struct {
	Steps       []string `json:"steps"`
	FinalAnswer string   `json:"final_answer"`
}

// VideoNotes is the result of processing a YouTube link.
type VideoNotes struct {
	Summary string   `json:"summary"`
	MCQs    []MCQ    `json:"mcqs"`
	Notes   []string `json:"notes"`
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	MaxUploadBytes int64
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client is an HTTP client for the document service.
type Client struct {
	baseURL   string
	maxUpload int64
	http      *http.Client
}

// NewClient creates a Client. Zero values in opts fall back to defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, maxUpload: opts.MaxUploadBytes, http: hc}
}

// UploadImage sends an image of notes or a textbook page and returns its
// summary plus generated questions.
func (c *Client) UploadImage(ctx context.Context, img schema.Attachment) (*Summary, error) {
	if err := c.checkImage(img); err != nil {
		return nil, err
	}
	body, contentType, err := multipartBody(nil, &img)
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, "/upload-image", contentType, body)
	if err != nil {
		return nil, err
	}
	root := gjson.ParseBytes(raw)
	return &Summary{
		Summary: root.Get("summary").String(),
		MCQs:    parseMCQs(root.Get("mcqs")),
	}, nil
}

// SolveQuestion asks for a step-by-step solution. Either question text or an
// image of the question (or both) must be given.
func (c *Client) SolveQuestion(ctx context.Context, question string, img *schema.Attachment) (*Solution, error) {
	question = strings.TrimSpace(question)
	if question == "" && img == nil {
		return nil, schema.NewError(schema.ErrBadRequest, "provide a question text or image")
	}
	if img != nil {
		if err := c.checkImage(*img); err != nil {
			return nil, err
		}
	}
	body, contentType, err := multipartBody(map[string]string{"question": question}, img)
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, "/solve-question", contentType, body)
	if err != nil {
		return nil, err
	}

	sol := gjson.GetBytes(raw, "solution")
	if !sol.IsObject() {
		return &Solution{Steps: []string{sol.String()}}, nil
	}
	return &Solution{
		Steps:       stringList(sol.Get("steps")),
		FinalAnswer: sol.Get("final_answer").String(),
	}, nil
}

// ProcessYouTube generates notes, a summary and questions from a video's
// transcript.
func (c *Client) ProcessYouTube(ctx context.Context, url string) (*VideoNotes, error) {
	url = strings.TrimSpace(url)
	if !ValidateYouTubeURL(url) {
		return nil, schema.NewError(schema.ErrBadRequest, "invalid YouTube URL %q", url)
	}
	payload, err := jsonBody(map[string]any{"url": url})
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, "/youtube-process", "application/json", payload)
	if err != nil {
		return nil, err
	}
	root := gjson.ParseBytes(raw)
	return &VideoNotes{
		Summary: root.Get("summary").String(),
		MCQs:    parseMCQs(root.Get("mcqs")),
		Notes:   stringList(root.Get("notes")),
	}, nil
}

func (c *Client) checkImage(img schema.Attachment) error {
	if int64(img.Size()) > c.maxUpload {
		return schema.NewError(schema.ErrPayloadTooLarge, "%s is %d bytes, limit is %d", img.Name, img.Size(), c.maxUpload)
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(img.Name))] {
		return schema.NewError(schema.ErrBadRequest, "invalid file type %q, only jpg and png are allowed", img.Name)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		kind := schema.ErrNetwork
		if ctx.Err() != nil {
			kind = schema.ErrCanceled
		}
		return nil, &schema.Error{Kind: kind, Message: "document service unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &schema.Error{Kind: schema.ErrNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &schema.Error{Kind: schema.KindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}
	// Some failures come back as 200 with an error field.
	if msg := gjson.GetBytes(raw, "error").String(); msg != "" {
		return nil, &schema.Error{Kind: schema.ErrBadRequest, Status: resp.StatusCode, Message: msg}
	}
	if !gjson.ValidBytes(raw) {
		return nil, schema.NewError(schema.ErrServer, "document service returned invalid JSON")
	}
	return raw, nil
}

func multipartBody(fields map[string]string, img *schema.Attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if img != nil {
		part, err := w.CreateFormFile("image", filepath.Base(img.Name))
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("write image part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func parseMCQs(v gjson.Result) []MCQ {
	var out []MCQ
	for _, q := range v.Array() {
		out = append(out, MCQ{
			Question: q.Get("question").String(),
			Options:  stringList(q.Get("options")),
			Answer:   q.Get("answer").String(),
		})
	}
	return out
}

// stringList accepts either an array of strings or a single string.
func stringList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		if s := v.String(); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}
