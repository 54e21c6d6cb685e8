// Package session manages per-conversation history stored as JSONL files.
//
// File format:
//
//	Line 1:  {"_type":"metadata","key":"…","title":"…","language":"en",
//	           "created_at":"…","updated_at":"…","metadata":{…}}
//	Line 2+: one JSON message object per line
//
// Attachment bytes are not persisted; only name and MIME type are kept.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pandaai/panda/internal/schema"
)

// Manager loads and persists sessions as JSONL files.
type Manager struct {
	dir   string
	cache sync.Map // key → *Session
}

// Info is the listing summary of one stored session.
type Info struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Path      string    `json:"path"`
}

// NewManager creates a Manager rooted at dir, creating it if necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the storage directory.
func (m *Manager) Dir() string { return m.dir }

// GetOrCreate returns the cached session for key, loading from disk if needed,
// or creating an empty new one.
func (m *Manager) GetOrCreate(key string) *Session {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session)
	}

	s := m.load(key)
	if s == nil {
		s = newSession(key)
	}
	actual, _ := m.cache.LoadOrStore(key, s)
	return actual.(*Session)
}

type metadataLine struct {
	Type      string          `json:"_type"`
	Key       string          `json:"key"`
	Title     string          `json:"title"`
	Language  schema.Language `json:"language,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Metadata  map[string]any  `json:"metadata"`
}

// Save writes the session to disk atomically and updates the cache.
func (m *Manager) Save(s *Session) error {
	if s.readErr != nil {
		return fmt.Errorf("session %s could not be read, not overwriting it: %w", s.Key, s.readErr)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	s.mu.Lock()
	meta := metadataLine{
		Type:      "metadata",
		Key:       s.Key,
		Title:     s.Title,
		Language:  s.Language,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
		Metadata:  s.Metadata,
	}
	msgs := make([]schema.Message, len(s.messages))
	copy(msgs, s.messages)
	s.mu.Unlock()

	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, msg := range msgs {
		if err := enc.Encode(stripPayloads(msg)); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	path := m.sessionPath(s.Key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session %s: %w", path, err)
	}

	m.cache.Store(s.Key, s)
	return nil
}

func stripPayloads(msg schema.Message) schema.Message {
	if len(msg.Attachments) == 0 {
		return msg
	}
	atts := make([]schema.Attachment, len(msg.Attachments))
	for i, a := range msg.Attachments {
		atts[i] = schema.Attachment{Name: a.Name, MimeType: a.MimeType}
	}
	msg.Attachments = atts
	return msg
}

// Delete removes a session from disk and cache. Missing files are not an error.
func (m *Manager) Delete(key string) error {
	m.cache.Delete(key)
	if err := os.Remove(m.sessionPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// List returns summaries of all stored sessions, newest first.
func (m *Manager) List() []Info {
	paths, _ := filepath.Glob(filepath.Join(m.dir, "*.jsonl"))
	out := make([]Info, 0, len(paths))

	for _, path := range paths {
		meta, err := readMetadata(path)
		if err != nil {
			slog.Warn("skipping unreadable session", "path", path, "err", err)
			continue
		}
		info := Info{Key: meta.Key, Title: meta.Title, Path: path}
		if info.Key == "" {
			info.Key = strings.Replace(strings.TrimSuffix(filepath.Base(path), ".jsonl"), "_", ":", 1)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, meta.CreatedAt)
		info.UpdatedAt, _ = time.Parse(time.RFC3339, meta.UpdatedAt)
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Prune deletes sessions whose last update is before cutoff and returns how
// many were removed. skip reports keys that must be kept (e.g. active turns).
func (m *Manager) Prune(cutoff time.Time, skip func(key string) bool) (int, error) {
	removed := 0
	for _, info := range m.List() {
		if !info.UpdatedAt.Before(cutoff) || (skip != nil && skip(info.Key)) {
			continue
		}
		if err := m.Delete(info.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func readMetadata(path string) (metadataLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return metadataLine{}, err
	}
	defer f.Close()

	first, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return metadataLine{}, err
	}
	if len(bytes.TrimSpace(first)) == 0 {
		return metadataLine{}, fmt.Errorf("empty session file")
	}
	var meta metadataLine
	if err := json.Unmarshal(first, &meta); err != nil {
		return metadataLine{}, err
	}
	if meta.Type != "metadata" {
		return metadataLine{}, fmt.Errorf("missing metadata line")
	}
	return meta, nil
}

// ---------------------------------------------------------------------------
// Internal helpers

// sessionPath converts a session key to its JSONL file path.
func (m *Manager) sessionPath(key string) string {
	name := safeFilename(strings.ReplaceAll(key, ":", "_"))
	return filepath.Join(m.dir, name+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// load reads a session from disk, or returns nil when none exists. A file
// that exists but cannot be read yields a session that refuses to be saved,
// so the stored conversation is never overwritten by a partial copy.
func (m *Manager) load(key string) *Session {
	f, err := os.Open(m.sessionPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	s := newSession(key)
	if err != nil {
		slog.Warn("error opening session file", "key", key, "err", err)
		s.readErr = err
		return s
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		raw, err := r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Warn("error reading session file", "key", key, "err", err)
			s.readErr = err
			return s
		}
		if line := bytes.TrimSpace(raw); len(line) > 0 {
			s.decodeLine(line)
		}
		if err != nil {
			return s
		}
	}
}

// decodeLine applies one JSONL record to s.
func (s *Session) decodeLine(line []byte) {
	key := s.Key
	if bytes.Contains(line, []byte(`"_type":"metadata"`)) {
		var meta metadataLine
		if err := json.Unmarshal(line, &meta); err != nil {
			slog.Warn("skipping malformed session metadata", "key", key, "err", err)
			return
		}
		s.Title = meta.Title
		s.Language = meta.Language
		if meta.Metadata != nil {
			s.Metadata = meta.Metadata
		}
		if t, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
			s.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, meta.UpdatedAt); err == nil {
			s.UpdatedAt = t
		}
		return
	}

	var msg schema.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		slog.Warn("skipping malformed session line", "key", key, "err", err)
		return
	}
	s.messages = append(s.messages, msg)
}
