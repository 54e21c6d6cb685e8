package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pandaai/panda/internal/schema"
)

func TestSession_TitleFromFirstUserMessage(t *testing.T) {
	s := newSession("cli:direct")
	s.AppendUser("Explain   quantum physics to me like I am five years old", nil)
	s.AppendUser("second", nil)

	if s.Title != "Explain quantum physics to me " {
		t.Errorf("title = %q", s.Title)
	}
	if len([]rune(s.Title)) != 30 {
		t.Errorf("title should be 30 runes, got %d", len([]rune(s.Title)))
	}
}

func TestSession_TitleDefaults(t *testing.T) {
	s := newSession("a")
	s.AppendUser("", []schema.Attachment{{Name: "x.png"}})
	if s.Title != "New Chat" {
		t.Errorf("title = %q", s.Title)
	}

	h := newSession("b")
	h.Language = schema.Hindi
	h.AppendUser("   ", nil)
	if h.Title != "नया चैट" {
		t.Errorf("hindi title = %q", h.Title)
	}
}

func TestSession_UpdateByID(t *testing.T) {
	s := newSession("k")
	s.AppendUser("hi", nil)
	first := s.AppendAssistant("")
	second := s.AppendAssistant("")

	if !s.AppendContent(first.ID, "Hel") || !s.AppendContent(first.ID, "lo") {
		t.Fatal("append to existing message failed")
	}
	s.SetContent(second.ID, "other")

	m, _ := s.Message(first.ID)
	if m.Content != "Hello" {
		t.Errorf("first content = %q", m.Content)
	}
	m, _ = s.Message(second.ID)
	if m.Content != "other" {
		t.Errorf("second content = %q", m.Content)
	}

	s.Clear()
	if s.AppendContent(first.ID, "late") {
		t.Error("update after clear must report false")
	}
}

func TestSession_History(t *testing.T) {
	s := newSession("k")
	for i := 0; i < 6; i++ {
		s.AppendUser(strings.Repeat("x", i+1), nil)
	}
	h := s.History(4)
	if len(h) != 4 || h[0].Content != "xxx" {
		t.Fatalf("unexpected history %+v", h)
	}
	h[0].Content = "mutated"
	if s.History(0)[2].Content != "xxx" {
		t.Error("History must return a copy")
	}
}

func TestManager_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	s := m.GetOrCreate("telegram:42")
	s.Language = schema.Hindi
	s.AppendUser("नमस्ते", []schema.Attachment{{Name: "p.png", MimeType: "image/png", Data: []byte{1, 2, 3}}})
	a := s.AppendAssistant("<b>hello</b>")
	if err := m.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "telegram_42.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), "<b>hello</b>") {
		t.Error("HTML must not be escaped on disk")
	}

	fresh, _ := NewManager(dir)
	loaded := fresh.GetOrCreate("telegram:42")
	if loaded.Len() != 2 || loaded.Title != "नमस्ते" || loaded.Language != schema.Hindi {
		t.Fatalf("loaded session mismatch: len=%d title=%q lang=%q", loaded.Len(), loaded.Title, loaded.Language)
	}
	if msg, ok := loaded.Message(a.ID); !ok || msg.Content != "<b>hello</b>" {
		t.Errorf("assistant message not restored by ID")
	}
	if atts := loaded.History(0)[0].Attachments; len(atts) != 1 || atts[0].Data != nil || atts[0].Name != "p.png" {
		t.Errorf("attachment payloads should be stripped, got %+v", atts)
	}
}

func TestManager_ListAndPrune(t *testing.T) {
	m, _ := NewManager(t.TempDir())

	old := m.GetOrCreate("cli:old")
	old.AppendUser("old", nil)
	old.UpdatedAt = time.Now().Add(-48 * time.Hour)
	if err := m.Save(old); err != nil {
		t.Fatal(err)
	}
	busy := m.GetOrCreate("cli:busy")
	busy.AppendUser("busy", nil)
	busy.UpdatedAt = time.Now().Add(-72 * time.Hour)
	if err := m.Save(busy); err != nil {
		t.Fatal(err)
	}
	recent := m.GetOrCreate("cli:new")
	recent.AppendUser("new", nil)
	if err := m.Save(recent); err != nil {
		t.Fatal(err)
	}

	list := m.List()
	if len(list) != 3 || list[0].Key != "cli:new" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	n, err := m.Prune(time.Now().Add(-24*time.Hour), func(k string) bool { return k == "cli:busy" })
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if len(m.List()) != 2 {
		t.Errorf("expected 2 sessions left, got %d", len(m.List()))
	}
}

func TestSafeFilename(t *testing.T) {
	if got := safeFilename(`a<b>c:d"e/f\g|h?i*j`); got != "a_b_c_d_e_f_g_h_i_j" {
		t.Errorf("safeFilename = %q", got)
	}
}

func TestManager_LoadLongLine(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir)

	long := strings.Repeat("x", 1<<20+10)
	s := m.GetOrCreate("websocket:big")
	s.AppendUser("first", nil)
	s.AppendAssistant("ok")
	s.AppendUser(long, nil)
	s.AppendAssistant("done")
	if err := m.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh, _ := NewManager(dir)
	loaded := fresh.GetOrCreate("websocket:big")
	if loaded.Len() != 4 {
		t.Fatalf("messages after reload = %d, want 4", loaded.Len())
	}
	if got := loaded.History(0)[2].Content; got != long {
		t.Errorf("long message truncated to %d bytes", len(got))
	}

	loaded.AppendUser("again", nil)
	if err := fresh.Save(loaded); err != nil {
		t.Fatalf("Save after reload: %v", err)
	}
	if n := len(fresh.List()); n != 1 {
		t.Errorf("sessions listed = %d", n)
	}
	again, _ := NewManager(dir)
	if n := again.GetOrCreate("websocket:big").Len(); n != 5 {
		t.Errorf("messages on disk after next save = %d, want 5", n)
	}
}

func TestManager_UnreadableFileIsNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir)

	// A directory where the file should be opens fine but fails on read.
	path := filepath.Join(dir, "cli_broken.jsonl")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	s := m.GetOrCreate("cli:broken")
	s.AppendUser("hello", nil)
	if err := m.Save(s); err == nil {
		t.Fatal("Save must refuse to replace a session that could not be read")
	}
	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		t.Errorf("stored path was replaced")
	}
}
