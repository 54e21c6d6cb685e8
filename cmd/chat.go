package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pandaai/panda/internal/chat"
	"github.com/pandaai/panda/internal/dependency"
	"github.com/pandaai/panda/internal/prompt"
	"github.com/pandaai/panda/internal/schema"
)

var (
	chatMessage string
	chatSession string
	chatModel   string
	chatLang    string
	chatAttach  []string
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"agent"},
	Short:   "Chat with Panda AI",
	RunE:    runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:direct", "Session key")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model ID (default from config)")
	chatCmd.Flags().StringVar(&chatLang, "lang", "", "Reply language: en or hi")
	chatCmd.Flags().StringSliceVarP(&chatAttach, "attach", "a", nil, "Files to attach to the message")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// chatREPL holds the interactive state between lines.
type chatREPL struct {
	turns   *chat.TurnService
	fetcher *prompt.PageFetcher
	session string
	model   string
	lang    schema.Language
	pending []schema.Attachment
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	container.Builder().OnProgress(func(name string, page, total int) {
		fmt.Fprintf(os.Stderr, "  ↳ reading %s (%d/%d)\n", name, page, total)
	})

	r := &chatREPL{
		turns:   container.Turns(),
		fetcher: prompt.NewPageFetcher(0),
		session: chatSession,
		model:   chatModel,
	}
	if chatLang != "" {
		r.lang = schema.ParseLanguage(chatLang)
	}
	if container.Client().MockEnabled() {
		fmt.Fprintf(os.Stderr, "  (mock mode: replies are canned, no API calls are made)\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, path := range chatAttach {
		a, err := readAttachment(path)
		if err != nil {
			return err
		}
		r.pending = append(r.pending, a)
	}

	if chatMessage != "" {
		_, err := r.send(ctx, chatMessage)
		return err
	}
	return r.interactive(ctx)
}

func (r *chatREPL) interactive(ctx context.Context) error {
	fmt.Printf("%s Interactive mode (type /help for commands, 'exit' or Ctrl+C to quit)\n\n", logo)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("You: ")
		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		}

		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}
		if r.command(ctx, line) {
			continue
		}
		if _, err := r.send(ctx, line); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// command handles REPL-only slash commands. It reports whether line was one.
func (r *chatREPL) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/help":
		fmt.Println(`Commands:
  /new            start a new chat
  /attach <file>  attach a file to your next message
  /fetch <url>    attach the readable text of a web page
  /model <id>     switch model (empty = default)
  /lang <en|hi>   switch reply language
  exit            quit`)
	case "/new":
		if err := r.turns.Reset(r.session); err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
			return true
		}
		r.pending = nil
		fmt.Println("  ✓ New chat started")
	case "/attach":
		a, err := readAttachment(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
			return true
		}
		r.pending = append(r.pending, a)
		fmt.Printf("  ✓ attached %s (%s, %d bytes)\n", a.Name, a.Kind(), a.Size())
	case "/fetch":
		a, err := r.fetcher.Fetch(ctx, arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
			return true
		}
		r.pending = append(r.pending, a)
		fmt.Printf("  ✓ attached %s (%d bytes of text)\n", a.Name, a.Size())
	case "/model":
		r.model = arg
		fmt.Printf("  ✓ model: %s\n", orDefault(arg, "(default)"))
	case "/lang":
		r.lang = schema.ParseLanguage(arg)
		fmt.Printf("  ✓ language: %s\n", r.lang.Name())
	default:
		return false
	}
	return true
}

// send runs one turn, streaming the reply to stdout.
func (r *chatREPL) send(ctx context.Context, text string) (chat.TurnResult, error) {
	atts := r.pending
	r.pending = nil

	fmt.Printf("\n%s Panda AI\n", logo)
	streamed := false
	res, err := r.turns.Send(ctx, chat.TurnInput{
		SessionKey:  r.session,
		Text:        text,
		Attachments: atts,
		Language:    r.lang,
		Model:       r.model,
	}, func(frag string) {
		streamed = true
		fmt.Print(frag)
	})

	switch {
	case err != nil && streamed:
		fmt.Printf("\n%s\n\n", res.Text)
	case err != nil || !streamed:
		fmt.Printf("%s\n\n", res.Text)
	default:
		fmt.Print("\n\n")
	}
	if err != nil && !errors.Is(err, chat.ErrTurnActive) {
		return res, err
	}
	return res, nil
}

// readAttachment loads a local file, guessing its MIME type from the
// extension and then the content.
func readAttachment(path string) (schema.Attachment, error) {
	if path == "" {
		return schema.Attachment{}, fmt.Errorf("usage: /attach <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return schema.Attachment{Name: name, MimeType: mimeType, Data: data}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
