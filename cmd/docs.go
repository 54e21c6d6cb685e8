package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pandaai/panda/internal/docs"
	"github.com/pandaai/panda/internal/schema"
)

var (
	docsJSON  bool
	solveFile string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Use the document-processing service",
}

func init() {
	docsCmd.PersistentFlags().BoolVar(&docsJSON, "json", false, "Print the raw result as JSON")
	solveCmd.Flags().StringVarP(&solveFile, "image", "i", "", "Image of the question")
	docsCmd.AddCommand(docsImageCmd, solveCmd, youtubeCmd)
}

var docsImageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Summarize an image of notes and generate questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withDocs(func(ctx context.Context, c *docs.Client) error {
			img, err := readAttachment(args[0])
			if err != nil {
				return err
			}
			res, err := c.UploadImage(ctx, img)
			if err != nil {
				return err
			}
			if docsJSON {
				return printJSON(res)
			}
			fmt.Printf("Summary:\n%s\n", res.Summary)
			printMCQs(res.MCQs)
			return nil
		})
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve [question]",
	Short: "Get a step-by-step solution",
	RunE: func(_ *cobra.Command, args []string) error {
		return withDocs(func(ctx context.Context, c *docs.Client) error {
			var img *schema.Attachment
			if solveFile != "" {
				a, err := readAttachment(solveFile)
				if err != nil {
					return err
				}
				img = &a
			}
			res, err := c.SolveQuestion(ctx, strings.Join(args, " "), img)
			if err != nil {
				return err
			}
			if docsJSON {
				return printJSON(res)
			}
			for i, step := range res.Steps {
				fmt.Printf("%d. %s\n", i+1, step)
			}
			if res.FinalAnswer != "" {
				fmt.Printf("\nAnswer: %s\n", res.FinalAnswer)
			}
			return nil
		})
	},
}

var youtubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Generate notes and questions from a YouTube video",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withDocs(func(ctx context.Context, c *docs.Client) error {
			res, err := c.ProcessYouTube(ctx, args[0])
			if err != nil {
				return err
			}
			if docsJSON {
				return printJSON(res)
			}
			fmt.Printf("Video %s\n\nSummary:\n%s\n", docs.ExtractVideoID(args[0]), res.Summary)
			if len(res.Notes) > 0 {
				fmt.Println("\nNotes:")
				for _, n := range res.Notes {
					fmt.Printf("  • %s\n", n)
				}
			}
			printMCQs(res.MCQs)
			return nil
		})
	},
}

func withDocs(fn func(ctx context.Context, c *docs.Client) error) error {
	container, err := newOfflineContainer()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, container.Docs())
}

func printMCQs(mcqs []docs.MCQ) {
	if len(mcqs) == 0 {
		return
	}
	fmt.Println("\nQuestions:")
	for i, q := range mcqs {
		fmt.Printf("%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Printf("   %c) %s\n", 'a'+j, opt)
		}
		if q.Answer != "" {
			fmt.Printf("   Answer: %s\n", q.Answer)
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
