package cadenza

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/harmonyshop/cadenza/internal/presentation/tui"
)

// ContentRenderer transforms assistant output before printing. This lets a
// TUI render markdown to ANSI without coupling the core package to it.
type ContentRenderer func(string) (string, error)

// Runner drives the interactive chat loop over provided IO, which keeps it
// testable and usable from different frontends.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	ThreadID string
	Renderer ContentRenderer
	Headless bool
}

// NewRunner creates a Runner with a fresh thread id. The caller must set
// Input and Output (typically os.Stdin and os.Stdout).
func NewRunner() *Runner {
	return &Runner{
		ThreadID: uuid.NewString(),
	}
}

// Run reads user lines and feeds them to the engine until EOF or an exit
// command. Pending prompts are shown with their choices; the next line
// answers them.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintln(r.Output, "Type a message, or 'exit' to quit.")
	}

	for {
		fmt.Fprint(r.Output, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}

		result, err := engine.Submit(ctx, r.ThreadID, input)
		if err != nil {
			return fmt.Errorf("turn error: %w", err)
		}
		r.print(tui.FormatOutbox(result.Outbox))
		if result.Prompt != nil {
			r.print(tui.FormatPrompt(*result.Prompt))
		}
	}
}

func (r *Runner) print(msg string) {
	if msg == "" {
		return
	}
	if r.Renderer != nil {
		if rendered, err := r.Renderer(msg); err == nil {
			msg = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(msg))
}
