package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/slotbot/slotbot/internal/model"
)

// CLIAdapter is an interactive stdin/stdout surface for local use.
type CLIAdapter struct {
	handler  Handler
	senderID string
	in       io.Reader
	out      io.Writer
	done     chan struct{}
}

func NewCLIAdapter(handler Handler, senderID string) *CLIAdapter {
	if senderID == "" {
		senderID = "local"
	}
	return &CLIAdapter{
		handler:  handler,
		senderID: senderID,
		in:       os.Stdin,
		out:      os.Stdout,
		done:     make(chan struct{}),
	}
}

func (a *CLIAdapter) Name() string {
	return "cli"
}

func (a *CLIAdapter) Start(ctx context.Context) error {
	fmt.Fprintln(a.out, "Type your message, /exit to quit.")
	fmt.Fprint(a.out, "> ")

	scanner := bufio.NewScanner(a.in)
	go func() {
		defer close(a.done)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				fmt.Fprint(a.out, "> ")
				continue
			}
			if line == "/exit" || line == "/quit" {
				fmt.Fprintln(a.out, "Bye.")
				return
			}

			reply := a.handler(ctx, model.IncomingMessage{
				Channel:   "cli",
				SenderID:  a.senderID,
				Text:      line,
				Timestamp: time.Now(),
			})
			fmt.Fprintf(a.out, "\033[32m%s\033[0m\n> ", reply.Text)
		}
	}()

	return nil
}

func (a *CLIAdapter) Stop(ctx context.Context) error {
	return nil
}

// Done closes when the input loop ends, either on /exit or EOF.
func (a *CLIAdapter) Done() <-chan struct{} {
	return a.done
}

func (a *CLIAdapter) Send(ctx context.Context, senderID, text string) error {
	fmt.Fprintf(a.out, "\r\033[K\033[33m%s\033[0m\n> ", text)
	return nil
}

func (a *CLIAdapter) Health(ctx context.Context) error {
	return nil
}
