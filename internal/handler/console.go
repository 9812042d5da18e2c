package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ConsoleResponder writes replies for console-origin commands.
type ConsoleResponder struct {
	Out io.Writer
}

func (r *ConsoleResponder) Respond(ctx context.Context, channelID, message string) {
	fmt.Fprintln(r.Out, message)
}

var _ Responder = (*ConsoleResponder)(nil)

// SplitResponder routes replies with no channel to the console and
// everything else through chat.
type SplitResponder struct {
	Chat    Responder
	Console Responder
}

func (r *SplitResponder) Respond(ctx context.Context, channelID, message string) {
	if channelID == "" {
		r.Console.Respond(ctx, channelID, message)
		return
	}
	r.Chat.Respond(ctx, channelID, message)
}

var _ Responder = (*SplitResponder)(nil)

// RunConsole reads administrative commands from input line by line
// until EOF or context cancellation and dispatches them with console
// origin.
func RunConsole(ctx context.Context, router *Router, input io.Reader) error {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, err := ParseContent(line, OriginConsole, "")
		if err != nil {
			slog.Warn("invalid console input", "error", err)
			continue
		}

		if err := router.Handle(ctx, command); err != nil {
			slog.Warn("console command failed", "verb", command.Verb, "error", err)
		}
	}
	return scanner.Err()
}
