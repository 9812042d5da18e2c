// Package handler turns inbound chat and console events into actions:
// parsing addressed messages into commands, dispatching them, routing
// direct-message uploads into the ingestion pipeline, and converting
// every typed failure into a user-visible notice.
package handler

import (
	"context"
	"fmt"
	"strings"
)

// Origin distinguishes where a command came from.
type Origin int

const (
	OriginGuild Origin = iota
	OriginDirect
	OriginConsole
)

// Command is one parsed chat or console input. Created per event,
// consumed immediately, never stored.
type Command struct {
	Verb      string
	Args      []string
	Origin    Origin
	ChannelID string
}

// ParseContent splits free text into a Command. The verb is
// lower-cased; empty input is a ValidationError.
func ParseContent(content string, origin Origin, channelID string) (Command, error) {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return Command{}, &ValidationError{Message: "command cannot be empty"}
	}
	return Command{
		Verb:      strings.ToLower(fields[0]),
		Args:      fields[1:],
		Origin:    origin,
		ChannelID: channelID,
	}, nil
}

// Responder posts a text reply toward the originator of a command.
type Responder interface {
	Respond(ctx context.Context, channelID, message string)
}

// Player gates and starts effect playback. Implemented by voice.Manager.
type Player interface {
	Play(ctx context.Context, effectName string) error
}

// Lister enumerates published effects. Implemented by catalog.Catalog.
type Lister interface {
	List() ([]string, error)
}

type Router struct {
	player    Player
	effects   Lister
	responder Responder
	quit      func()
}

// NewRouter wires the dispatch table. quit is invoked by the console
// "quit" command.
func NewRouter(player Player, effects Lister, responder Responder, quit func()) *Router {
	return &Router{
		player:    player,
		effects:   effects,
		responder: responder,
		quit:      quit,
	}
}

const supportedCommands = "Supported commands: play <name>, list, commands, quit"

// Handle dispatches one parsed command. Unrecognized verbs produce an
// unsupported-command notice, never an error; typed failures from the
// dispatch targets are returned to the caller for reporting.
func (r *Router) Handle(ctx context.Context, cmd Command) error {
	if cmd.Verb == "" {
		return &ValidationError{Message: "command cannot be empty"}
	}

	if cmd.Origin == OriginConsole {
		switch cmd.Verb {
		case "quit":
			r.quit()
			return nil
		case "commands", "cmds":
			r.responder.Respond(ctx, cmd.ChannelID, supportedCommands)
			return nil
		}
	}

	switch cmd.Verb {
	case "play":
		if len(cmd.Args) == 0 {
			return &ValidationError{Message: "play requires an effect name"}
		}
		return r.player.Play(ctx, cmd.Args[0])

	case "list":
		names, err := r.effects.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			r.responder.Respond(ctx, cmd.ChannelID, "No effects available yet.")
			return nil
		}
		r.responder.Respond(ctx, cmd.ChannelID, "Available effects: "+strings.Join(names, ", "))
		return nil

	default:
		r.responder.Respond(ctx, cmd.ChannelID, fmt.Sprintf("This bot does not support the %q command.", cmd.Verb))
		return nil
	}
}
