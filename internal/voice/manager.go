// Package voice owns the session to the voice channel: an explicit
// state machine fed by tagged transport events, with playback gated on
// a ready session.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Conn is a live transport connection to a voice channel.
type Conn interface {
	Speaking(flag bool) error
	OpusSend() chan<- []byte
	// Disconnect releases transport listeners and closes the
	// connection. Implementations must be idempotent.
	Disconnect() error
}

// Dialer joins a voice channel. Transport events after a successful
// join are delivered through the events callback.
type Dialer interface {
	Join(ctx context.Context, guildID, channelID string, events func(Event)) (Conn, error)
}

// Player starts playback of a canonical effect file on a connection.
type Player interface {
	Play(ctx context.Context, conn Conn, path string) error
}

// Resolver maps effect names to canonical paths. Implemented by
// catalog.Catalog.
type Resolver interface {
	ResolvePath(name string) (string, error)
}

// ConnectionError reports a failed channel join.
type ConnectionError struct {
	ChannelID string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to voice channel %s: %v", e.ChannelID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

var _ error = (*ConnectionError)(nil)

// NotReadyError reports a playback attempt without a ready session.
type NotReadyError struct {
	Status Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("no ready voice session (status: %s)", e.Status)
}

var _ error = (*NotReadyError)(nil)

type Manager struct {
	dialer   Dialer
	player   Player
	resolver Resolver

	mu        sync.Mutex
	status    Status
	conn      Conn
	guildID   string
	channelID string
}

func NewManager(dialer Dialer, player Player, resolver Resolver) *Manager {
	return &Manager{
		dialer:   dialer,
		player:   player,
		resolver: resolver,
		status:   StatusIdle,
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// HasSession reports whether a transport connection is installed. After
// an EventError the session survives even though the status no longer
// permits playback; after a disconnect or failed join it does not.
func (m *Manager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Connect establishes the session. On failure no session is installed
// and the manager stays eligible for another Connect.
func (m *Manager) Connect(ctx context.Context, guildID, channelID string) error {
	m.mu.Lock()
	switch m.status {
	case StatusIdle, StatusDisconnected:
	default:
		status := m.status
		m.mu.Unlock()
		return &ConnectionError{ChannelID: channelID, Err: fmt.Errorf("connect not allowed while %s", status)}
	}
	m.status = StatusConnecting
	m.mu.Unlock()

	conn, err := m.dialer.Join(ctx, guildID, channelID, m.Apply)
	if err != nil {
		m.mu.Lock()
		m.status = StatusDisconnected
		m.conn = nil
		m.mu.Unlock()
		return &ConnectionError{ChannelID: channelID, Err: err}
	}

	m.mu.Lock()
	if m.status != StatusConnecting {
		// A transport event already tore the join down. Installing the
		// connection now would report Ready on a dead transport.
		status := m.status
		m.mu.Unlock()
		if err := conn.Disconnect(); err != nil {
			slog.Warn("failed to disconnect dropped join", "channelID", channelID, "error", err)
		}
		return &ConnectionError{ChannelID: channelID, Err: fmt.Errorf("transport dropped during join while %s", status)}
	}
	m.conn = conn
	m.guildID = guildID
	m.channelID = channelID
	m.status = StatusReady
	m.mu.Unlock()

	slog.Info("joined voice channel", "guildID", guildID, "channelID", channelID)
	return nil
}

// Play resolves effectName against the catalog and starts playback on
// the current session. It fails with NotReadyError unless the session
// exists and is ready, and returns without waiting for playback to
// finish.
func (m *Manager) Play(ctx context.Context, effectName string) error {
	m.mu.Lock()
	conn, status := m.conn, m.status
	m.mu.Unlock()

	if conn == nil || status != StatusReady {
		return &NotReadyError{Status: status}
	}

	path, err := m.resolver.ResolvePath(effectName)
	if err != nil {
		return err
	}

	go func() {
		if err := m.player.Play(ctx, conn, path); err != nil {
			slog.Error("playback failed", "effect", effectName, "error", err)
		}
	}()
	return nil
}

// Apply is the single transition function of the session state machine.
// It is the only mutator of the session outside Connect.
func (m *Manager) Apply(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Kind {
	case EventDebug:
		slog.Debug("voice transport", "msg", event.Msg)

	case EventConnected:
		if m.conn == nil {
			return
		}
		switch m.status {
		case StatusConnecting, StatusReconnecting, StatusNearly:
			m.status = StatusReady
		}

	case EventReconnecting:
		if m.status == StatusReady {
			m.status = StatusReconnecting
		}

	case EventNearly:
		if m.status == StatusReady || m.status == StatusReconnecting {
			m.status = StatusNearly
		}

	case EventDisconnect, EventFailed:
		if event.Kind == EventFailed {
			slog.Error("voice connection failed", "error", event.Err)
		} else {
			slog.Info("disconnected from voice channel")
		}
		// Full teardown. Idempotent: a second disconnect finds no conn.
		if m.conn != nil {
			if err := m.conn.Disconnect(); err != nil {
				slog.Warn("failed to disconnect voice transport", "error", err)
			}
			m.conn = nil
		}
		m.status = StatusDisconnected

	case EventError:
		slog.Error("voice connection error", "error", event.Err)
		// The transport is shut down but the session reference is kept:
		// a mid-stream error is not a disconnect.
		if m.conn != nil {
			if err := m.conn.Disconnect(); err != nil {
				slog.Warn("failed to disconnect voice transport", "error", err)
			}
		}
		m.status = StatusDisconnected
	}
}
