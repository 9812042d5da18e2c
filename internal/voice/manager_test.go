package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu          sync.Mutex
	disconnects int
	speaking    []bool
	send        chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{send: make(chan []byte, 16)}
}

func (c *fakeConn) Speaking(flag bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = append(c.speaking, flag)
	return nil
}

func (c *fakeConn) OpusSend() chan<- []byte {
	return c.send
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

type fakeDialer struct {
	conn *fakeConn
	err  error

	// fireDuringJoin is delivered through the event callback before
	// Join returns, like a gateway event racing the join handshake.
	fireDuringJoin []Event

	joins int
}

func (d *fakeDialer) Join(ctx context.Context, guildID, channelID string, events func(Event)) (Conn, error) {
	d.joins++
	if d.err != nil {
		return nil, d.err
	}
	for _, event := range d.fireDuringJoin {
		events(event)
	}
	return d.conn, nil
}

type fakePlayer struct {
	mu    sync.Mutex
	calls int
	paths []string
	done  chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{done: make(chan struct{}, 16)}
}

func (p *fakePlayer) Play(ctx context.Context, conn Conn, path string) error {
	p.mu.Lock()
	p.calls++
	p.paths = append(p.paths, path)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *fakePlayer) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeResolver struct {
	paths map[string]string
}

func (r *fakeResolver) ResolvePath(name string) (string, error) {
	path, ok := r.paths[name]
	if !ok {
		return "", errors.New("no such effect")
	}
	return path, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeDialer, *fakePlayer) {
	t.Helper()
	dialer := &fakeDialer{conn: newFakeConn()}
	player := newFakePlayer()
	resolver := &fakeResolver{paths: map[string]string{"boop": "/effects/boop.wav"}}
	return NewManager(dialer, player, resolver), dialer, player
}

func connect(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.Connect(context.Background(), "guild", "channel"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
}

func TestConnectMovesToReady(t *testing.T) {
	m, _, _ := newTestManager(t)

	if m.Status() != StatusIdle {
		t.Fatalf("initial status = %s, want idle", m.Status())
	}
	connect(t, m)
	if m.Status() != StatusReady {
		t.Errorf("status = %s, want ready", m.Status())
	}
	if !m.HasSession() {
		t.Error("HasSession() = false after connect")
	}
}

func TestConnectFailureInstallsNoSession(t *testing.T) {
	m, dialer, _ := newTestManager(t)
	dialer.err = errors.New("join refused")

	err := m.Connect(context.Background(), "guild", "channel")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if m.HasSession() {
		t.Error("HasSession() = true after failed connect")
	}

	// The manager stays eligible for another attempt.
	dialer.err = nil
	connect(t, m)
	if m.Status() != StatusReady {
		t.Errorf("status after retry = %s, want ready", m.Status())
	}
}

func TestConnectAbortsWhenTransportDropsDuringJoin(t *testing.T) {
	m, dialer, _ := newTestManager(t)
	dialer.fireDuringJoin = []Event{{Kind: EventDisconnect}}

	err := m.Connect(context.Background(), "guild", "channel")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if m.Status() != StatusDisconnected {
		t.Errorf("status = %s, want disconnected", m.Status())
	}
	if m.HasSession() {
		t.Error("HasSession() = true after dropped join")
	}
	if got := dialer.conn.disconnectCount(); got != 1 {
		t.Errorf("disconnectCount = %d, want 1 for the abandoned connection", got)
	}

	// The manager stays eligible for another attempt.
	dialer.fireDuringJoin = nil
	connect(t, m)
	if m.Status() != StatusReady {
		t.Errorf("status after retry = %s, want ready", m.Status())
	}
}

func TestPlayRequiresReadySession(t *testing.T) {
	statuses := []Status{StatusIdle, StatusConnecting, StatusReconnecting, StatusNearly, StatusDisconnected}

	for _, status := range statuses {
		t.Run(status.String(), func(t *testing.T) {
			m, dialer, player := newTestManager(t)
			connect(t, m)
			m.mu.Lock()
			m.status = status
			m.mu.Unlock()

			err := m.Play(context.Background(), "boop")
			var notReady *NotReadyError
			if !errors.As(err, &notReady) {
				t.Fatalf("expected NotReadyError, got %v", err)
			}
			if notReady.Status != status {
				t.Errorf("NotReadyError.Status = %s, want %s", notReady.Status, status)
			}
			if player.callCount() != 0 {
				t.Error("player must not be invoked without a ready session")
			}
			_ = dialer
		})
	}
}

func TestPlayWithoutSession(t *testing.T) {
	m, _, player := newTestManager(t)

	err := m.Play(context.Background(), "boop")
	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if player.callCount() != 0 {
		t.Error("player must not be invoked without a session")
	}
}

func TestPlayStartsPlayback(t *testing.T) {
	m, _, player := newTestManager(t)
	connect(t, m)

	if err := m.Play(context.Background(), "boop"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	select {
	case <-player.done:
	case <-time.After(time.Second):
		t.Fatal("playback never started")
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if len(player.paths) != 1 || player.paths[0] != "/effects/boop.wav" {
		t.Errorf("played paths = %v, want [/effects/boop.wav]", player.paths)
	}
}

func TestPlayUnknownEffect(t *testing.T) {
	m, _, player := newTestManager(t)
	connect(t, m)

	if err := m.Play(context.Background(), "ghost"); err == nil {
		t.Fatal("expected resolver error")
	}
	if player.callCount() != 0 {
		t.Error("player must not be invoked for an unknown effect")
	}
}

func TestDisconnectTearsDownSession(t *testing.T) {
	m, dialer, _ := newTestManager(t)
	connect(t, m)

	m.Apply(Event{Kind: EventDisconnect})

	if m.Status() != StatusDisconnected {
		t.Errorf("status = %s, want disconnected", m.Status())
	}
	if m.HasSession() {
		t.Error("session must be released on disconnect")
	}
	if dialer.conn.disconnectCount() != 1 {
		t.Errorf("transport disconnects = %d, want 1", dialer.conn.disconnectCount())
	}

	// Idempotent: a second disconnect finds nothing to tear down.
	m.Apply(Event{Kind: EventDisconnect})
	if dialer.conn.disconnectCount() != 1 {
		t.Errorf("transport disconnects after repeat = %d, want 1", dialer.conn.disconnectCount())
	}
}

func TestFailedBehavesLikeDisconnect(t *testing.T) {
	m, dialer, _ := newTestManager(t)
	connect(t, m)

	m.Apply(Event{Kind: EventFailed, Err: errors.New("resume failed")})

	if m.Status() != StatusDisconnected {
		t.Errorf("status = %s, want disconnected", m.Status())
	}
	if m.HasSession() {
		t.Error("session must be released on failed join")
	}
	if dialer.conn.disconnectCount() != 1 {
		t.Errorf("transport disconnects = %d, want 1", dialer.conn.disconnectCount())
	}
}

func TestErrorKeepsSessionReference(t *testing.T) {
	m, dialer, player := newTestManager(t)
	connect(t, m)

	m.Apply(Event{Kind: EventError, Err: errors.New("udp stream broke")})

	if dialer.conn.disconnectCount() != 1 {
		t.Errorf("transport disconnects = %d, want 1", dialer.conn.disconnectCount())
	}
	// The asymmetry with disconnect: the reference survives the error...
	if !m.HasSession() {
		t.Error("session reference must survive a transport error")
	}
	// ...but playback is still rejected.
	err := m.Play(context.Background(), "boop")
	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if player.callCount() != 0 {
		t.Error("player must not be invoked after a transport error")
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name  string
		from  Status
		event EventKind
		want  Status
	}{
		{name: "connecting confirms ready", from: StatusConnecting, event: EventConnected, want: StatusReady},
		{name: "ready drops to reconnecting", from: StatusReady, event: EventReconnecting, want: StatusReconnecting},
		{name: "reconnecting nearly back", from: StatusReconnecting, event: EventNearly, want: StatusNearly},
		{name: "nearly confirms ready", from: StatusNearly, event: EventConnected, want: StatusReady},
		{name: "reconnecting confirms ready", from: StatusReconnecting, event: EventConnected, want: StatusReady},
		{name: "debug never transitions", from: StatusReady, event: EventDebug, want: StatusReady},
		{name: "idle ignores reconnecting", from: StatusIdle, event: EventReconnecting, want: StatusIdle},
		{name: "ready disconnects", from: StatusReady, event: EventDisconnect, want: StatusDisconnected},
		{name: "nearly fails", from: StatusNearly, event: EventFailed, want: StatusDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(t)
			connect(t, m)
			m.mu.Lock()
			m.status = tt.from
			m.mu.Unlock()

			m.Apply(Event{Kind: tt.event, Msg: "x"})

			if got := m.Status(); got != tt.want {
				t.Errorf("apply(%s) from %s = %s, want %s", tt.event, tt.from, got, tt.want)
			}
		})
	}
}
