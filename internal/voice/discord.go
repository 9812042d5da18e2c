package voice

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// DiscordDialer joins voice channels through a discordgo session and
// translates gateway voice-state updates into transport events.
type DiscordDialer struct {
	Session *discordgo.Session
}

func (d *DiscordDialer) Join(ctx context.Context, guildID, channelID string, events func(Event)) (Conn, error) {
	vc, err := d.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}

	conn := &discordConn{vc: vc}
	conn.removeListener = d.Session.AddHandler(func(s *discordgo.Session, update *discordgo.VoiceStateUpdate) {
		if update.UserID != s.State.User.ID || update.GuildID != guildID {
			return
		}
		if update.ChannelID == "" {
			events(Event{Kind: EventDisconnect})
		}
	})
	return conn, nil
}

var _ Dialer = (*DiscordDialer)(nil)

type discordConn struct {
	vc             *discordgo.VoiceConnection
	removeListener func()
	once           sync.Once
}

func (c *discordConn) Speaking(flag bool) error {
	return c.vc.Speaking(flag)
}

func (c *discordConn) OpusSend() chan<- []byte {
	return c.vc.OpusSend
}

func (c *discordConn) Disconnect() error {
	var err error
	c.once.Do(func() {
		if c.removeListener != nil {
			c.removeListener()
		}
		err = c.vc.Disconnect()
	})
	return err
}

var _ Conn = (*discordConn)(nil)
