package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vgreer/soundbot/internal/catalog"
	"github.com/vgreer/soundbot/internal/encoder"
	"github.com/vgreer/soundbot/internal/ingest"
	"github.com/vgreer/soundbot/internal/voice"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type MessageCreateHandler = func(*discordgo.Session, *discordgo.MessageCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID)
}

// Uploader runs one media ingestion. Implemented by ingest.Pipeline.
type Uploader interface {
	HandleUpload(ctx context.Context, source ingest.Source, requestedName string, notify ingest.Notifier) (catalog.Effect, error)
}

// DiscordResponder posts replies through the Discord API.
type DiscordResponder struct {
	Session *discordgo.Session
}

func (r *DiscordResponder) Respond(ctx context.Context, channelID, message string) {
	if _, err := r.Session.ChannelMessageSend(channelID, message); err != nil {
		slog.Warn("failed to send channel message", "channelID", channelID, "error", err)
	}
}

var _ Responder = (*DiscordResponder)(nil)

// MakeMessageCreateHandler builds the gateway message handler. Guild
// messages must mention the bot to be considered at all; direct
// messages bypass the router and feed the ingestion pipeline.
func MakeMessageCreateHandler(router *Router, uploader Uploader, downloadTimeout time.Duration) MessageCreateHandler {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		responder := &DiscordResponder{Session: s}
		handleMessage(context.Background(), s.State.User.ID, responder, router, uploader, downloadTimeout, m)
	}
}

// handleMessage is the routing core behind the gateway closure. An
// unaddressed guild message is dropped before anything is dispatched;
// a direct message never reaches the router at all.
func handleMessage(ctx context.Context, botUserID string, responder Responder, router *Router, uploader Uploader, downloadTimeout time.Duration, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == botUserID {
		return
	}

	if m.GuildID == "" {
		handleDirectMessage(ctx, m, uploader, responder, downloadTimeout)
		return
	}

	if !mentionsUser(m.Mentions, botUserID) {
		return
	}

	command, err := ParseContent(stripMentions(m.Content), OriginGuild, m.ChannelID)
	if err != nil {
		responder.Respond(ctx, m.ChannelID, UserMessage(err))
		return
	}

	if err := router.Handle(ctx, command); err != nil {
		slog.Warn("command failed", "verb", command.Verb, "error", err)
		responder.Respond(ctx, m.ChannelID, UserMessage(err))
	}
}

func handleDirectMessage(ctx context.Context, m *discordgo.MessageCreate, uploader Uploader, responder Responder, downloadTimeout time.Duration) {
	source := directMessageSource(m, downloadTimeout)
	if source == nil {
		responder.Respond(ctx, m.ChannelID, "Send an audio attachment or a media URL to add a new effect.")
		return
	}

	name, err := ingest.EffectName(source.Filename())
	if err != nil {
		responder.Respond(ctx, m.ChannelID, UserMessage(err))
		return
	}

	notify := &channelNotifier{responder: responder, channelID: m.ChannelID}
	if _, err := uploader.HandleUpload(ctx, source, name, notify); err != nil {
		slog.Warn("ingestion failed", "name", name, "error", err)
		responder.Respond(ctx, m.ChannelID, UserMessage(err))
	}
}

// directMessageSource picks the upload source from a direct message:
// the first attachment if present, otherwise the first media URL in the
// message text.
func directMessageSource(m *discordgo.MessageCreate, downloadTimeout time.Duration) ingest.Source {
	if len(m.Attachments) > 0 {
		attachment := m.Attachments[0]
		return &ingest.URLSource{
			URL:     attachment.URL,
			Name:    attachment.Filename,
			Timeout: downloadTimeout,
		}
	}

	rawURL, ok := SourceURL(m.Content)
	if !ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return &ingest.URLSource{
		URL:     rawURL,
		Name:    path.Base(parsed.Path),
		Timeout: downloadTimeout,
	}
}

var sourceURLPattern = regexp.MustCompile(`^https?://\S+$`)

// SourceURL returns the first token of content that looks like a media
// URL.
func SourceURL(content string) (string, bool) {
	for _, field := range strings.Fields(content) {
		if sourceURLPattern.MatchString(field) {
			return field, true
		}
	}
	return "", false
}

var mentionPattern = regexp.MustCompile(`<@!?\d+>`)

func stripMentions(content string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(content, " "))
}

func mentionsUser(mentions []*discordgo.User, userID string) bool {
	for _, user := range mentions {
		if user != nil && user.ID == userID {
			return true
		}
	}
	return false
}

// UserMessage converts a typed failure into the notice shown to the
// user. It is the backstop that keeps any error from escaping the
// event loop unexplained.
func UserMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var invalidName *ingest.InvalidNameError
	if errors.As(err, &invalidName) {
		return "That filename does not make a usable effect name."
	}
	var collision *catalog.CollisionError
	if errors.As(err, &collision) {
		return collision.Error()
	}
	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}
	var notReady *voice.NotReadyError
	if errors.As(err, &notReady) {
		return "I'm not connected to a voice channel right now."
	}
	var download *ingest.DownloadError
	if errors.As(err, &download) {
		return "I couldn't download that file."
	}
	var encode *encoder.EncodeError
	if errors.As(err, &encode) {
		return "I couldn't convert that file into an effect."
	}
	return "Something went wrong, try again later."
}

// channelNotifier forwards pipeline progress notices to the channel the
// upload came from.
type channelNotifier struct {
	responder Responder
	channelID string
}

func (n *channelNotifier) Notify(ctx context.Context, message string) {
	n.responder.Respond(ctx, n.channelID, message)
}

var _ ingest.Notifier = (*channelNotifier)(nil)

type Handlers struct {
	Ready         ReadyHandler
	MessageCreate MessageCreateHandler
}

// NewSession creates a configured Discord session with the gateway
// intents the bot needs. Handlers may be added before Open.
func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.MessageCreate != nil {
		s.AddHandler(handlers.MessageCreate)
	}

	return s, nil
}
