package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/dispatch"
	"github.com/nijaru/yt-summary/errors"
	"github.com/sirupsen/logrus"
)

const intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent | discordgo.IntentsGuildMembers

// Bot connects a discordgo session to a command router. It also implements
// dispatch.Sender so handlers can post to any channel.
type Bot struct {
	session *discordgo.Session
	router  *command.Router
	logger  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

func New(token string, router *command.Router, logger *logrus.Logger) (*Bot, error) {
	const op = "discord.New"

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to create Discord session")
	}
	session.Identify.Intents = intents

	return newBot(session, router, logger), nil
}

func newBot(session *discordgo.Session, router *command.Router, logger *logrus.Logger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session: session,
		router:  router,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	return b
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	const op = "Bot.Open"
	if err := b.session.Open(); err != nil {
		return errors.Internal(op, err, "Failed to open Discord session")
	}
	return nil
}

// Shutdown stops accepting commands, cancels in-flight invocations and waits
// for them until ctx is done, then closes the session.
func (b *Bot) Shutdown(ctx context.Context) error {
	const op = "Bot.Shutdown"

	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = errors.FromContext(op, ctx.Err(), "In-flight commands did not finish")
	}

	if err := b.session.Close(); err != nil {
		return errors.Internal(op, err, "Failed to close Discord session")
	}
	return waitErr
}

// SendMessage posts content to a channel.
func (b *Bot) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.WithFields(logrus.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("Connected to Discord")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	var selfID string
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	b.handle(selfID, m.Message)
}

// handle runs the command carried by msg, if any, on the caller's goroutine.
func (b *Bot) handle(selfID string, msg *discordgo.Message) {
	inv, ok := b.invocation(selfID, msg)
	if !ok {
		return
	}

	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return
	}
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	if _, err := b.router.Dispatch(b.ctx, inv); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"invocation_id": inv.ID,
			"command":       inv.Name,
			"kind":          errors.KindOf(err).String(),
		}).Error("Command failed")
	}
}

// invocation converts a chat message into a command invocation. Messages from
// bots, from this bot, and without the command prefix are skipped.
func (b *Bot) invocation(selfID string, msg *discordgo.Message) (*command.Invocation, bool) {
	if msg == nil || msg.Author == nil {
		return nil, false
	}
	if msg.Author.Bot || msg.Author.ID == selfID {
		return nil, false
	}

	name, args, ok := b.router.Parse(msg.Content)
	if !ok {
		return nil, false
	}

	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return &command.Invocation{
		ID:         msg.ID,
		ChannelID:  msg.ChannelID,
		GuildID:    msg.GuildID,
		AuthorID:   msg.Author.ID,
		AuthorName: msg.Author.Username,
		Name:       name,
		Args:       args,
		ReceivedAt: receivedAt.UTC(),
		Responder: &channelResponder{
			dispatcher: dispatch.New(b),
			channelID:  msg.ChannelID,
		},
	}, true
}

type channelResponder struct {
	dispatcher *dispatch.Dispatcher
	channelID  string
}

func (r *channelResponder) Reply(ctx context.Context, content string) error {
	return r.dispatcher.Send(ctx, r.channelID, content)
}
