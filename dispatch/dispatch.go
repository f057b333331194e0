package dispatch

import (
	"context"
	"unicode/utf8"

	"github.com/nijaru/yt-summary/errors"
	"github.com/sirupsen/logrus"
)

// MessageLimit is the platform's maximum message length in characters.
const MessageLimit = 2000

// Sender delivers a single message to a channel.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// Dispatcher sends text of any length to a channel.
type Dispatcher struct {
	sender Sender
	limit  int
}

func New(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender, limit: MessageLimit}
}

// Send delivers content to channelID, split into limit-sized chunks sent in
// order. It stops at the first failed chunk. Empty content is not sent.
func (d *Dispatcher) Send(ctx context.Context, channelID, content string) error {
	const op = "Dispatcher.Send"

	chunks := Split(content, d.limit)
	for i, chunk := range chunks {
		if err := d.sender.SendMessage(ctx, channelID, chunk); err != nil {
			logrus.WithFields(logrus.Fields{
				"channel_id": channelID,
				"chunk":      i + 1,
				"chunks":     len(chunks),
			}).WithError(err).Error("Failed to send message chunk")
			if ctx.Err() != nil {
				return errors.FromContext(op, ctx.Err(), "Message delivery timed out")
			}
			return errors.Internal(op, err, "Failed to send message")
		}
	}

	if len(chunks) > 1 {
		logrus.WithFields(logrus.Fields{
			"channel_id": channelID,
			"chunks":     len(chunks),
		}).Debug("Sent chunked message")
	}
	return nil
}

// Split cuts content into consecutive pieces of at most limit characters.
// Boundaries are positional and ignore words and lines.
func Split(content string, limit int) []string {
	if content == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(content) <= limit {
		return []string{content}
	}

	chunks := make([]string, 0, utf8.RuneCountInString(content)/limit+1)
	count, start := 0, 0
	for i := range content {
		if count == limit {
			chunks = append(chunks, content[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, content[start:])
}
