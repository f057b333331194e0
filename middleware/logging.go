package middleware

import (
	"context"
	"time"

	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/errors"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	InvocationIDKey contextKey = "invocation_id"
	LoggerKey       contextKey = "logger"
)

// Logging stores an invocation-scoped logger in the context and logs the
// start and outcome of every command.
func Logging(logger *logrus.Logger) Middleware {
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
			start := time.Now()

			id := GetInvocationID(ctx)
			if id == "" {
				id = inv.ID
			}
			entry := logger.WithFields(logrus.Fields{
				"invocation_id": id,
				"command":       inv.Name,
				"channel_id":    inv.ChannelID,
				"author_id":     inv.AuthorID,
			})
			ctx = context.WithValue(ctx, LoggerKey, entry)

			entry.WithField("args", len(inv.Args)).Info("Command started")

			err := next.ServeCommand(ctx, inv)

			entry = entry.WithField("duration", time.Since(start))
			switch {
			case err == nil:
				entry.Info("Command completed")
			case errors.IsTimeout(err):
				entry.WithError(err).Warn("Command timed out")
			default:
				entry.WithError(err).Error("Command failed")
			}
			return err
		})
	}
}

func GetLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(LoggerKey).(*logrus.Entry); ok {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// GetInvocationID returns the id stored by RequestID, or "" outside a chain.
func GetInvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(InvocationIDKey).(string); ok {
		return id
	}
	return ""
}
