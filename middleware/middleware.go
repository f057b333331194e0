package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Middleware func(command.Handler) command.Handler

func Chain(handler command.Handler, middlewares ...Middleware) command.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			handler = middlewares[i](handler)
		}
	}
	return handler
}

const (
	MsgInternalError = "Something went wrong while processing that command."
	MsgRateLimited   = "You're sending commands too quickly. Please wait a moment and try again."
	MsgTimedOut      = "That command took too long and was cancelled."
)

// RateLimiter keeps one token bucket per author.
type RateLimiter interface {
	Allow(authorID string) bool
	Middleware(command.Handler) command.Handler
}

type rateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*authorLimiter
}

type authorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterPruneSize = 1024
)

func NewRateLimiter(requestsPerMinute int, burst int) RateLimiter {
	return &rateLimiter{
		limit:    rate.Limit(requestsPerMinute) / 60,
		burst:    burst,
		limiters: make(map[string]*authorLimiter),
	}
}

func (rl *rateLimiter) Allow(authorID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if len(rl.limiters) >= limiterPruneSize {
		for id, l := range rl.limiters {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(rl.limiters, id)
			}
		}
	}

	l, ok := rl.limiters[authorID]
	if !ok {
		l = &authorLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[authorID] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) Middleware(next command.Handler) command.Handler {
	return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		if !rl.Allow(inv.AuthorID) {
			GetLogger(ctx).Warn("Rate limit exceeded")
			if err := inv.Reply(ctx, MsgRateLimited); err != nil {
				GetLogger(ctx).WithError(err).Warn("Failed to send rate limit notice")
			}
			return nil
		}
		return next.ServeCommand(ctx, inv)
	})
}

// RequestID assigns an invocation id when the adapter did not set one.
func RequestID() Middleware {
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
			if inv.ID == "" {
				inv.ID = uuid.New().String()
			}
			ctx = context.WithValue(ctx, InvocationIDKey, inv.ID)
			return next.ServeCommand(ctx, inv)
		})
	}
}

func Recovery(logger *logrus.Logger) Middleware {
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = recovered(ctx, logrus.NewEntry(logger), inv, rec)
				}
			}()
			return next.ServeCommand(ctx, inv)
		})
	}
}

// recovered logs a handler panic, tells the user and converts it to an error.
func recovered(ctx context.Context, logger *logrus.Entry, inv *command.Invocation, rec interface{}) error {
	logger.WithFields(logrus.Fields{
		"error":         rec,
		"stack":         string(debug.Stack()),
		"invocation_id": inv.ID,
		"command":       inv.Name,
	}).Error("Panic recovered")

	if err := inv.Reply(context.WithoutCancel(ctx), MsgInternalError); err != nil {
		logger.WithError(err).Warn("Failed to send error notice")
	}
	return errors.Internal("Recovery", fmt.Errorf("%v", rec), "Panic recovered")
}

// ChannelFilter drops invocations from channels other than channelID.
func ChannelFilter(channelID string) Middleware {
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
			if inv.ChannelID != channelID {
				GetLogger(ctx).Debug("Ignoring command outside home channel")
				return nil
			}
			return next.ServeCommand(ctx, inv)
		})
	}
}

// timeoutGrace is how long Timeout waits for a cancelled handler to return.
var timeoutGrace = 10 * time.Second

// Timeout bounds the invocation. When the deadline passes before the handler
// returns, the user is told and a Timeout error is returned once the handler
// has stopped or the grace period ran out. Panics in the handler goroutine are
// recovered.
func Timeout(timeout time.Duration) Middleware {
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						done <- recovered(ctx, GetLogger(ctx), inv, rec)
					}
				}()
				done <- next.ServeCommand(ctx, inv)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
			}

			if ctx.Err() == context.DeadlineExceeded {
				if err := inv.Reply(context.WithoutCancel(ctx), MsgTimedOut); err != nil {
					GetLogger(ctx).WithError(err).Warn("Failed to send timeout notice")
				}
			}

			select {
			case <-done:
			case <-time.After(timeoutGrace):
				GetLogger(ctx).WithField("grace", timeoutGrace).Warn("Handler still running after timeout")
			}
			return errors.FromContext("Timeout", ctx.Err(), "Command timed out")
		})
	}
}
