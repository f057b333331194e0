package summary

import (
	"context"
	"strings"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/sirupsen/logrus"
)

// Completer sends one system and user message pair to a text-generation
// backend and returns the reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// Generator produces a summary of transcript text at the given granularity.
type Generator interface {
	Generate(ctx context.Context, text string, g Granularity) (string, error)
}

type Config struct {
	Timeout time.Duration
}

type service struct {
	completer Completer
	config    Config
}

func NewService(completer Completer, cfg Config) Generator {
	return &service{
		completer: completer,
		config:    cfg,
	}
}

// Generate returns the generated summary. A failed or timed out request is
// reported as an error and never as summary text.
func (s *service) Generate(ctx context.Context, text string, g Granularity) (string, error) {
	const op = "SummaryService.Generate"

	prompt, ok := BuildPrompt(g, text)
	if !ok {
		return "", errors.InvalidInput(op, nil, "Unknown summary granularity")
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	logger := logrus.WithFields(logrus.Fields{
		"provider":    s.completer.Name(),
		"granularity": string(g),
		"input_chars": len(text),
	})

	start := time.Now()
	content, err := s.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		logger.WithError(err).Warn("Summary request failed")
		if ctx.Err() != nil {
			return "", errors.FromContext(op, ctx.Err(), "Summary request timed out")
		}
		return "", errors.Internal(op, err, "summary request failed")
	}

	if strings.TrimSpace(content) == "" {
		return "", errors.Internal(op, nil, "empty summary returned")
	}

	logger.WithFields(logrus.Fields{
		"duration":     time.Since(start),
		"output_chars": len(content),
	}).Info("Summary generated")

	return content, nil
}
