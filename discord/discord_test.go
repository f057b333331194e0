package discord

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nijaru/yt-summary/command"
	"github.com/sirupsen/logrus"
)

func newTestBot(t *testing.T, handler command.HandlerFunc) *Bot {
	t.Helper()

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := command.NewRouter("!")
	router.Handle(command.Spec{Name: "summarize"}, handler)
	return newBot(session, router, logger)
}

func message(content string, author *discordgo.User) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   content,
		Author:    author,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInvocation(t *testing.T) {
	bot := newTestBot(t, func(ctx context.Context, inv *command.Invocation) error { return nil })
	user := &discordgo.User{ID: "u1", Username: "alice"}

	tests := []struct {
		name     string
		msg      *discordgo.Message
		wantOK   bool
		wantName string
		wantArgs []string
	}{
		{"command", message("!summarize medium https://youtu.be/x", user), true, "summarize", []string{"medium", "https://youtu.be/x"}},
		{"uppercase command", message("  !SUMMARIZE short url ", user), true, "summarize", []string{"short", "url"}},
		{"plain chat", message("hello there", user), false, "", nil},
		{"prefix only", message("!", user), false, "", nil},
		{"other bot", message("!summarize short url", &discordgo.User{ID: "b1", Bot: true}), false, "", nil},
		{"self", message("!summarize short url", &discordgo.User{ID: "self"}), false, "", nil},
		{"no author", message("!summarize short url", nil), false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := bot.invocation("self", tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if inv.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, inv.Name)
			}
			if len(inv.Args) != len(tt.wantArgs) {
				t.Fatalf("expected args %v, got %v", tt.wantArgs, inv.Args)
			}
			for i := range tt.wantArgs {
				if inv.Args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d: expected %q, got %q", i, tt.wantArgs[i], inv.Args[i])
				}
			}
			if inv.ID != "m1" || inv.ChannelID != "c1" || inv.GuildID != "g1" || inv.AuthorID != "u1" {
				t.Errorf("unexpected identifiers: %+v", inv)
			}
			if inv.Responder == nil {
				t.Error("expected a responder")
			}
		})
	}
}

func TestHandleDispatchesToRouter(t *testing.T) {
	var got *command.Invocation
	bot := newTestBot(t, func(ctx context.Context, inv *command.Invocation) error {
		got = inv
		return nil
	})

	bot.handle("self", message("!summarize long https://youtu.be/x", &discordgo.User{ID: "u1"}))

	if got == nil {
		t.Fatal("expected handler to be called")
	}
	if got.Args[0] != "long" {
		t.Errorf("expected first arg long, got %q", got.Args[0])
	}
}

func TestShutdownCancelsAndWaits(t *testing.T) {
	started := make(chan struct{})
	var finished bool
	var mu sync.Mutex

	bot := newTestBot(t, func(ctx context.Context, inv *command.Invocation) error {
		close(started)
		<-ctx.Done()
		mu.Lock()
		finished = true
		mu.Unlock()
		return ctx.Err()
	})

	go bot.handle("self", message("!summarize short url", &discordgo.User{ID: "u1"}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bot.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Error("expected in-flight invocation to finish before shutdown returned")
	}

	called := false
	bot.router.Handle(command.Spec{Name: "summarize"}, command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		called = true
		return nil
	}))
	bot.handle("self", message("!summarize short url", &discordgo.User{ID: "u1"}))
	if called {
		t.Error("expected commands after shutdown to be dropped")
	}
}
