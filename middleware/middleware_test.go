package middleware

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/errors"
	"github.com/sirupsen/logrus"
)

type recordingResponder struct {
	mu      sync.Mutex
	replies []string
}

func (r *recordingResponder) Reply(ctx context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, content)
	return nil
}

func (r *recordingResponder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

func newInvocation(author string) (*command.Invocation, *recordingResponder) {
	responder := &recordingResponder{}
	return &command.Invocation{
		ChannelID: "42",
		AuthorID:  author,
		Name:      "summarize",
		Responder: responder,
	}, responder
}

func okHandler(calls *int) command.Handler {
	return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		*calls++
		return nil
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	var seen *logrus.Entry
	handler := Chain(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		seen = GetLogger(ctx)
		return nil
	}), RequestID(), Logging(logger))

	inv, _ := newInvocation("u1")
	if err := handler.ServeCommand(context.Background(), inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.ID == "" {
		t.Error("expected invocation id to be assigned")
	}
	if seen == nil || seen.Data["invocation_id"] != inv.ID {
		t.Errorf("expected context logger with invocation_id %s", inv.ID)
	}
	if !strings.Contains(buf.String(), "Command completed") {
		t.Errorf("expected completion log line, got %s", buf.String())
	}
}

func TestRequestIDKeepsExisting(t *testing.T) {
	var got string
	handler := RequestID()(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		got = GetInvocationID(ctx)
		return nil
	}))

	inv, _ := newInvocation("u1")
	inv.ID = "msg-123"
	handler.ServeCommand(context.Background(), inv)

	if got != "msg-123" {
		t.Errorf("expected msg-123, got %s", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	handler := Recovery(logger)(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		panic("boom")
	}))

	inv, responder := newInvocation("u1")
	err := handler.ServeCommand(context.Background(), inv)
	if err == nil {
		t.Fatal("expected error after panic")
	}

	replies := responder.all()
	if len(replies) != 1 || replies[0] != MsgInternalError {
		t.Errorf("expected internal error notice, got %v", replies)
	}
}

func TestRateLimiterPerAuthor(t *testing.T) {
	calls := 0
	limiter := NewRateLimiter(1, 2)
	handler := limiter.Middleware(okHandler(&calls))

	first, firstResponder := newInvocation("u1")
	for i := 0; i < 3; i++ {
		handler.ServeCommand(context.Background(), first)
	}

	other, _ := newInvocation("u2")
	handler.ServeCommand(context.Background(), other)

	if calls != 3 {
		t.Errorf("expected 3 handled invocations, got %d", calls)
	}
	replies := firstResponder.all()
	if len(replies) != 1 || replies[0] != MsgRateLimited {
		t.Errorf("expected one rate limit notice, got %v", replies)
	}
}

func TestChannelFilter(t *testing.T) {
	calls := 0
	handler := ChannelFilter("42")(okHandler(&calls))

	inv, _ := newInvocation("u1")
	handler.ServeCommand(context.Background(), inv)

	inv.ChannelID = "7"
	handler.ServeCommand(context.Background(), inv)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	handler := Timeout(20 * time.Millisecond)(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	inv, responder := newInvocation("u1")
	err := handler.ServeCommand(context.Background(), inv)
	if !errors.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}

	replies := responder.all()
	if len(replies) != 1 || replies[0] != MsgTimedOut {
		t.Errorf("expected timeout notice, got %v", replies)
	}
}

func TestTimeoutWaitsForCancelledHandler(t *testing.T) {
	var finished atomic.Bool
	handler := Timeout(20 * time.Millisecond)(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		<-ctx.Done()
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}))

	inv, _ := newInvocation("u1")
	err := handler.ServeCommand(context.Background(), inv)
	if !errors.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !finished.Load() {
		t.Error("expected Timeout to return only after the handler stopped")
	}
}

func TestTimeoutGraceExpires(t *testing.T) {
	saved := timeoutGrace
	timeoutGrace = 20 * time.Millisecond
	defer func() { timeoutGrace = saved }()

	release := make(chan struct{})
	defer close(release)

	handler := Timeout(10 * time.Millisecond)(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		<-release
		return nil
	}))

	inv, _ := newInvocation("u1")
	start := time.Now()
	err := handler.ServeCommand(context.Background(), inv)
	if !errors.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected return after the grace period, took %v", elapsed)
	}
}

func TestPanicRecoveredThroughFullChain(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	limiter := NewRateLimiter(60, 5)
	handler := Chain(command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
		panic("boom")
	}),
		Recovery(logger),
		RequestID(),
		Logging(logger),
		ChannelFilter("42"),
		limiter.Middleware,
		Timeout(time.Second),
	)

	inv, responder := newInvocation("u1")
	err := handler.ServeCommand(context.Background(), inv)
	if err == nil || errors.KindOf(err) != errors.KindInternal {
		t.Fatalf("expected internal error after panic, got %v", err)
	}

	replies := responder.all()
	if len(replies) != 1 || replies[0] != MsgInternalError {
		t.Errorf("expected one internal error notice, got %v", replies)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next command.Handler) command.Handler {
			return command.HandlerFunc(func(ctx context.Context, inv *command.Invocation) error {
				order = append(order, name)
				return next.ServeCommand(ctx, inv)
			})
		}
	}

	calls := 0
	handler := Chain(okHandler(&calls), mark("a"), nil, mark("b"))
	inv, _ := newInvocation("u1")
	handler.ServeCommand(context.Background(), inv)

	if strings.Join(order, ",") != "a,b" || calls != 1 {
		t.Errorf("expected a,b then handler, got %v calls=%d", order, calls)
	}
}
