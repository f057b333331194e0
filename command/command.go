package command

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Responder replies in the channel an invocation came from.
type Responder interface {
	Reply(ctx context.Context, content string) error
}

// Invocation is one command issued by a user in a channel.
type Invocation struct {
	ID         string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Name       string
	Args       []string
	ReceivedAt time.Time
	Responder  Responder
}

// Reply sends content back to the invoking channel. A nil responder drops it.
func (inv *Invocation) Reply(ctx context.Context, content string) error {
	if inv.Responder == nil {
		return nil
	}
	return inv.Responder.Reply(ctx, content)
}

type Handler interface {
	ServeCommand(ctx context.Context, inv *Invocation) error
}

type HandlerFunc func(ctx context.Context, inv *Invocation) error

func (f HandlerFunc) ServeCommand(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}

// Spec describes a registered command for help output.
type Spec struct {
	Name  string
	Usage string
	Help  string
}

type route struct {
	spec    Spec
	handler Handler
}

// Router maps command names to handlers.
type Router struct {
	prefix string

	mu     sync.RWMutex
	routes map[string]route
}

func NewRouter(prefix string) *Router {
	return &Router{
		prefix: prefix,
		routes: make(map[string]route),
	}
}

func (r *Router) Prefix() string {
	return r.prefix
}

// Handle registers h under spec.Name, replacing any earlier registration.
func (r *Router) Handle(spec Spec, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[strings.ToLower(spec.Name)] = route{spec: spec, handler: h}
}

// Specs returns the registered commands sorted by name.
func (r *Router) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.routes))
	for _, rt := range r.routes {
		specs = append(specs, rt.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Parse splits a message into a command name and its arguments. It reports
// false when content does not start with the router's prefix.
func (r *Router) Parse(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Lookup returns the handler registered for name.
func (r *Router) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[strings.ToLower(name)]
	return rt.handler, ok
}

// Dispatch runs the handler registered for inv.Name. Unknown commands are
// ignored and reported as not handled.
func (r *Router) Dispatch(ctx context.Context, inv *Invocation) (bool, error) {
	h, ok := r.Lookup(inv.Name)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"command":    inv.Name,
			"channel_id": inv.ChannelID,
		}).Debug("Ignoring unknown command")
		return false, nil
	}
	return true, h.ServeCommand(ctx, inv)
}
