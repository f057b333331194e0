package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/dispatch"
)

var HelpSpec = command.Spec{
	Name:  "help",
	Usage: "help",
	Help:  "Lists the available commands.",
}

type HelpHandler struct {
	router     *command.Router
	dispatcher *dispatch.Dispatcher
}

func NewHelpHandler(router *command.Router, dispatcher *dispatch.Dispatcher) *HelpHandler {
	return &HelpHandler{router: router, dispatcher: dispatcher}
}

func (h *HelpHandler) ServeCommand(ctx context.Context, inv *command.Invocation) error {
	var sb strings.Builder
	sb.WriteString("**Commands:**")
	for _, spec := range h.router.Specs() {
		fmt.Fprintf(&sb, "\n`%s%s` %s", h.router.Prefix(), spec.Usage, spec.Help)
	}
	return h.dispatcher.Send(ctx, inv.ChannelID, sb.String())
}
