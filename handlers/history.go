package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/dispatch"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/repository"
)

const historyLimit = 5

var HistorySpec = command.Spec{
	Name:  "history",
	Usage: "history",
	Help:  "Shows the most recent summary requests in this channel.",
}

type HistoryHandler struct {
	history    repository.SummaryRepository
	dispatcher *dispatch.Dispatcher
}

func NewHistoryHandler(history repository.SummaryRepository, dispatcher *dispatch.Dispatcher) *HistoryHandler {
	return &HistoryHandler{history: history, dispatcher: dispatcher}
}

func (h *HistoryHandler) ServeCommand(ctx context.Context, inv *command.Invocation) error {
	if h.history == nil {
		notify(ctx, h.dispatcher, inv, MsgHistoryDisabled)
		return nil
	}

	records, err := h.history.RecentByChannel(ctx, inv.ChannelID, historyLimit)
	if err != nil {
		notify(ctx, h.dispatcher, inv, MsgHistoryFailed)
		return err
	}

	if len(records) == 0 {
		notify(ctx, h.dispatcher, inv, MsgHistoryEmpty)
		return nil
	}

	middleware.GetLogger(ctx).WithField("records", len(records)).Debug("Listing summary history")
	return h.dispatcher.Send(ctx, inv.ChannelID, formatHistory(records))
}

func formatHistory(records []*models.SummaryRecord) string {
	var sb strings.Builder
	sb.WriteString("**Recent summaries:**")
	for i, r := range records {
		label := "<" + r.URL + ">"
		if r.Title != "" {
			label = r.Title + " (" + label + ")"
		}
		fmt.Fprintf(&sb, "\n%d. `%s` %s, %s: %s",
			i+1,
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			r.Granularity,
			r.Status,
			label,
		)
	}
	return sb.String()
}
