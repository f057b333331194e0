package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/dispatch"
	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/repository"
)

// Replies sent to the invoking channel.
const (
	MsgInvalidGranularity = "Invalid summary type. Please choose 'short', 'medium', or 'long'."
	MsgInvalidURL         = "Invalid YouTube URL. Please provide a valid URL."
	MsgFetching           = "Fetching the transcript..."
	MsgFetched            = "Transcript fetched successfully. Generating summaries..."
	MsgNoTranscript       = "Failed to fetch the transcript. It might be disabled or unavailable for this video."
	MsgFetchTimedOut      = "Fetching the transcript timed out. Please try again later."
	MsgFetchFailed        = "Something went wrong while fetching the transcript. Please try again later."
	MsgSummaryTimedOut    = "Generating the summary timed out. Please try again later."
	MsgHistoryDisabled    = "Summary history is not enabled."
	MsgHistoryEmpty       = "No summaries have been requested in this channel yet."
	MsgHistoryFailed      = "Could not load the summary history. Please try again later."

	summaryErrorPrefix = "Error generating summary: "
)

const recordWriteTimeout = 5 * time.Second

// notify sends a progress or error notice. Failures are logged and otherwise
// ignored.
func notify(ctx context.Context, d *dispatch.Dispatcher, inv *command.Invocation, content string) {
	if err := d.Send(ctx, inv.ChannelID, content); err != nil {
		middleware.GetLogger(ctx).WithError(err).WithField("notice", content).Warn("Failed to send notice")
	}
}

func saveRecord(ctx context.Context, repo repository.SummaryRepository, record *models.SummaryRecord) {
	if repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordWriteTimeout)
	defer cancel()

	if err := repo.Save(ctx, record); err != nil {
		middleware.GetLogger(ctx).WithError(err).WithField("record_id", record.ID).Warn("Failed to save summary record")
	}
}

// failureReason returns the underlying cause of err for display.
func failureReason(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err.Error()
	}
	return err.Error()
}

func usage(prefix string, spec command.Spec) string {
	return fmt.Sprintf("Usage: %s%s", prefix, spec.Usage)
}
