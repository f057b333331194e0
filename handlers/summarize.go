package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/dispatch"
	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/models"
	"github.com/nijaru/yt-summary/repository"
	"github.com/nijaru/yt-summary/storage"
	"github.com/nijaru/yt-summary/summary"
	"github.com/nijaru/yt-summary/transcript"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

var SummarizeSpec = command.Spec{
	Name:  "summarize",
	Usage: "summarize <short|medium|long> <YouTube URL>",
	Help:  "Summarizes a YouTube video transcript.",
}

// TitleLookup resolves a video title for history records.
type TitleLookup interface {
	Enabled() bool
	Title(ctx context.Context, videoID string) (string, error)
}

type SummarizeDeps struct {
	Fetcher    transcript.Fetcher
	Generator  summary.Generator
	Dispatcher *dispatch.Dispatcher
	// Optional collaborators; nil disables them.
	Titles   TitleLookup
	History  repository.SummaryRepository
	Archive  storage.Archiver
	Prefix   string
	Provider string
}

// SummarizeHandler runs the summarize command from argument parsing to the
// delivery of the summary.
type SummarizeHandler struct {
	deps SummarizeDeps
}

func NewSummarizeHandler(deps SummarizeDeps) *SummarizeHandler {
	return &SummarizeHandler{deps: deps}
}

func (h *SummarizeHandler) ServeCommand(ctx context.Context, inv *command.Invocation) error {
	const op = "SummarizeHandler.ServeCommand"

	logger := middleware.GetLogger(ctx)
	record := &models.SummaryRecord{
		ID:           uuid.New().String(),
		InvocationID: inv.ID,
		ChannelID:    inv.ChannelID,
		AuthorID:     inv.AuthorID,
		Status:       models.StatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}
	defer saveRecord(ctx, h.deps.History, record)

	if len(inv.Args) < 2 {
		record.Complete(models.StatusRejected, "missing arguments")
		notify(ctx, h.deps.Dispatcher, inv, usage(h.deps.Prefix, SummarizeSpec))
		return nil
	}

	rawGranularity, rawURL := inv.Args[0], inv.Args[1]
	record.URL = rawURL
	record.Granularity = strings.ToLower(rawGranularity)

	granularity, err := summary.ParseGranularity(rawGranularity)
	if err != nil {
		record.Complete(models.StatusRejected, "invalid granularity")
		notify(ctx, h.deps.Dispatcher, inv, MsgInvalidGranularity)
		return nil
	}

	video, err := validation.Classify(rawURL)
	if err != nil {
		record.Complete(models.StatusRejected, "invalid url")
		notify(ctx, h.deps.Dispatcher, inv, MsgInvalidURL)
		return nil
	}
	record.VideoID = video.ID

	logger = logger.WithFields(logrus.Fields{
		"granularity": string(granularity),
		"video_id":    video.ID,
		"form":        video.Form.String(),
	})

	notify(ctx, h.deps.Dispatcher, inv, MsgFetching)

	segments, err := h.deps.Fetcher.Fetch(ctx, video)
	if err != nil {
		return h.fetchFailed(ctx, inv, record, logger, err)
	}
	record.SegmentCount = len(segments)

	notify(ctx, h.deps.Dispatcher, inv, MsgFetched)

	text := transcript.Format(segments)
	record.Title = h.lookupTitle(ctx, logger, video)

	body, genErr := h.deps.Generator.Generate(ctx, text, granularity)
	if genErr != nil {
		if errors.IsTimeout(genErr) {
			body = MsgSummaryTimedOut
		} else {
			body = summaryErrorPrefix + failureReason(genErr)
		}
	}

	content := "**" + granularity.Title() + " Summary:**\n" + body
	if err := h.deps.Dispatcher.Send(ctx, inv.ChannelID, content); err != nil {
		record.Complete(statusFor(err), err.Error())
		return err
	}

	if genErr != nil {
		record.Complete(statusFor(genErr), genErr.Error())
		return errors.E(errors.KindOf(genErr), op, genErr, "summary generation failed")
	}

	record.SummaryLength = len([]rune(body))
	record.Complete(models.StatusDelivered, "")
	h.archive(ctx, logger, record, text, body)

	logger.WithField("summary_chars", record.SummaryLength).Info("Summary delivered")
	return nil
}

func (h *SummarizeHandler) fetchFailed(ctx context.Context, inv *command.Invocation, record *models.SummaryRecord, logger *logrus.Entry, err error) error {
	switch {
	case errors.IsNotFound(err):
		record.Complete(models.StatusNoTranscript, errors.Message(err, "no transcript"))
		notify(ctx, h.deps.Dispatcher, inv, MsgNoTranscript)
		logger.WithError(err).Info("No transcript available")
		return nil
	case errors.IsInvalidInput(err):
		record.Complete(models.StatusRejected, errors.Message(err, "invalid video id"))
		notify(ctx, h.deps.Dispatcher, inv, MsgInvalidURL)
		return nil
	case errors.IsTimeout(err):
		record.Complete(models.StatusTimedOut, err.Error())
		notify(ctx, h.deps.Dispatcher, inv, MsgFetchTimedOut)
		return err
	default:
		record.Complete(models.StatusFailed, err.Error())
		notify(ctx, h.deps.Dispatcher, inv, MsgFetchFailed)
		return err
	}
}

func (h *SummarizeHandler) lookupTitle(ctx context.Context, logger *logrus.Entry, video validation.VideoURL) string {
	if h.deps.Titles == nil || !h.deps.Titles.Enabled() {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	title, err := h.deps.Titles.Title(ctx, video.ID)
	if err != nil {
		logger.WithError(err).Debug("Video title lookup failed")
		return ""
	}
	return title
}

func (h *SummarizeHandler) archive(ctx context.Context, logger *logrus.Entry, record *models.SummaryRecord, transcriptText, body string) {
	if h.deps.Archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	key, err := h.deps.Archive.SaveSummary(ctx, &storage.SummaryArchive{
		RecordID:    record.ID,
		ChannelID:   record.ChannelID,
		VideoID:     record.VideoID,
		URL:         record.URL,
		Title:       record.Title,
		Granularity: record.Granularity,
		Provider:    h.deps.Provider,
		Summary:     body,
		Transcript:  transcriptText,
		CreatedAt:   record.CreatedAt,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to archive summary")
		return
	}
	logger.WithField("key", key).Debug("Summary archived")
}

func statusFor(err error) models.Status {
	if errors.IsTimeout(err) {
		return models.StatusTimedOut
	}
	return models.StatusFailed
}
