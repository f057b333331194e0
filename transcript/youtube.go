package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL  = "https://www.youtube.com"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	playerMarker    = "ytInitialPlayerResponse = "
	maxWatchPage    = 6 << 20
	maxTimedText    = 2 << 20
	asrKind         = "asr"
	poTokenRequired = "&exp=xpe"
)

// Fetcher retrieves the timed transcript of a video.
type Fetcher interface {
	Fetch(ctx context.Context, video validation.VideoURL) ([]Segment, error)
}

type Config struct {
	// BaseURL is the origin serving watch pages. Defaults to www.youtube.com.
	BaseURL    string
	Languages  []string
	Timeout    time.Duration
	Retry      RetryConfig
	HTTPClient *http.Client
}

type youtubeFetcher struct {
	baseURL   string
	languages []string
	timeout   time.Duration
	retry     RetryConfig
	client    *http.Client
}

func NewFetcher(cfg Config) Fetcher {
	f := &youtubeFetcher{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		languages: cfg.Languages,
		timeout:   cfg.Timeout,
		retry:     cfg.Retry,
		client:    cfg.HTTPClient,
	}
	if f.baseURL == "" {
		f.baseURL = defaultBaseURL
	}
	if len(f.languages) == 0 {
		f.languages = []string{"en"}
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	return f
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch returns the video's transcript. A video without captions, or without
// a usable caption track, yields a NotFound error.
func (f *youtubeFetcher) Fetch(ctx context.Context, video validation.VideoURL) ([]Segment, error) {
	const op = "youtubeFetcher.Fetch"

	videoID, err := VideoID(video)
	if err != nil {
		return nil, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	logger := logrus.WithFields(logrus.Fields{
		"video_id": videoID,
		"form":     video.Form.String(),
	})

	player, err := f.playerResponse(ctx, videoID)
	if err != nil {
		return nil, f.wrap(ctx, op, err, "Failed to load video page")
	}

	if player.Captions == nil {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Status != "" && player.PlayabilityStatus.Status != "OK" {
			return nil, errors.Internal(op, fmt.Errorf("%s: %s", player.PlayabilityStatus.Status, player.PlayabilityStatus.Reason), "Video is not playable")
		}
		return nil, errors.NotFound(op, nil, "Transcripts are disabled for this video")
	}

	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	track, ok := pickTrack(tracks, f.languages)
	if !ok {
		return nil, errors.NotFound(op, nil, "No transcript available for this video")
	}

	logger.WithFields(logrus.Fields{
		"language": track.LanguageCode,
		"kind":     track.Kind,
	}).Debug("Selected caption track")

	segments, err := f.timedText(ctx, track.BaseURL)
	if err != nil {
		return nil, f.wrap(ctx, op, err, "Failed to load transcript")
	}
	if len(segments) == 0 {
		return nil, errors.NotFound(op, nil, "Transcript is empty")
	}

	logger.WithField("segments", len(segments)).Info("Transcript fetched")
	return segments, nil
}

// VideoID resolves the video id of a classified URL according to its form.
func VideoID(video validation.VideoURL) (string, error) {
	const op = "transcript.VideoID"

	var id string
	switch video.Form {
	case validation.FormWatch, validation.FormShortLink:
		id = strings.TrimSpace(video.ID)
	default:
		return "", errors.InvalidInput(op, nil, "Unsupported video URL form")
	}
	if id == "" {
		return "", errors.InvalidInput(op, nil, "Video ID is missing")
	}
	return id, nil
}

func (f *youtubeFetcher) wrap(ctx context.Context, op string, err error, msg string) error {
	if ctx.Err() != nil {
		return errors.FromContext(op, ctx.Err(), "Transcript request timed out")
	}
	if _, ok := err.(*errors.AppError); ok {
		return err
	}
	return errors.Internal(op, err, msg)
}

func (f *youtubeFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := doWithRetry(ctx, f.client, f.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

func (f *youtubeFetcher) playerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	const op = "youtubeFetcher.playerResponse"

	watchURL := f.baseURL + "/watch?" + url.Values{"v": {videoID}, "hl": {"en"}}.Encode()
	resp, err := f.get(ctx, watchURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPage))
	if err != nil {
		return nil, err
	}

	idx := bytes.Index(body, []byte(playerMarker))
	if idx < 0 {
		return nil, errors.Internal(op, nil, "Player response not found in watch page")
	}
	data := extractJSON(body[idx+len(playerMarker):])
	if data == nil {
		return nil, errors.Internal(op, nil, "Malformed player response")
	}

	var player playerResponse
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, errors.Internal(op, err, "Failed to decode player response")
	}
	return &player, nil
}

func (f *youtubeFetcher) timedText(ctx context.Context, trackURL string) ([]Segment, error) {
	const op = "youtubeFetcher.timedText"

	resp, err := f.get(ctx, trackURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedText))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, errors.Internal(op, err, "Failed to parse transcript")
	}

	segments := make([]Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		segments = append(segments, Segment{
			Start:    parseSeconds(line.Start),
			Duration: parseSeconds(line.Dur),
			Text:     html.UnescapeString(line.Text),
		})
	}
	return segments, nil
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// pickTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first usable track.
// Tracks that need a proof-of-origin token cannot be fetched and are skipped.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !strings.Contains(t.BaseURL, poTokenRequired) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}

	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != asrKind {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
