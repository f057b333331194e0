package validation

import (
	"net/url"
	"strings"

	"github.com/nijaru/yt-summary/errors"
)

// Form identifies which URL convention a video link follows.
type Form int

const (
	// FormWatch is the long-form youtube.com/watch?v=ID link.
	FormWatch Form = iota + 1
	// FormShortLink is the youtu.be/ID link.
	FormShortLink
)

func (f Form) String() string {
	switch f {
	case FormWatch:
		return "watch"
	case FormShortLink:
		return "short_link"
	default:
		return "unknown"
	}
}

// VideoURL is a link that passed validation, tagged by its form.
type VideoURL struct {
	Form Form
	Raw  string
	// ID is the candidate video id. It may be empty; the fetcher rejects that.
	ID string
}

var hostForms = map[string]Form{
	"www.youtube.com": FormWatch,
	"youtube.com":     FormWatch,
	"youtu.be":        FormShortLink,
}

// IsValid reports whether rawURL is a recognised video link.
func IsValid(rawURL string) bool {
	_, err := Classify(rawURL)
	return err == nil
}

// Classify parses rawURL and returns its form and candidate video id.
func Classify(rawURL string) (VideoURL, error) {
	const op = "validation.Classify"

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return VideoURL{}, errors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return VideoURL{}, errors.InvalidInput(op, err, "Invalid URL format")
	}

	form, ok := hostForms[strings.ToLower(parsedURL.Host)]
	if !ok {
		return VideoURL{}, errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	video := VideoURL{Form: form, Raw: rawURL}

	switch form {
	case FormShortLink:
		video.ID = strings.SplitN(strings.TrimPrefix(parsedURL.Path, "/"), "/", 2)[0]
	case FormWatch:
		query, err := url.ParseQuery(parsedURL.RawQuery)
		if err != nil {
			return VideoURL{}, errors.InvalidInput(op, err, "Invalid URL query")
		}
		if _, ok := query["v"]; !ok {
			return VideoURL{}, errors.InvalidInput(op, nil, "YouTube URL must contain a video ID")
		}
		video.ID = query.Get("v")
	}

	return video, nil
}
