package summary

import (
	"strings"

	"github.com/nijaru/yt-summary/errors"
)

// Granularity selects how detailed a summary should be.
type Granularity string

const (
	Short  Granularity = "short"
	Medium Granularity = "medium"
	Long   Granularity = "long"
)

// Granularities lists the accepted values in display order.
var Granularities = []Granularity{Short, Medium, Long}

// ParseGranularity matches s against the known granularities, ignoring case
// and surrounding space.
func ParseGranularity(s string) (Granularity, error) {
	const op = "summary.ParseGranularity"

	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Short, Medium, Long:
		return g, nil
	}
	return "", errors.InvalidInput(op, nil, "Invalid summary type. Please choose 'short', 'medium', or 'long'.")
}

// Title returns the granularity with its first letter capitalised.
func (g Granularity) Title() string {
	if g == "" {
		return ""
	}
	return strings.ToUpper(string(g[:1])) + string(g[1:])
}
