package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Segment is one timed line of a transcript.
type Segment struct {
	Start    time.Duration
	Duration time.Duration
	Text     string
}

// Format renders segments one per line as `MM:SS - MM:SS : "text"`.
// Times are truncated to whole seconds and minutes are not wrapped.
func Format(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		start := int64(seg.Start / time.Second)
		end := int64((seg.Start + seg.Duration) / time.Second)
		lines = append(lines, fmt.Sprintf("%s - %s : \"%s\"", clock(start), clock(end), seg.Text))
	}
	return strings.Join(lines, "\n")
}

func clock(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
