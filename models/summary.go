package models

import (
	"time"
)

type Status string

const (
	StatusProcessing   Status = "processing"
	StatusDelivered    Status = "delivered"
	StatusRejected     Status = "rejected"
	StatusNoTranscript Status = "no_transcript"
	StatusFailed       Status = "failed"
	StatusTimedOut     Status = "timed_out"
)

// SummaryRecord is the history entry for one summarize invocation.
type SummaryRecord struct {
	ID            string     `json:"id"`
	InvocationID  string     `json:"invocation_id"`
	ChannelID     string     `json:"channel_id"`
	AuthorID      string     `json:"author_id"`
	URL           string     `json:"url"`
	VideoID       string     `json:"video_id,omitempty"`
	Title         string     `json:"title,omitempty"`
	Granularity   string     `json:"granularity"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	SegmentCount  int        `json:"segment_count"`
	SummaryLength int        `json:"summary_length"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Complete moves the record into a terminal status.
func (r *SummaryRecord) Complete(status Status, reason string) {
	now := time.Now().UTC()
	r.Status = status
	r.Error = reason
	r.CompletedAt = &now
}
