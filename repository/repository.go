package repository

import (
	"context"

	"github.com/nijaru/yt-summary/models"
)

type SummaryRepository interface {
	Save(ctx context.Context, record *models.SummaryRecord) error
	RecentByChannel(ctx context.Context, channelID string, limit int) ([]*models.SummaryRecord, error)
}
