package sqlite

import (
	"context"
	"database/sql"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/models"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// Repository stores summary history in sqlite.
type Repository struct {
	db         *sql.DB
	config     DBConfig
	statements PreparedStatements
}

func NewRepository(ctx context.Context, db *sql.DB, config DBConfig) (*Repository, error) {
	r := &Repository{db: db, config: config}
	if err := r.statements.Prepare(ctx, db); err != nil {
		r.statements.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the prepared statements. The caller owns the *sql.DB.
func (r *Repository) Close() error {
	return r.statements.Close()
}

func (r *Repository) Save(ctx context.Context, record *models.SummaryRecord) error {
	const op = "SQLiteRepository.Save"

	var completedAt sql.NullTime
	if record.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *record.CompletedAt, Valid: true}
	}

	err := withRetry(ctx, r.config, op, func() error {
		_, err := r.statements.upsert.ExecContext(ctx,
			record.ID,
			record.InvocationID,
			record.ChannelID,
			record.AuthorID,
			record.URL,
			record.VideoID,
			record.Title,
			record.Granularity,
			string(record.Status),
			record.Error,
			record.SegmentCount,
			record.SummaryLength,
			record.CreatedAt,
			completedAt,
		)
		return err
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.Internal(op, err, "Failed to save summary record")
	}
	return nil
}

// RecentByChannel returns up to limit records for channelID, newest first.
func (r *Repository) RecentByChannel(ctx context.Context, channelID string, limit int) ([]*models.SummaryRecord, error) {
	const op = "SQLiteRepository.RecentByChannel"

	rows, err := r.statements.recent.QueryContext(ctx, channelID, limit)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query summary history")
	}
	defer rows.Close()

	var records []*models.SummaryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "Failed to scan summary record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate summary history")
	}
	return records, nil
}

func scanRecord(s scanner) (*models.SummaryRecord, error) {
	record := &models.SummaryRecord{}
	var (
		status      string
		videoID     sql.NullString
		title       sql.NullString
		errText     sql.NullString
		completedAt sql.NullTime
	)

	err := s.Scan(
		&record.ID,
		&record.InvocationID,
		&record.ChannelID,
		&record.AuthorID,
		&record.URL,
		&videoID,
		&title,
		&record.Granularity,
		&status,
		&errText,
		&record.SegmentCount,
		&record.SummaryLength,
		&record.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Status = models.Status(status)
	record.VideoID = videoID.String
	record.Title = title.String
	record.Error = errText.String
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}
	return record, nil
}
