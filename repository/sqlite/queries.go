package sqlite

const (
	upsertSummaryQuery = `
        INSERT INTO summaries (
            id, invocation_id, channel_id, author_id, url,
            video_id, title, granularity, status, error,
            segment_count, summary_length, created_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            video_id = excluded.video_id,
            title = excluded.title,
            status = excluded.status,
            error = excluded.error,
            segment_count = excluded.segment_count,
            summary_length = excluded.summary_length,
            completed_at = excluded.completed_at
    `

	recentByChannelQuery = `
        SELECT id, invocation_id, channel_id, author_id, url,
               video_id, title, granularity, status, error,
               segment_count, summary_length, created_at, completed_at
        FROM summaries
        WHERE channel_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
)
