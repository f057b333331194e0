package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nijaru/yt-summary/errors"
)

type PreparedStatements struct {
	upsert *sql.Stmt
	recent *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	var err error

	if stmts.upsert, err = db.PrepareContext(ctx, upsertSummaryQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare upsert statement")
	}

	if stmts.recent, err = db.PrepareContext(ctx, recentByChannelQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare recent statement")
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	for _, stmt := range [...]*sql.Stmt{stmts.upsert, stmts.recent} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
