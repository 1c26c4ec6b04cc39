package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slogAdapter bridges GORM's logger.Interface onto slog. SQL tracing goes to
// Debug and is gated on the configured slog level before the SQL string is
// even formatted, so production runs pay nothing for it.
type slogAdapter struct{}

// LogMode is a no-op; the slog level decides what gets through.
func (a slogAdapter) LogMode(logger.LogLevel) logger.Interface { return a }

func (a slogAdapter) Info(_ context.Context, msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func (a slogAdapter) Warn(_ context.Context, msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func (a slogAdapter) Error(_ context.Context, msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// maxLoggedSQL bounds the SQL text in log output. Embedding upserts inline
// vector literals of hundreds of floats; past this length the statement is
// cut and the log line reports how much was dropped.
const maxLoggedSQL = 220

// slowQueryThreshold marks queries worth a warning even when Debug tracing
// is off. Full-table vector scans on SQLite routinely land here.
const slowQueryThreshold = 200 * time.Millisecond

func formatSQL(sql string) string {
	if len(sql) <= maxLoggedSQL {
		return sql
	}
	return fmt.Sprintf("%s... (+%d bytes)", sql[:maxLoggedSQL], len(sql)-maxLoggedSQL)
}

// Trace runs after every SQL statement. Real errors log at Error;
// ErrRecordNotFound is the ordinary empty result of a First() and stays on
// the Debug path. Slow statements log at Warn regardless of level.
func (a slogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		slog.Error("gorm query error",
			"sql", formatSQL(sql),
			"rows", rows,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	if elapsed >= slowQueryThreshold {
		sql, rows := fc()
		slog.Warn("slow gorm query",
			"sql", formatSQL(sql),
			"rows", rows,
			"duration", elapsed,
		)
		return
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	sql, rows := fc()
	slog.Debug("gorm query",
		"sql", formatSQL(sql),
		"rows", rows,
		"duration", elapsed,
	)
}
