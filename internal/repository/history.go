// Package repository holds persistence beyond the hot-path quote store. The
// quote history sink is append-only and best-effort: the service works the
// same with it disabled.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"FundPulse/internal/domain/models"
	pkgch "FundPulse/pkg/clickhouse"
	applogger "FundPulse/pkg/logger"
)

// HistorySink records every stored quote for offline analysis.
type HistorySink interface {
	Append(ctx context.Context, q *models.Quote) error
}

// CHQuoteHistory implements HistorySink backed by ClickHouse.
type CHQuoteHistory struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHQuoteHistory creates the sink and ensures the table exists.
func NewCHQuoteHistory(ctx context.Context, ch *pkgch.Client, table string, l *applogger.Logger) (*CHQuoteHistory, error) {
	if table == "" {
		table = "quote_history"
	}
	if l == nil {
		l = applogger.Nop()
	}

	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol          String,
            price           Float64,
            daily_return    Nullable(Float64),
            valid_for_day   Date,
            source          LowCardinality(String),
            fetched_at      DateTime64(3)
        ) ENGINE = MergeTree()
        ORDER BY (symbol, valid_for_day, fetched_at)
    `, table)
	if err := ch.InitSchema(ctx, []string{ddl}); err != nil {
		return nil, err
	}

	return &CHQuoteHistory{db: ch.DB(), table: table, l: l}, nil
}

func (s *CHQuoteHistory) Append(ctx context.Context, q *models.Quote) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (symbol, price, daily_return, valid_for_day, source, fetched_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, s.table)

	var daily sql.NullFloat64
	if q.DailyReturnPct != nil {
		daily = sql.NullFloat64{Float64: *q.DailyReturnPct, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, query,
		q.Symbol, q.Price, daily, q.ValidForDay, string(q.Source), q.FetchedAt); err != nil {
		s.l.Error("quote history insert error",
			applogger.String("symbol", q.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("append quote history: %w", err)
	}
	return nil
}

// Recent returns the last n history rows for a symbol, newest first.
func (s *CHQuoteHistory) Recent(ctx context.Context, symbol string, n int) ([]models.Quote, error) {
	query := fmt.Sprintf(`
        SELECT symbol, price, daily_return, toString(valid_for_day), source, fetched_at
        FROM %s
        WHERE symbol = ?
        ORDER BY fetched_at DESC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, query, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("query quote history: %w", err)
	}
	defer rows.Close()

	out := make([]models.Quote, 0, n)
	for rows.Next() {
		var q models.Quote
		var daily sql.NullFloat64
		var src string
		if err := rows.Scan(&q.Symbol, &q.Price, &daily, &q.ValidForDay, &src, &q.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan quote history: %w", err)
		}
		if daily.Valid {
			v := daily.Float64
			q.DailyReturnPct = &v
		}
		q.Source = models.Source(src)
		out = append(out, q)
	}
	return out, rows.Err()
}
