package collector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/pkg/config"
)

// eventsTable is the append-only behavioral event log. Retention is an
// external concern; this store never deletes.
const eventsTable = "interest_events"

const eventsSchema = `
CREATE TABLE IF NOT EXISTS ` + eventsTable + ` (
	session_id  String,
	product_id  String,
	event_type  LowCardinality(String),
	event_value Float64,
	metadata    String DEFAULT '{}',
	created_at  DateTime64(3) DEFAULT now64(3)
) ENGINE = MergeTree
ORDER BY (product_id, created_at)
`

// EventStore handles the ClickHouse connection and event queries.
type EventStore struct {
	conn   *sql.DB
	config *config.Config
}

// New connects to ClickHouse and ensures the event schema exists.
func New(cfg *config.Config) (*EventStore, error) {
	opts, err := clickhouse.ParseDSN(cfg.ClickHouseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ClickHouse DSN: %w", err)
	}

	// Set connection pooling
	opts.MaxOpenConns = 10
	opts.MaxIdleConns = 5
	opts.ConnMaxLifetime = time.Hour
	opts.ReadTimeout = 10 * time.Minute
	opts.DialTimeout = 30 * time.Second

	conn := clickhouse.OpenDB(opts)
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	store := &EventStore{conn: conn, config: cfg}
	if err := store.ensureSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	if cfg.Verbose {
		slog.Debug("connected to ClickHouse", slog.String("addr", opts.Addr[0]))
	}

	return store, nil
}

func (s *EventStore) ensureSchema(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, eventsSchema); err != nil {
		return fmt.Errorf("failed to ensure %s schema: %w", eventsTable, err)
	}
	return nil
}

// Append inserts one classified event. Transient failures are retried
// with backoff; auth failures fail fast.
func (s *EventStore) Append(ctx context.Context, event models.InterestEvent) error {
	metadata := "{}"
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err == nil {
			metadata = string(raw)
		}
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT INTO ` + eventsTable + ` (session_id, product_id, event_type, event_value, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	err := executeWithRetry(ctx, defaultRetryConfig(), func() error {
		_, execErr := s.conn.ExecContext(ctx, query,
			event.SessionID, event.ProductID, string(event.EventType),
			event.Value, metadata, createdAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to append event for %s: %w", event.ProductID, err)
	}
	return nil
}

// FetchEventsSince retrieves all events created at or after since, in
// pages of the configured batch size, bounded by the configured query
// timeout. Read failures abort, and so does overflowing the row cap: a
// partial event window must never feed a recalculation.
func (s *EventStore) FetchEventsSince(ctx context.Context, since time.Time) ([]models.InterestEvent, error) {
	ctx, cancel := withTotalTimeoutContext(ctx, s.config.QueryTimeout)
	defer cancel()

	query := `
		SELECT session_id, product_id, event_type, event_value, metadata, created_at
		FROM ` + eventsTable + `
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	events, err := collectWindow(ctx, s.config.BatchSize, s.config.MaxRows,
		func(ctx context.Context, limit, offset int) ([]models.InterestEvent, error) {
			var rows *sql.Rows
			err := executeWithRetry(ctx, defaultRetryConfig(), func() error {
				var queryErr error
				rows, queryErr = s.conn.QueryContext(ctx, query, since, limit, offset)
				return queryErr
			})
			if err != nil {
				return nil, err
			}
			defer rows.Close()
			return s.scanEvents(rows)
		})
	if err != nil {
		return nil, err
	}

	if s.config.Verbose {
		slog.Debug("collected events", slog.Int("count", len(events)))
	}

	return events, nil
}

// collectWindow pages through the event window until a short page. The
// row cap is a hard bound, not a truncation point: scores computed from
// a clipped window would silently overwrite good rows, so overflowing
// the cap fails the read.
func collectWindow(ctx context.Context, batchSize, maxRows int, page func(ctx context.Context, limit, offset int) ([]models.InterestEvent, error)) ([]models.InterestEvent, error) {
	var all []models.InterestEvent
	for offset := 0; ; offset += batchSize {
		batch, err := page(ctx, batchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("event query failed at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		all = append(all, batch...)

		if maxRows > 0 && len(all) > maxRows {
			return nil, fmt.Errorf("event window exceeds max rows (%d); refusing to score a truncated window", maxRows)
		}
		if len(batch) < batchSize {
			break
		}
	}
	return all, nil
}

// FetchProductEvents retrieves the most recent events for one product.
func (s *EventStore) FetchProductEvents(ctx context.Context, productID string, since time.Time, limit int) ([]models.InterestEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT session_id, product_id, event_type, event_value, metadata, created_at
		FROM ` + eventsTable + `
		WHERE product_id = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	var rows *sql.Rows
	err := executeWithRetry(ctx, defaultRetryConfig(), func() error {
		var queryErr error
		rows, queryErr = s.conn.QueryContext(ctx, query, productID, since, limit)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for %s: %w", productID, err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// FetchProductIDs returns the distinct product ids with events since
// the given time.
func (s *EventStore) FetchProductIDs(ctx context.Context, since time.Time) ([]string, error) {
	ctx, cancel := withTotalTimeoutContext(ctx, s.config.QueryTimeout)
	defer cancel()

	query := `SELECT DISTINCT product_id FROM ` + eventsTable + ` WHERE created_at >= ?`

	var rows *sql.Rows
	err := executeWithRetry(ctx, defaultRetryConfig(), func() error {
		var queryErr error
		rows, queryErr = s.conn.QueryContext(ctx, query, since)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Warn("failed to scan product id, skipping", slog.String("error", err.Error()))
			continue
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// FetchProductStats aggregates event count and value totals per event
// type for one product.
func (s *EventStore) FetchProductStats(ctx context.Context, productID string) (map[models.EventType]models.EventStats, error) {
	query := `
		SELECT event_type, count() AS events, sum(event_value) AS total_value
		FROM ` + eventsTable + `
		WHERE product_id = ?
		GROUP BY event_type
	`

	var rows *sql.Rows
	err := executeWithRetry(ctx, defaultRetryConfig(), func() error {
		var queryErr error
		rows, queryErr = s.conn.QueryContext(ctx, query, productID)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats for %s: %w", productID, err)
	}
	defer rows.Close()

	stats := make(map[models.EventType]models.EventStats)
	for rows.Next() {
		var eventType string
		var count uint64
		var totalValue float64
		if err := rows.Scan(&eventType, &count, &totalValue); err != nil {
			slog.Warn("failed to scan stats row, skipping", slog.String("error", err.Error()))
			continue
		}
		stats[models.EventType(eventType)] = models.EventStats{
			Count:      int(count),
			TotalValue: totalValue,
		}
	}
	return stats, rows.Err()
}

// scanEvents converts result rows, skipping malformed rows rather than
// failing the whole batch.
func (s *EventStore) scanEvents(rows *sql.Rows) ([]models.InterestEvent, error) {
	var events []models.InterestEvent
	rowNum := 0
	skippedRows := 0

	for rows.Next() {
		rowNum++
		var event models.InterestEvent
		var eventType, metadata string

		err := rows.Scan(
			&event.SessionID,
			&event.ProductID,
			&eventType,
			&event.Value,
			&metadata,
			&event.CreatedAt,
		)
		if err != nil {
			skippedRows++
			if s.config.Verbose {
				slog.Warn("failed to scan event row, skipping",
					slog.Int("row", rowNum), slog.String("error", err.Error()))
			}
			continue
		}

		if event.ProductID == "" || event.SessionID == "" {
			skippedRows++
			continue
		}

		event.EventType = models.EventType(eventType)
		if metadata != "" && metadata != "{}" {
			// Metadata is opaque to scoring; a parse failure only loses
			// annotation, never the event.
			_ = json.Unmarshal([]byte(metadata), &event.Metadata)
		}

		events = append(events, event)
	}

	if skippedRows > 0 {
		slog.Warn("skipped malformed event rows",
			slog.Int("skipped", skippedRows), slog.Int("total", rowNum))
	}

	if err := rows.Err(); err != nil {
		if len(events) > 0 {
			slog.Warn("error during event row iteration, returning recovered rows",
				slog.Int("recovered", len(events)), slog.String("error", err.Error()))
			return events, nil
		}
		return nil, err
	}

	return events, nil
}

// Close closes the ClickHouse connection.
func (s *EventStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
