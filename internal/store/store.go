package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/shopsignal/shopsignal/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// SessionProfile tracks the products a session has viewed, used
// downstream for return-visitor detection.
type SessionProfile struct {
	SessionID       string    `db:"session_id"`
	ProductsViewed  []string  `db:"-"`
	ProductsJSON    string    `db:"products_viewed"`
	IsReturnVisitor bool      `db:"is_return_visitor"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Store is the persistence interface for scores, counters, and session
// profiles.
type Store interface {
	UpsertScore(ctx context.Context, score models.InterestScore) error
	GetScore(ctx context.Context, productID string) (*models.InterestScore, error)
	ListScores(ctx context.Context) ([]models.InterestScore, error)
	ScoredProductIDs(ctx context.Context) ([]string, error)
	Overview(ctx context.Context) (models.LevelSummary, error)

	ApplyAnalyticsDelta(ctx context.Context, productID string, delta models.AnalyticsDelta) error
	GetAnalytics(ctx context.Context, productID string) (*models.ProductAnalytics, error)

	UpsertSessionProfile(ctx context.Context, sessionID, productID string, isReturnVisitor bool) error
	GetSessionProfile(ctx context.Context, sessionID string) (*SessionProfile, error)

	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertScore fully replaces the score row for a product. Overwrite
// semantics keyed by product_id: a recalculation is a replacement,
// never an increment.
func (s *SQLiteStore) UpsertScore(ctx context.Context, score models.InterestScore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interest_scores (product_id, interest_score, interest_level, buyer_confidence,
			hesitation_score, unique_sessions, return_visitors, avg_time_on_page,
			total_hovers, total_add_to_cart, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			interest_score = excluded.interest_score,
			interest_level = excluded.interest_level,
			buyer_confidence = excluded.buyer_confidence,
			hesitation_score = excluded.hesitation_score,
			unique_sessions = excluded.unique_sessions,
			return_visitors = excluded.return_visitors,
			avg_time_on_page = excluded.avg_time_on_page,
			total_hovers = excluded.total_hovers,
			total_add_to_cart = excluded.total_add_to_cart,
			updated_at = excluded.updated_at
	`, score.ProductID, score.InterestScore, string(score.InterestLevel), score.BuyerConfidence,
		score.HesitationScore, score.UniqueSessions, score.ReturnVisitors, score.AvgTimeOnPage,
		score.TotalHovers, score.TotalAddToCart, score.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert score %s: %w", score.ProductID, err)
	}
	return nil
}

func (s *SQLiteStore) GetScore(ctx context.Context, productID string) (*models.InterestScore, error) {
	var score models.InterestScore
	err := s.db.GetContext(ctx, &score,
		"SELECT * FROM interest_scores WHERE product_id = ?", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get score %s: %w", productID, err)
	}
	return &score, nil
}

func (s *SQLiteStore) ListScores(ctx context.Context) ([]models.InterestScore, error) {
	var scores []models.InterestScore
	err := s.db.SelectContext(ctx, &scores,
		"SELECT * FROM interest_scores ORDER BY interest_score DESC")
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}

func (s *SQLiteStore) ScoredProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, "SELECT product_id FROM interest_scores")
	if err != nil {
		return nil, fmt.Errorf("list scored product ids: %w", err)
	}
	return ids, nil
}

// Overview counts scored products per interest level.
func (s *SQLiteStore) Overview(ctx context.Context) (models.LevelSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT interest_level, COUNT(*) FROM interest_scores GROUP BY interest_level")
	if err != nil {
		return models.LevelSummary{}, fmt.Errorf("overview: %w", err)
	}
	defer rows.Close()

	var summary models.LevelSummary
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return models.LevelSummary{}, fmt.Errorf("overview scan: %w", err)
		}
		switch models.InterestLevel(level) {
		case models.LevelHot:
			summary.Hot = count
		case models.LevelWarm:
			summary.Warm = count
		case models.LevelCool:
			summary.Cool = count
		case models.LevelCold:
			summary.Cold = count
		}
	}
	return summary, rows.Err()
}

// ApplyAnalyticsDelta increments funnel counters in place. Counters are
// monotonic: the row value after N deltas equals the sum of those
// deltas, no decay or windowing.
func (s *SQLiteStore) ApplyAnalyticsDelta(ctx context.Context, productID string, delta models.AnalyticsDelta) error {
	if delta.IsZero() {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_analytics (product_id, impressions, clicks, add_to_cart_count,
			checkout_intents, total_time_on_page, total_scroll_depth, view_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			impressions = impressions + excluded.impressions,
			clicks = clicks + excluded.clicks,
			add_to_cart_count = add_to_cart_count + excluded.add_to_cart_count,
			checkout_intents = checkout_intents + excluded.checkout_intents,
			total_time_on_page = total_time_on_page + excluded.total_time_on_page,
			total_scroll_depth = total_scroll_depth + excluded.total_scroll_depth,
			view_count = view_count + excluded.view_count,
			updated_at = excluded.updated_at
	`, productID, delta.Impressions, delta.Clicks, delta.AddToCartCount,
		delta.CheckoutIntents, delta.TimeOnPage, delta.ScrollDepth, delta.ViewCount,
		time.Now())
	if err != nil {
		return fmt.Errorf("apply analytics delta %s: %w", productID, err)
	}
	return nil
}

func (s *SQLiteStore) GetAnalytics(ctx context.Context, productID string) (*models.ProductAnalytics, error) {
	var analytics models.ProductAnalytics
	err := s.db.GetContext(ctx, &analytics,
		"SELECT * FROM product_analytics WHERE product_id = ?", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analytics %s: %w", productID, err)
	}
	return &analytics, nil
}

// UpsertSessionProfile records a product view against a session,
// appending to products_viewed exactly once per product.
func (s *SQLiteStore) UpsertSessionProfile(ctx context.Context, sessionID, productID string, isReturnVisitor bool) error {
	profile, err := s.GetSessionProfile(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	now := time.Now()

	if profile == nil {
		viewed, _ := json.Marshal([]string{productID})
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO session_profiles (session_id, products_viewed, is_return_visitor, updated_at)
			VALUES (?, ?, ?, ?)
		`, sessionID, string(viewed), isReturnVisitor, now)
		if err != nil {
			return fmt.Errorf("insert session profile %s: %w", sessionID, err)
		}
		return nil
	}

	for _, id := range profile.ProductsViewed {
		if id == productID {
			return nil
		}
	}

	viewed, _ := json.Marshal(append(profile.ProductsViewed, productID))
	_, err = s.db.ExecContext(ctx, `
		UPDATE session_profiles SET products_viewed = ?, updated_at = ? WHERE session_id = ?
	`, string(viewed), now, sessionID)
	if err != nil {
		return fmt.Errorf("update session profile %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSessionProfile(ctx context.Context, sessionID string) (*SessionProfile, error) {
	var profile SessionProfile
	err := s.db.GetContext(ctx, &profile,
		"SELECT * FROM session_profiles WHERE session_id = ?", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session profile %s: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(profile.ProductsJSON), &profile.ProductsViewed); err != nil {
		profile.ProductsViewed = nil
	}
	return &profile, nil
}

func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM session_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get value %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set value %s: %w", key, err)
	}
	return nil
}
