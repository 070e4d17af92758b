package store

const schema = `
CREATE TABLE IF NOT EXISTS interest_scores (
    product_id        TEXT PRIMARY KEY,
    interest_score    INTEGER NOT NULL DEFAULT 0,
    interest_level    TEXT NOT NULL DEFAULT 'cold',
    buyer_confidence  INTEGER NOT NULL DEFAULT 0,
    hesitation_score  INTEGER NOT NULL DEFAULT 0,
    unique_sessions   INTEGER NOT NULL DEFAULT 0,
    return_visitors   INTEGER NOT NULL DEFAULT 0,
    avg_time_on_page  INTEGER NOT NULL DEFAULT 0,
    total_hovers      INTEGER NOT NULL DEFAULT 0,
    total_add_to_cart INTEGER NOT NULL DEFAULT 0,
    updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_level ON interest_scores(interest_level);
CREATE INDEX IF NOT EXISTS idx_scores_score ON interest_scores(interest_score);

CREATE TABLE IF NOT EXISTS product_analytics (
    product_id         TEXT PRIMARY KEY,
    impressions        INTEGER NOT NULL DEFAULT 0,
    clicks             INTEGER NOT NULL DEFAULT 0,
    add_to_cart_count  INTEGER NOT NULL DEFAULT 0,
    checkout_intents   INTEGER NOT NULL DEFAULT 0,
    total_time_on_page REAL NOT NULL DEFAULT 0,
    total_scroll_depth REAL NOT NULL DEFAULT 0,
    view_count         INTEGER NOT NULL DEFAULT 0,
    updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS session_profiles (
    session_id        TEXT PRIMARY KEY,
    products_viewed   TEXT NOT NULL DEFAULT '[]',
    is_return_visitor BOOLEAN NOT NULL DEFAULT 0,
    updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS session_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
