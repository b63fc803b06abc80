package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_profiles (
    id             TEXT PRIMARY KEY,
    email          TEXT NOT NULL UNIQUE,
    full_name      TEXT NOT NULL,
    role           TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin','user')),
    points_balance BIGINT NOT NULL DEFAULT 1000,
    avatar_url     TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS matches (
    id           TEXT PRIMARY KEY,
    home_team    TEXT NOT NULL,
    away_team    TEXT NOT NULL,
    match_date   TIMESTAMPTZ NOT NULL,
    status       TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming','live','finished','cancelled')),
    home_score   INTEGER,
    away_score   INTEGER,
    closing_time TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_matches_teams ON matches(home_team, away_team);

CREATE TABLE IF NOT EXISTS fun_bets (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT 'general',
    closing_time TIMESTAMPTZ NOT NULL,
    result_text  TEXT,
    is_settled   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bet_options (
    id          TEXT PRIMARY KEY,
    match_id    TEXT REFERENCES matches(id) ON DELETE CASCADE,
    fun_bet_id  TEXT REFERENCES fun_bets(id) ON DELETE CASCADE,
    option_text TEXT NOT NULL,
    odds        NUMERIC(8,2) NOT NULL CHECK (odds >= 1.01),
    is_winner   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK ((match_id IS NULL) <> (fun_bet_id IS NULL))
);
CREATE INDEX IF NOT EXISTS idx_options_match ON bet_options(match_id);
CREATE INDEX IF NOT EXISTS idx_options_fun ON bet_options(fun_bet_id);

CREATE TABLE IF NOT EXISTS bets (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
    bet_option_id    TEXT NOT NULL REFERENCES bet_options(id) ON DELETE CASCADE,
    stake            BIGINT NOT NULL CHECK (stake > 0),
    potential_payout BIGINT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','won','lost','cancelled')),
    actual_payout    BIGINT,
    placed_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    settled_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_bets_user_status ON bets(user_id, status);
CREATE INDEX IF NOT EXISTS idx_bets_option_status ON bets(bet_option_id, status);
CREATE INDEX IF NOT EXISTS idx_bets_placed_at ON bets(placed_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS uq_bets_pending_user_option
    ON bets(user_id, bet_option_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS transactions (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
    amount           BIGINT NOT NULL,
    transaction_type TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    bet_id           TEXT REFERENCES bets(id) ON DELETE SET NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
`
