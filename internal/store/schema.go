package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS subscriptions (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    price                REAL NOT NULL DEFAULT 0,
    interval             TEXT NOT NULL,
    start_date           TEXT NOT NULL,
    category             TEXT NOT NULL DEFAULT '',
    contract_term_months INTEGER,
    notice_period        INTEGER,
    notice_unit          TEXT NOT NULL DEFAULT '',
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_name ON subscriptions(name);
`
