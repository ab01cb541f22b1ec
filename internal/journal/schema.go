package journal

// Schema creates the journal table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS opportunity_events (
	event_id        UUID PRIMARY KEY,
	batch_id        UUID NOT NULL,
	kind            TEXT NOT NULL,
	opportunity_id  TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	buy_exchange    TEXT NOT NULL,
	sell_exchange   TEXT NOT NULL,
	net_profit_pct  DOUBLE PRECISION,
	is_active       BOOLEAN NOT NULL,
	appeared_at     TIMESTAMPTZ,
	disappeared_at  TIMESTAMPTZ,
	occurred_at     TIMESTAMPTZ NOT NULL,
	record          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunity_events_id_time
	ON opportunity_events (opportunity_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_opportunity_events_kind_time
	ON opportunity_events (kind, occurred_at);
`

const insertEvent = `
	INSERT INTO opportunity_events (event_id, batch_id, kind, opportunity_id, symbol, buy_exchange, sell_exchange, net_profit_pct, is_active, appeared_at, disappeared_at, occurred_at, record)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (event_id) DO NOTHING
`
