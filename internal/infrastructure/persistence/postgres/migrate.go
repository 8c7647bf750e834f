package postgres

import "context"

// Schema is applied idempotently on startup. The exclusion constraint on
// bookings is the durable guarantee against true interval overlap. The
// cleanup buffer applies to an existing booking's end only, so it cannot be
// expressed in a symmetric range constraint; BookingRepository.Create
// enforces it under a room lock before inserting. The partial unique index
// on payments enforces at most one active payment per booking.
const schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS rooms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	tier        INT NOT NULL DEFAULT 0,
	hourly_rate BIGINT NOT NULL,
	shift_rate  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id               TEXT PRIMARY KEY,
	room_id          TEXT NOT NULL,
	user_id          TEXT NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ NOT NULL,
	status           TEXT NOT NULL,
	financial_status TEXT NOT NULL,
	gross_amount     BIGINT NOT NULL,
	discount_amount  BIGINT NOT NULL,
	net_amount       BIGINT NOT NULL,
	credit_amount    BIGINT NOT NULL,
	cash_amount      BIGINT NOT NULL,
	credits_used     JSONB NOT NULL DEFAULT '[]',
	coupon_code      TEXT,
	coupon_snapshot  JSONB,
	expires_at       TIMESTAMPTZ,
	cancel_reason    TEXT,
	cancel_source    TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
		room_id WITH =,
		tstzrange(start_time, end_time) WITH &&
	) WHERE (status IN ('PENDING', 'CONFIRMED'))
);

CREATE INDEX IF NOT EXISTS bookings_user_idx ON bookings (user_id);
CREATE INDEX IF NOT EXISTS bookings_pending_expiry_idx ON bookings (expires_at) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS credits (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	room_id          TEXT,
	tier             INT,
	usage_type       TEXT NOT NULL DEFAULT '',
	amount           BIGINT NOT NULL,
	remaining_amount BIGINT NOT NULL,
	status           TEXT NOT NULL,
	expires_at       TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT credits_remaining_bounds CHECK (remaining_amount >= 0 AND remaining_amount <= amount)
);

CREATE INDEX IF NOT EXISTS credits_user_idx ON credits (user_id);

CREATE TABLE IF NOT EXISTS coupons (
	code             TEXT PRIMARY KEY,
	discount_percent INT NOT NULL,
	min_amount       BIGINT NOT NULL DEFAULT 0,
	valid_from       TIMESTAMPTZ,
	valid_until      TIMESTAMPTZ,
	admin_override   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS coupon_usages (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	code       TEXT NOT NULL,
	context    TEXT NOT NULL,
	booking_id TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT coupon_usages_single_use UNIQUE (user_id, code, context)
);

CREATE TABLE IF NOT EXISTS payments (
	id              TEXT PRIMARY KEY,
	booking_id      TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	amount          BIGINT NOT NULL,
	status          TEXT NOT NULL,
	method          TEXT NOT NULL,
	external_id     TEXT,
	external_url    TEXT,
	pix_code        TEXT,
	idempotency_key TEXT NOT NULL UNIQUE,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS payments_one_active_per_booking
	ON payments (booking_id)
	WHERE status IN ('PENDING', 'APPROVED', 'IN_PROCESS');
CREATE INDEX IF NOT EXISTS payments_external_id_idx ON payments (external_id);

CREATE TABLE IF NOT EXISTS webhook_events (
	external_event_id TEXT PRIMARY KEY,
	event_type        TEXT NOT NULL,
	processed_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         BIGSERIAL PRIMARY KEY,
	action     TEXT NOT NULL,
	actor_id   TEXT NOT NULL,
	target_id  TEXT,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *DB) error {
	_, err := db.Pool.Exec(ctx, schema)
	return err
}
