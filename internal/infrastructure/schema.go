package infrastructure

// SchemaStatements is the inventory DDL, applied one statement at a time so a
// failure reports the statement that broke.
//
// audit_logs.details is TEXT rather than JSONB: the chain hash covers the
// serialized bytes, and JSONB does not preserve them.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS donors (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		blood_type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS blood_units (
		id            UUID PRIMARY KEY,
		blood_type    TEXT NOT NULL,
		donation_date TIMESTAMPTZ NOT NULL,
		donor_id      TEXT NOT NULL DEFAULT '',
		donor_name    TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'Available',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Covers the FEFO selection scan: type + status filter, oldest first.
	`CREATE INDEX IF NOT EXISTS idx_blood_units_selection
		ON blood_units (blood_type, status, donation_date)`,

	`CREATE TABLE IF NOT EXISTS issuances (
		id         UUID PRIMARY KEY,
		unit_id    UUID NOT NULL REFERENCES blood_units (id),
		blood_type TEXT NOT NULL,
		issue_type TEXT NOT NULL,
		issued_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id             BIGSERIAL PRIMARY KEY,
		ts             TIMESTAMPTZ NOT NULL,
		actor_id       TEXT NOT NULL DEFAULT '',
		actor_name     TEXT NOT NULL DEFAULT '',
		actor_type     TEXT NOT NULL,
		action         TEXT NOT NULL,
		entity_name    TEXT NOT NULL DEFAULT '',
		entity_id      TEXT NOT NULL DEFAULT '',
		details        TEXT NOT NULL DEFAULT '',
		success        BOOLEAN NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		ip             TEXT NOT NULL DEFAULT '',
		user_agent     TEXT NOT NULL DEFAULT '',
		method         TEXT NOT NULL DEFAULT '',
		path           TEXT NOT NULL DEFAULT '',
		prev_hash      TEXT NOT NULL DEFAULT '',
		hash           TEXT NOT NULL
	)`,
}
