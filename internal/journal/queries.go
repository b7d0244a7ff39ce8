package journal

const createTableQuery = `
CREATE TABLE IF NOT EXISTS dispatch_attempts (
    attempt_id   UUID PRIMARY KEY,
    job_type     TEXT NOT NULL,
    event_kind   TEXT NOT NULL,
    trigger_code INTEGER NOT NULL,
    label        TEXT NOT NULL DEFAULT '',
    event_time   DOUBLE PRECISION NOT NULL DEFAULT 0,
    status       TEXT NOT NULL,
    error        TEXT,
    sequence     TEXT,
    duration_ms  BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertAttemptQuery = `
INSERT INTO dispatch_attempts
    (attempt_id, job_type, event_kind, trigger_code, label, event_time,
     status, error, sequence, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (attempt_id) DO NOTHING`
