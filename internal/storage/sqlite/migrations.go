package sqlite

// Schema defines the SQLite database schema
const Schema = `
-- Probe results, one row per check
CREATE TABLE IF NOT EXISTS probe_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint TEXT NOT NULL,
	url TEXT NOT NULL,
	method TEXT NOT NULL,
	outcome TEXT NOT NULL,
	status_code INTEGER,
	latency_ms REAL,
	size_bytes INTEGER,
	error TEXT NOT NULL DEFAULT '',
	checks_json TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_probe_results_endpoint ON probe_results(endpoint);
CREATE INDEX IF NOT EXISTS idx_probe_results_outcome ON probe_results(outcome);
CREATE INDEX IF NOT EXISTS idx_probe_results_timestamp ON probe_results(timestamp DESC);

-- Windowed SLA metrics snapshots
CREATE TABLE IF NOT EXISTS sla_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint TEXT NOT NULL,
	window_start TIMESTAMP NOT NULL,
	window_end TIMESTAMP NOT NULL,
	total INTEGER NOT NULL,
	success INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	availability REAL NOT NULL,
	error_rate REAL NOT NULL,
	avg_latency_ms REAL NOT NULL,
	min_latency_ms REAL NOT NULL,
	max_latency_ms REAL NOT NULL,
	p95_latency_ms REAL NOT NULL,
	p99_latency_ms REAL NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sla_metrics_endpoint ON sla_metrics(endpoint, window_end DESC);

-- Alerts (one row per alert, updated on repeat and resolution)
CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	endpoint TEXT NOT NULL,
	alert_type TEXT NOT NULL,
	cause TEXT NOT NULL,
	severity TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	repeat_count INTEGER NOT NULL DEFAULT 0,
	resolved BOOLEAN NOT NULL DEFAULT 0,
	resolved_by TEXT NOT NULL DEFAULT '',
	resolution_reason TEXT NOT NULL DEFAULT '',
	alert_json TEXT NOT NULL,
	first_occurrence TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP,
	timestamp TIMESTAMP NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_alerts_endpoint ON alerts(endpoint);
CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved);

-- Latest outage state (one row per endpoint)
CREATE TABLE IF NOT EXISTS outage_states (
	endpoint TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	consecutive_failures INTEGER NOT NULL,
	failures_in_window INTEGER NOT NULL,
	state_json TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

-- Outage transitions
CREATE TABLE IF NOT EXISTS outage_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint TEXT NOT NULL,
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	reason TEXT NOT NULL,
	consecutive_failures INTEGER NOT NULL,
	old_status TEXT NOT NULL,
	new_status TEXT NOT NULL,
	outage_duration_seconds REAL,
	metadata_json TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_outage_events_endpoint ON outage_events(endpoint, timestamp DESC);
`
