package db

// EnsureSchema creates the pipeline tables if they are missing. Raw item
// tables have no update path for core fields; digests are immutable and
// delivery state lives exclusively in the digest_sends ledger.
func EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS videos (
			video_id     TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			url          TEXT NOT NULL,
			channel_id   TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			transcript   TEXT,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			guid         TEXT NOT NULL,
			source       TEXT NOT NULL,
			title        TEXT NOT NULL,
			url          TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			markdown     TEXT,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (source, guid)
		)`,
		`CREATE TABLE IF NOT EXISTS digests (
			id          TEXT PRIMARY KEY,
			source_type TEXT NOT NULL,
			item_id     TEXT NOT NULL,
			url         TEXT NOT NULL,
			title       TEXT NOT NULL,
			summary     TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_channels (
			user_id    TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			PRIMARY KEY (user_id, channel_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_subscriptions (
			user_id                 TEXT PRIMARY KEY,
			status                  TEXT NOT NULL,
			plan                    TEXT NOT NULL DEFAULT '',
			trial_started_at        TIMESTAMPTZ NOT NULL,
			subscription_started_at TIMESTAMPTZ,
			expires_at              TIMESTAMPTZ,
			updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS digest_sends (
			digest_id TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			sent_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (digest_id, user_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
