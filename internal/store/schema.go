package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplySchema creates the tables PostgresBackend needs, if they do not
// already exist. It is idempotent and safe to call on every startup.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	messages := pgIdent(schema, "history_messages")
	pending := pgIdent(schema, "history_reset_pending")
	meta := pgIdent(schema, "history_meta")
	bans := pgIdent(schema, "history_bans")
	thumbs := pgIdent(schema, "history_thumbnails")

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  session_id TEXT NOT NULL,
  idx BIGINT NOT NULL,
  type SMALLINT NOT NULL,
  context_id SMALLINT NOT NULL,
  payload BYTEA NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (session_id, idx)
);

CREATE TABLE IF NOT EXISTS %s (
  session_id TEXT NOT NULL,
  idx BIGINT NOT NULL,
  type SMALLINT NOT NULL,
  context_id SMALLINT NOT NULL,
  payload BYTEA NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (session_id, idx)
);

CREATE TABLE IF NOT EXISTS %s (
  session_id TEXT PRIMARY KEY,
  size_in_bytes BIGINT NOT NULL DEFAULT 0,
  message_count BIGINT NOT NULL DEFAULT 0,
  override_size_limit BIGINT NOT NULL DEFAULT 0,
  auto_reset_threshold BIGINT NOT NULL DEFAULT 0,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %s (
  session_id TEXT NOT NULL,
  ban_id INT NOT NULL,
  username TEXT NOT NULL,
  ip TEXT NOT NULL,
  ext_auth_id TEXT NOT NULL DEFAULT '',
  sid TEXT NOT NULL DEFAULT '',
  banned_by TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  removed_at TIMESTAMPTZ NULL,
  PRIMARY KEY (session_id, ban_id)
);

CREATE TABLE IF NOT EXISTS %s (
  session_id TEXT PRIMARY KEY,
  data BYTEA NOT NULL,
  generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`, messages, pending, meta, bans, thumbs)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
