package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canvasd/internal/history"
)

// ErrInvalidInput is returned for obviously malformed arguments, mirroring
// the sentinel style used by the other store packages in this codebase.
var ErrInvalidInput = errors.New("store: invalid input")

// PostgresBackend is a history.Backend backed by PostgreSQL. One instance
// is bound to a single session id; the caller (typically a gateway hub)
// constructs one per loaded SessionHistory.
//
// Ownership model:
//   - PostgresBackend does not own the pgx pool; the caller closes it.
//
// Concurrency model:
//   - SessionHistory already serializes calls into a Backend, but a
//     per-session transactional advisory lock is still taken around
//     writes so that a stray second process (e.g. during a rolling
//     deploy) cannot interleave writes and corrupt the index ordering.
type PostgresBackend struct {
	pool      *pgxpool.Pool
	schema    string
	sessionID string
}

// PostgresOption configures PostgresBackend.
type PostgresOption func(*PostgresBackend) error

// WithSchema sets the DB schema used by this backend (default: "canvasd").
func WithSchema(schema string) PostgresOption {
	return func(b *PostgresBackend) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		b.schema = schema
		return nil
	}
}

// NewPostgresBackend constructs a Postgres-backed history.Backend for the
// given session id.
func NewPostgresBackend(pool *pgxpool.Pool, sessionID string, opts ...PostgresOption) (*PostgresBackend, error) {
	if pool == nil || strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	b := &PostgresBackend{pool: pool, schema: "canvasd", sessionID: sessionID}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

func (b *PostgresBackend) lock(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, b.sessionID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (b *PostgresBackend) HistoryAdd(msg history.Message) error {
	ctx := context.Background()
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.lock(ctx, tx); err != nil {
		return err
	}

	messages := pgIdent(b.schema, "history_messages")
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+messages+` (session_id, idx, type, context_id, payload, created_at)
		 VALUES ($1, (SELECT COALESCE(MAX(idx), -1) + 1 FROM `+messages+` WHERE session_id = $1), $2, $3, $4, $5)`,
		b.sessionID, int32(msg.Type()), int32(msg.ContextID()), msg.Payload(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert history message: %w", err)
	}
	return tx.Commit(ctx)
}

func (b *PostgresBackend) HistoryReset(messages []history.Message) error {
	ctx := context.Background()
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.lock(ctx, tx); err != nil {
		return err
	}

	table := pgIdent(b.schema, "history_messages")
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE session_id = $1`, b.sessionID); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i, m := range messages {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (session_id, idx, type, context_id, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			b.sessionID, int64(i), int32(m.Type()), int32(m.ContextID()), m.Payload(), now,
		); err != nil {
			return fmt.Errorf("insert reset message: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (b *PostgresBackend) HistoryLoaded(size uint, messageCount int64) error {
	ctx := context.Background()
	meta := pgIdent(b.schema, "history_meta")
	_, err := b.pool.Exec(ctx,
		`INSERT INTO `+meta+` (session_id, size_in_bytes, message_count, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE SET size_in_bytes = $2, message_count = $3, updated_at = $4`,
		b.sessionID, int64(size), messageCount, time.Now().UTC(),
	)
	return err
}

func (b *PostgresBackend) HistoryAddBan(id int, username, ip, extAuthID, sid, bannedBy string) error {
	ctx := context.Background()
	bans := pgIdent(b.schema, "history_bans")
	_, err := b.pool.Exec(ctx,
		`INSERT INTO `+bans+` (session_id, ban_id, username, ip, ext_auth_id, sid, banned_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id, ban_id) DO NOTHING`,
		b.sessionID, id, username, ip, extAuthID, sid, bannedBy, time.Now().UTC(),
	)
	return err
}

func (b *PostgresBackend) HistoryRemoveBan(id int) error {
	ctx := context.Background()
	bans := pgIdent(b.schema, "history_bans")
	_, err := b.pool.Exec(ctx,
		`UPDATE `+bans+` SET removed_at = $1 WHERE session_id = $2 AND ban_id = $3`,
		time.Now().UTC(), b.sessionID, id,
	)
	return err
}

// OpenResetStream, AddResetStreamMessage, PrepareResetStream and
// ResolveResetStream stage reset content in a dedicated pending table
// rather than buffering it in memory, so a crash mid-reset leaves a
// recoverable trail instead of silently losing the in-flight stream.

func (b *PostgresBackend) OpenResetStream(seed []history.Message) (history.StreamResetStartResult, error) {
	ctx := context.Background()
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return history.StreamResetStartWriteError, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.lock(ctx, tx); err != nil {
		return history.StreamResetStartWriteError, err
	}

	pending := pgIdent(b.schema, "history_reset_pending")
	if _, err := tx.Exec(ctx, `DELETE FROM `+pending+` WHERE session_id = $1`, b.sessionID); err != nil {
		return history.StreamResetStartWriteError, err
	}
	now := time.Now().UTC()
	for i, m := range seed {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+pending+` (session_id, idx, type, context_id, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			b.sessionID, int64(i), int32(m.Type()), int32(m.ContextID()), m.Payload(), now,
		); err != nil {
			return history.StreamResetStartWriteError, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return history.StreamResetStartWriteError, err
	}
	return history.StreamResetStartOk, nil
}

func (b *PostgresBackend) AddResetStreamMessage(msg history.Message) (history.StreamResetAddResult, error) {
	ctx := context.Background()
	pending := pgIdent(b.schema, "history_reset_pending")
	_, err := b.pool.Exec(ctx,
		`INSERT INTO `+pending+` (session_id, idx, type, context_id, payload, created_at)
		 VALUES ($1, (SELECT COALESCE(MAX(idx), -1) + 1 FROM `+pending+` WHERE session_id = $1), $2, $3, $4, $5)`,
		b.sessionID, int32(msg.Type()), int32(msg.ContextID()), msg.Payload(), time.Now().UTC(),
	)
	if err != nil {
		return history.StreamResetAddConsumerError, err
	}
	return history.StreamResetAddOk, nil
}

func (b *PostgresBackend) PrepareResetStream() (history.StreamResetPrepareResult, error) {
	return history.StreamResetPrepareOk, nil
}

func (b *PostgresBackend) ResolveResetStream() (int64, uint, error) {
	ctx := context.Background()
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.lock(ctx, tx); err != nil {
		return 0, 0, err
	}

	messages := pgIdent(b.schema, "history_messages")
	pending := pgIdent(b.schema, "history_reset_pending")

	if _, err := tx.Exec(ctx, `DELETE FROM `+messages+` WHERE session_id = $1`, b.sessionID); err != nil {
		return 0, 0, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+messages+` (session_id, idx, type, context_id, payload, created_at)
		 SELECT session_id, idx, type, context_id, payload, created_at FROM `+pending+` WHERE session_id = $1`,
		b.sessionID,
	); err != nil {
		return 0, 0, err
	}

	var count int64
	var size int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(length(payload)), 0) FROM `+messages+` WHERE session_id = $1`,
		b.sessionID,
	).Scan(&count, &size); err != nil {
		return 0, 0, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM `+pending+` WHERE session_id = $1`, b.sessionID); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return count, uint(size), nil
}

func (b *PostgresBackend) DiscardResetStream() error {
	ctx := context.Background()
	pending := pgIdent(b.schema, "history_reset_pending")
	_, err := b.pool.Exec(ctx, `DELETE FROM `+pending+` WHERE session_id = $1`, b.sessionID)
	return err
}

func (b *PostgresBackend) HasThumbnail() bool {
	ctx := context.Background()
	thumbs := pgIdent(b.schema, "history_thumbnails")
	var n int
	err := b.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+thumbs+` WHERE session_id = $1`, b.sessionID).Scan(&n)
	return err == nil && n > 0
}

func (b *PostgresBackend) ThumbnailGeneratedAt() time.Time {
	ctx := context.Background()
	thumbs := pgIdent(b.schema, "history_thumbnails")
	var at time.Time
	if err := b.pool.QueryRow(ctx, `SELECT generated_at FROM `+thumbs+` WHERE session_id = $1`, b.sessionID).Scan(&at); err != nil {
		return time.Time{}
	}
	return at
}

func (b *PostgresBackend) SetThumbnail(data []byte) bool {
	ctx := context.Background()
	thumbs := pgIdent(b.schema, "history_thumbnails")
	_, err := b.pool.Exec(ctx,
		`INSERT INTO `+thumbs+` (session_id, data, generated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO UPDATE SET data = $2, generated_at = $3`,
		b.sessionID, data, time.Now().UTC(),
	)
	return err == nil
}

// OverrideSizeLimit and AutoResetThreshold read operator-set policy
// overrides; a session without an override row uses SessionHistory's
// configured defaults (0 means "no override").
func (b *PostgresBackend) OverrideSizeLimit() uint {
	return b.readPolicyUint("override_size_limit")
}

func (b *PostgresBackend) AutoResetThreshold() uint {
	return b.readPolicyUint("auto_reset_threshold")
}

func (b *PostgresBackend) readPolicyUint(column string) uint {
	ctx := context.Background()
	meta := pgIdent(b.schema, "history_meta")
	var v int64
	if err := b.pool.QueryRow(ctx, `SELECT `+column+` FROM `+meta+` WHERE session_id = $1`, b.sessionID).Scan(&v); err != nil {
		return 0
	}
	if v < 0 {
		return 0
	}
	return uint(v)
}

var _ history.Backend = (*PostgresBackend)(nil)
