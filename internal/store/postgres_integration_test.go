package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canvasd/internal/history"
)

// Integration tests are enabled when CANVASD_DATABASE_URL is set. In
// non-CI runs, unreachable Postgres skips these tests to keep local runs
// fast.

func TestPostgresBackend_AppendResetAndReload(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })

	ctx := context.Background()
	if err := ApplySchema(ctx, pool, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	backend, err := NewPostgresBackend(pool, "session-1", WithSchema(schema))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	m1 := history.NewMessage(1, 0, []byte("hello"))
	if err := backend.HistoryAdd(m1); err != nil {
		t.Fatalf("add: %v", err)
	}
	m2 := history.NewMessage(2, 0, []byte("world"))
	if err := backend.HistoryAdd(m2); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := backend.HistoryReset([]history.Message{m2}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	start, err := backend.OpenResetStream(nil)
	if err != nil || start != history.StreamResetStartOk {
		t.Fatalf("open reset stream: %v %v", start, err)
	}
	if _, err := backend.AddResetStreamMessage(m1); err != nil {
		t.Fatalf("add reset stream message: %v", err)
	}
	count, size, err := backend.ResolveResetStream()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if count != 1 || size == 0 {
		t.Fatalf("unexpected resolve result: count=%d size=%d", count, size)
	}

	if backend.HasThumbnail() {
		t.Fatalf("expected no thumbnail yet")
	}
	if !backend.SetThumbnail([]byte{0x89, 0x50}) {
		t.Fatalf("set thumbnail failed")
	}
	if !backend.HasThumbnail() {
		t.Fatalf("expected thumbnail to be recorded")
	}

	if err := backend.HistoryAddBan(1, "alice", "127.0.0.1", "", "", "mod"); err != nil {
		t.Fatalf("add ban: %v", err)
	}
	if err := backend.HistoryRemoveBan(1); err != nil {
		t.Fatalf("remove ban: %v", err)
	}
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("CANVASD_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: CANVASD_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse CANVASD_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (CANVASD_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func shouldSkipIntegration(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "canvasd_store_it_" + strings.ToLower(randomHex(8))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "fallback"
	}
	return fmt.Sprintf("%x", buf)
}
