// Package testutil provides helpers for integration tests that need a real
// MySQL or Redis instance.  Tests using these helpers skip themselves when
// the backing service is unreachable, so the pure unit tests still run in
// environments without infrastructure.
package testutil

import (
    "context"
    "database/sql"
    "os"
    "testing"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/flash-sale/internal/database"
    "github.com/iliyamo/flash-sale/internal/model"
)

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// NewTestDB opens a MySQL pool against the test database and ensures the
// schema exists.  Connection parameters come from TEST_DB_* variables with
// local defaults.  The test is skipped when MySQL is unreachable.
func NewTestDB(t *testing.T) *sql.DB {
    t.Helper()
    user := getenv("TEST_DB_USER", "root")
    pass := os.Getenv("TEST_DB_PASS")
    host := getenv("TEST_DB_HOST", "127.0.0.1")
    port := getenv("TEST_DB_PORT", "3306")
    name := getenv("TEST_DB_NAME", "flash_sale_test")

    db, err := database.Open(user, pass, host, port, name)
    if err != nil {
        t.Skipf("skipping MySQL integration tests: %v", err)
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        db.Close()
        t.Skipf("skipping MySQL integration tests: %v", err)
    }
    if err := database.EnsureSchema(ctx, db); err != nil {
        db.Close()
        t.Fatalf("ensure schema: %v", err)
    }

    t.Cleanup(func() { db.Close() })
    return db
}

// NewTestRedis connects to the test Redis instance, flushing the selected
// database so tests start clean.  Skipped when Redis is unreachable.
// Defaults to DB 9 to stay away from any local development state.
func NewTestRedis(t *testing.T) *redis.Client {
    t.Helper()
    addr := getenv("TEST_REDIS_ADDR", "127.0.0.1:6379")
    rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 9})

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := rdb.Ping(ctx).Err(); err != nil {
        rdb.Close()
        t.Skipf("skipping Redis integration tests: %v", err)
    }
    if err := rdb.FlushDB(ctx).Err(); err != nil {
        rdb.Close()
        t.Fatalf("flush test redis: %v", err)
    }

    t.Cleanup(func() { rdb.Close() })
    return rdb
}

// TruncateAll wipes the mutable tables between tests.
func TruncateAll(t *testing.T, ctx context.Context, db *sql.DB) {
    t.Helper()
    for _, table := range []string{"reservations", "flash_sales", "users"} {
        if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
            t.Fatalf("truncate %s: %v", table, err)
        }
    }
}

// InsertSale seeds a sale row in the given status and returns its id.  The
// sale window is centered on now so ACTIVE sales accept purchases
// immediately.
func InsertSale(t *testing.T, ctx context.Context, db *sql.DB, product string, total, maxPerUser uint32, status string) uint64 {
    t.Helper()
    now := time.Now().UTC()
    res, err := db.ExecContext(ctx,
        `INSERT INTO flash_sales (product_name, total_quantity, max_per_user, starts_at, ends_at, status)
         VALUES (?,?,?,?,?,?)`,
        product, total, maxPerUser,
        now.Add(-time.Hour).Format("2006-01-02 15:04:05"),
        now.Add(time.Hour).Format("2006-01-02 15:04:05"),
        status)
    if err != nil {
        t.Fatalf("insert sale: %v", err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        t.Fatalf("insert sale id: %v", err)
    }
    return uint64(id)
}

// InsertUser seeds a user row and returns its id.  The password hash is a
// throwaway value; tests that exercise login hash their own.
func InsertUser(t *testing.T, ctx context.Context, db *sql.DB, email string) uint64 {
    t.Helper()
    res, err := db.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
        email, "x", model.RoleCustomer)
    if err != nil {
        t.Fatalf("insert user: %v", err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        t.Fatalf("insert user id: %v", err)
    }
    return uint64(id)
}
