// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/models"
	"overdue-watchdog/internal/watchdog/escalation"
	"overdue-watchdog/internal/watchdog/notify"
	"overdue-watchdog/internal/watchdog/runner"
	"overdue-watchdog/internal/watchdog/store"

	_ "github.com/lib/pq"
)

// These tests need a disposable postgres (E2E_POSTGRES_DSN) and optionally redis
// (E2E_REDIS_ADDR). They create and drop their own tables.

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	full_name TEXT,
	email TEXT
);
CREATE TABLE IF NOT EXISTS user_settings (
	user_id TEXT PRIMARY KEY,
	check_in_interval_hours INTEGER NOT NULL,
	alert_message TEXT,
	last_check_in TIMESTAMPTZ,
	alert_sent BOOLEAN NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS emergency_contacts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT,
	phone_number TEXT NOT NULL,
	priority INTEGER NOT NULL
);`

func openDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("E2E_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("E2E_POSTGRES_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	_, err = db.Exec(schema)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE profiles, user_settings, emergency_contacts`)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(`DROP TABLE IF EXISTS profiles, user_settings, emergency_contacts`)
		db.Close()
	})
	return db
}

func seed(t *testing.T, db *sql.DB, now time.Time) {
	stmts := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO profiles (id, full_name, email) VALUES ($1, $2, $3)`, []interface{}{"alex", "Alex", "alex@example.com"}},
		{`INSERT INTO profiles (id, full_name, email) VALUES ($1, NULL, $2)`, []interface{}{"sam", "sam@example.com"}},
		{`INSERT INTO user_settings VALUES ($1, 24, $2, $3, false)`, []interface{}{"alex", "{user_name} missed check-in ({interval}h)", now.Add(-25 * time.Hour)}},
		{`INSERT INTO user_settings VALUES ($1, 24, $2, $3, false)`, []interface{}{"sam", "{user_name} is quiet", now.Add(-30 * time.Hour)}},
		{`INSERT INTO user_settings VALUES ($1, 24, $2, $3, false)`, []interface{}{"on-time", "x", now.Add(-24 * time.Hour)}},
		{`INSERT INTO user_settings VALUES ($1, 1, $2, NULL, false)`, []interface{}{"never", "x"}},
		{`INSERT INTO emergency_contacts VALUES ($1, $2, $3, $4, $5)`, []interface{}{"c2", "alex", "Kim", "+15550000002", 2}},
		{`INSERT INTO emergency_contacts VALUES ($1, $2, $3, $4, $5)`, []interface{}{"c1", "alex", "Jo", "+15550000001", 1}},
	}
	for _, s := range stmts {
		_, err := db.Exec(s.query, s.args...)
		require.NoError(t, err)
	}
}

func newRunner(t *testing.T, db *sql.DB) *runner.Runner {
	log := logger.NewTestLogger(t)
	cfg := config.WatchdogConfig{WorkerPoolSize: 2, ContactConcurrency: 1, FallbackDisplayName: "A user"}

	states := store.NewStateStore(db, log)
	var profiles store.ProfileReader = store.NewProfileStore(db)
	if addr := os.Getenv("E2E_REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { rdb.Close() })
		profiles = store.NewCachedProfileStore(profiles, rdb, time.Minute, log)
	}

	engine := escalation.NewEngine(notify.NewDryRun(log), states, cfg, log)
	return runner.NewRunner(states, profiles, store.NewContactStore(db), engine, cfg, log)
}

func alertSent(t *testing.T, db *sql.DB, subjectID string) bool {
	var sent bool
	require.NoError(t, db.QueryRow(`SELECT alert_sent FROM user_settings WHERE user_id = $1`, subjectID).Scan(&sent))
	return sent
}

func TestOverdueRun_EndToEnd(t *testing.T) {
	db := openDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, db, now)

	r := newRunner(t, db)
	ctx := runner.WithTrigger(context.Background(), "e2e")

	first, err := r.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Evaluated)
	assert.Equal(t, 2, first.UsersOverdue)
	assert.ElementsMatch(t, []models.EscalationOutcome{
		{SubjectID: "alex", Status: models.StatusAlerted, ContactsNotified: 2},
		{SubjectID: "sam", Status: models.StatusSkippedNoContacts},
	}, first.Outcomes)

	assert.True(t, alertSent(t, db, "alex"))
	assert.False(t, alertSent(t, db, "sam"))
	assert.False(t, alertSent(t, db, "on-time"))

	// alex is not re-alerted, sam is re-evaluated and skipped again
	second, err := r.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []models.EscalationOutcome{
		{SubjectID: "sam", Status: models.StatusSkippedNoContacts},
	}, second.Outcomes)
}
