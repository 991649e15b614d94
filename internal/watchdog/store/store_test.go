package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var stateColumns = []string{"user_id", "check_in_interval_hours", "alert_message", "last_check_in", "alert_sent"}

type countingProfiles struct {
	calls   int
	profile *models.Profile
	err     error
}

func (c *countingProfiles) GetProfile(_ context.Context, _ string) (*models.Profile, error) {
	c.calls++
	return c.profile, c.err
}

// ==========================
// StateStore
// ==========================

func TestStateStore_QueryUnalertedWithCheckIn(t *testing.T) {
	db, mock := setupMockDB(t)
	checkIn := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT user_id, check_in_interval_hours, alert_message, last_check_in, alert_sent`).
		WillReturnRows(sqlmock.NewRows(stateColumns).
			AddRow("user-1", 24, "{user_name} missed check-in ({interval}h)", checkIn, false).
			AddRow("user-2", 12, nil, checkIn, false).
			AddRow("user-3", 6, "never", nil, false))

	states, err := NewStateStore(db, logger.NewTestLogger(t)).QueryUnalertedWithCheckIn(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.Equal(t, "user-1", states[0].SubjectID)
	assert.Equal(t, 24, states[0].IntervalHours)
	assert.Equal(t, "{user_name} missed check-in ({interval}h)", states[0].AlertMessageTemplate)
	require.NotNil(t, states[0].LastCheckIn)
	assert.True(t, checkIn.Equal(*states[0].LastCheckIn))
	assert.Equal(t, models.AlertStateArmed, states[0].State)

	assert.Equal(t, "", states[1].AlertMessageTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStore_QueryFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT user_id`).WillReturnError(errors.New("connection refused"))

	_, err := NewStateStore(db, logger.NewNoOpLogger()).QueryUnalertedWithCheckIn(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStateStore_SetAlerted(t *testing.T) {
	tests := []struct {
		name     string
		result   driverResult
		execErr  error
		wantErr  error
		anyError bool
	}{
		{name: "one row updated", result: driverResult{rows: 1}},
		{name: "subject vanished", result: driverResult{rows: 0}, wantErr: ErrSubjectNotFound},
		{name: "database error", execErr: errors.New("deadlock"), anyError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			exp := mock.ExpectExec(`UPDATE user_settings SET alert_sent = true WHERE user_id = \$1`).
				WithArgs("user-1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.result.rows))
			}

			err := NewStateStore(db, logger.NewNoOpLogger()).SetAlerted(context.Background(), "user-1")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyError:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

type driverResult struct {
	rows int64
}

// ==========================
// ProfileStore / ContactStore
// ==========================

func TestProfileStore_GetProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	profiles := NewProfileStore(db)

	mock.ExpectQuery(`SELECT id, full_name, email FROM profiles WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email"}).AddRow("user-1", nil, "alex@example.com"))
	mock.ExpectQuery(`SELECT id, full_name, email FROM profiles WHERE id = \$1`).
		WithArgs("user-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, full_name, email FROM profiles WHERE id = \$1`).
		WithArgs("user-3").
		WillReturnError(errors.New("timeout"))

	p, err := profiles.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, &models.Profile{SubjectID: "user-1", Email: "alex@example.com"}, p)

	p, err = profiles.GetProfile(context.Background(), "user-2")
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = profiles.GetProfile(context.Background(), "user-3")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactStore_GetContactsOrderedByPriority(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT id, user_id, name, phone_number, priority`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "phone_number", "priority"}).
			AddRow("c1", "user-1", "Sam", "+15550000001", 1).
			AddRow("c2", "user-1", nil, "+15550000002", 2))

	contacts, err := NewContactStore(db).GetContactsOrderedByPriority(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, models.Contact{ID: "c1", SubjectID: "user-1", Name: "Sam", PhoneNumber: "+15550000001", Priority: 1}, contacts[0])
	assert.Equal(t, "", contacts[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// CachedProfileStore
// ==========================

func TestCachedProfileStore_MissPopulatesCache(t *testing.T) {
	profile := &models.Profile{SubjectID: "user-1", DisplayName: "Alex"}
	cachedData, _ := json.Marshal(profile)

	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet(profileCacheKey("user-1")).RedisNil()
	redisMock.ExpectSet(profileCacheKey("user-1"), cachedData, 5*time.Minute).SetVal("OK")

	inner := &countingProfiles{profile: profile}
	cache := NewCachedProfileStore(inner, redisClient, 5*time.Minute, logger.NewTestLogger(t))

	got, err := cache.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile, got)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedProfileStore_RedisFailureFallsThrough(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet(profileCacheKey("user-1")).SetErr(errors.New("redis down"))

	inner := &countingProfiles{}
	cache := NewCachedProfileStore(inner, redisClient, time.Minute, logger.NewTestLogger(t))

	got, err := cache.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedProfileStore_HitSkipsDatabase(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingProfiles{profile: &models.Profile{SubjectID: "user-1", DisplayName: "Alex"}}
	cache := NewCachedProfileStore(inner, rdb, time.Minute, logger.NewTestLogger(t))

	for i := 0; i < 3; i++ {
		got, err := cache.GetProfile(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Alex", got.DisplayName)
	}
	assert.Equal(t, 1, inner.calls)
	assert.True(t, mr.Exists(profileCacheKey("user-1")))

	mr.FastForward(2 * time.Minute)
	_, err = cache.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProfileStore_LookupErrorNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	inner := &countingProfiles{err: errors.New("db down")}
	cache := NewCachedProfileStore(inner, rdb, time.Minute, logger.NewNoOpLogger())

	_, err = cache.GetProfile(context.Background(), "user-1")
	assert.Error(t, err)
	assert.False(t, mr.Exists(profileCacheKey("user-1")))
}
