// Package store reads watchdog settings, profiles and emergency contacts from postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/models"
)

const (
	queryUnalertedWithCheckIn = `SELECT user_id, check_in_interval_hours, alert_message, last_check_in, alert_sent
		FROM user_settings
		WHERE alert_sent = false AND last_check_in IS NOT NULL`

	updateAlertSent = `UPDATE user_settings SET alert_sent = true WHERE user_id = $1`

	queryProfile = `SELECT id, full_name, email FROM profiles WHERE id = $1`

	queryContactsByPriority = `SELECT id, user_id, name, phone_number, priority
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY priority ASC`
)

// ErrSubjectNotFound is returned when setting the flag touches no row.
var ErrSubjectNotFound = errors.New("subject not found")

// StateStore reads and flags rows of user_settings.
type StateStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStateStore(db *sql.DB, log logger.Logger) *StateStore {
	return &StateStore{db: db, logger: log.WithFields(map[string]interface{}{"component": "state_store"})}
}

// QueryUnalertedWithCheckIn returns every armed subject that has checked in at least once.
func (s *StateStore) QueryUnalertedWithCheckIn(ctx context.Context) ([]models.WatchdogState, error) {
	rows, err := s.db.QueryContext(ctx, queryUnalertedWithCheckIn)
	if err != nil {
		return nil, fmt.Errorf("query user_settings: %w", err)
	}
	defer rows.Close()

	var states []models.WatchdogState
	for rows.Next() {
		var (
			st          models.WatchdogState
			template    sql.NullString
			lastCheckIn sql.NullTime
			alertSent   bool
		)
		if err := rows.Scan(&st.SubjectID, &st.IntervalHours, &template, &lastCheckIn, &alertSent); err != nil {
			return nil, fmt.Errorf("scan user_settings: %w", err)
		}
		if !lastCheckIn.Valid {
			continue
		}
		checkIn := lastCheckIn.Time
		st.LastCheckIn = &checkIn
		st.AlertMessageTemplate = template.String
		st.State = models.AlertStateFromFlag(alertSent)
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user_settings: %w", err)
	}

	s.logger.Debug("loaded watchdog states", map[string]interface{}{"count": len(states)})
	return states, nil
}

// SetAlerted moves the subject to AlertStateAlerted.
func (s *StateStore) SetAlerted(ctx context.Context, subjectID string) error {
	res, err := s.db.ExecContext(ctx, updateAlertSent, subjectID)
	if err != nil {
		return fmt.Errorf("update user_settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	return nil
}

// ProfileStore reads the profiles table.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetProfile returns nil, nil when the subject has no profile row.
func (p *ProfileStore) GetProfile(ctx context.Context, subjectID string) (*models.Profile, error) {
	var (
		profile  models.Profile
		fullName sql.NullString
		email    sql.NullString
	)
	err := p.db.QueryRowContext(ctx, queryProfile, subjectID).Scan(&profile.SubjectID, &fullName, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	profile.DisplayName = fullName.String
	profile.Email = email.String
	return &profile, nil
}

// ContactStore reads emergency_contacts.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (c *ContactStore) GetContactsOrderedByPriority(ctx context.Context, subjectID string) ([]models.Contact, error) {
	rows, err := c.db.QueryContext(ctx, queryContactsByPriority, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var (
			contact models.Contact
			name    sql.NullString
		)
		if err := rows.Scan(&contact.ID, &contact.SubjectID, &name, &contact.PhoneNumber, &contact.Priority); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contact.Name = name.String
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}
