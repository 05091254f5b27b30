package repository

import (
	"database/sql"
	"time"

	"aidigest/internal/model"

	"github.com/lib/pq"
)

// SubscriptionRepository owns subscription state and per-user channel sets.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CreateSubscription starts a trial for a new user. Safe to call again for
// the same user; the existing row wins.
func (r *SubscriptionRepository) CreateSubscription(userID string, trialDays int) (bool, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(trialDays) * 24 * time.Hour)

	var id string
	err := r.db.QueryRow(`
		INSERT INTO user_subscriptions(user_id, status, trial_started_at, expires_at)
		VALUES($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING user_id
	`, userID, model.StatusTrial, now, expiresAt).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *SubscriptionRepository) GetSubscription(userID string) (*model.UserSubscription, error) {
	var s model.UserSubscription
	err := r.db.QueryRow(`
		SELECT user_id, status, plan, trial_started_at, subscription_started_at, expires_at, updated_at
		FROM user_subscriptions
		WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.Status, &s.Plan, &s.TrialStartedAt, &s.SubscriptionStartedAt, &s.ExpiresAt, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &s, nil
}

// ActivateSubscription flips a user to active after a verified payment.
// subscription_started_at is only set on the first activation.
func (r *SubscriptionRepository) ActivateSubscription(userID, plan string, expiresAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE user_subscriptions
		SET status = $2,
			plan = $3,
			expires_at = $4,
			subscription_started_at = COALESCE(subscription_started_at, NOW()),
			updated_at = NOW()
		WHERE user_id = $1
	`, userID, model.StatusActive, plan, expiresAt)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetEligibleUsers snapshots every user currently cleared for delivery,
// with their channel subscriptions. Evaluated once per pipeline run.
func (r *SubscriptionRepository) GetEligibleUsers(now time.Time) ([]model.EligibleUser, error) {
	rows, err := r.db.Query(`
		SELECT user_id, status, plan
		FROM user_subscriptions
		WHERE (status = $1 AND (expires_at IS NULL OR expires_at > $3))
			OR (status = $2 AND expires_at > $3)
	`, model.StatusActive, model.StatusTrial, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.EligibleUser
	for rows.Next() {
		var u model.EligibleUser
		if err := rows.Scan(&u.UserID, &u.Status, &u.Plan); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		channels, err := r.GetUserChannels(users[i].UserID)
		if err != nil {
			return nil, err
		}
		users[i].ChannelIDs = channels
	}

	return users, nil
}

func (r *SubscriptionRepository) GetUserChannels(userID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT channel_id FROM user_channels WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		channels = append(channels, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return channels, nil
}

// ReplaceUserChannels swaps a user's channel set for a new one.
func (r *SubscriptionRepository) ReplaceUserChannels(userID string, channelIDs []string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM user_channels WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}

	if len(channelIDs) > 0 {
		_, err = tx.Exec(`
			INSERT INTO user_channels(user_id, channel_id)
			SELECT $1, unnest($2::text[])
			ON CONFLICT (user_id, channel_id) DO NOTHING
		`, userID, pq.Array(channelIDs))
		if err != nil {
			return 0, err
		}
	}

	return len(channelIDs), tx.Commit()
}

// GetUniqueChannelIDs returns the union of channel subscriptions across
// all users, used to scope a single shared scrape per run.
func (r *SubscriptionRepository) GetUniqueChannelIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT channel_id FROM user_channels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		channels = append(channels, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return channels, nil
}
