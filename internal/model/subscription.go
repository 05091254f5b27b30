package model

import "time"

const (
	StatusTrial   = "trial"
	StatusActive  = "active"
	StatusExpired = "expired"
)

type UserSubscription struct {
	UserID                string
	Status                string
	Plan                  string
	TrialStartedAt        time.Time
	SubscriptionStartedAt *time.Time
	ExpiresAt             *time.Time
	UpdatedAt             time.Time
}

// IsEligible reports whether the user may receive content right now.
// Active subscriptions without an expiry never lapse; trials are only
// eligible while unexpired. Expiry is derived, not a stored transition.
func (s UserSubscription) IsEligible(now time.Time) bool {
	switch s.Status {
	case StatusActive:
		return s.ExpiresAt == nil || s.ExpiresAt.After(now)
	case StatusTrial:
		return s.ExpiresAt != nil && s.ExpiresAt.After(now)
	default:
		return false
	}
}

// EligibleUser is one entry of the per-run subscription snapshot: a user
// cleared for delivery together with their channel subscriptions.
type EligibleUser struct {
	UserID     string
	Status     string
	Plan       string
	ChannelIDs []string
}
