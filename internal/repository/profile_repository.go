package repository

import (
	"context"
	"encoding/json"

	"aidigest/db"
	"aidigest/internal/model"

	"github.com/redis/go-redis/v9"
)

// ProfileRepository reads personalization documents from the profile
// store. Profiles are written by the API; signup documents (email) are
// written by the auth service and are read-only here.
type ProfileRepository struct {
	client *redis.Client
}

func NewProfileRepository(client *redis.Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

// GetProfile returns nil without error when the user has no profile yet.
func (r *ProfileRepository) GetProfile(userID string) (*model.UserProfile, error) {
	raw, err := r.client.Get(context.Background(), db.ProfileKeyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var profile model.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) SaveProfile(userID string, profile *model.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return r.client.Set(context.Background(), db.ProfileKeyPrefix+userID, raw, 0).Err()
}

// GetSignupEmail returns the email the user registered with, or "" when
// the signup document is missing.
func (r *ProfileRepository) GetSignupEmail(userID string) (string, error) {
	raw, err := r.client.Get(context.Background(), db.UserKeyPrefix+userID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var doc struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", err
	}
	return doc.Email, nil
}
