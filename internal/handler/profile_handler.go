package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aidigest/internal/model"
)

type ProfileStore interface {
	GetProfile(userID string) (*model.UserProfile, error)
	SaveProfile(userID string, profile *model.UserProfile) error
}

type SubscriptionStore interface {
	CreateSubscription(userID string, trialDays int) (bool, error)
	GetSubscription(userID string) (*model.UserSubscription, error)
	ActivateSubscription(userID, plan string, expiresAt time.Time) error
	GetUserChannels(userID string) ([]string, error)
	ReplaceUserChannels(userID string, channelIDs []string) (int, error)
}

type ProfileHandler struct {
	profiles      ProfileStore
	subscriptions SubscriptionStore
	trialDays     int
}

func NewProfileHandler(profiles ProfileStore, subscriptions SubscriptionStore, trialDays int) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, subscriptions: subscriptions, trialDays: trialDays}
}

// getUserID pulls the authenticated user from the gateway-set header.
func getUserID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user"})
		return
	}

	profile, err := h.profiles.GetProfile(userID)
	if err != nil {
		slog.Error("error fetching profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		Name:           profile.Name,
		Background:     profile.Background,
		ExpertiseLevel: profile.ExpertiseLevel,
		Interests:      profile.Interests,
		Preferences:    profile.Preferences,
		EmailTo:        profile.EmailTo,
	})
}

// SaveProfile upserts the profile document. The first save also opens the
// user's trial; repeat saves leave the existing subscription untouched.
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user"})
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	err := h.profiles.SaveProfile(userID, &model.UserProfile{
		Name:           req.Name,
		Background:     req.Background,
		ExpertiseLevel: req.ExpertiseLevel,
		Interests:      req.Interests,
		Preferences:    req.Preferences,
		EmailTo:        req.EmailTo,
	})
	if err != nil {
		slog.Error("error saving profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}

	created, err := h.subscriptions.CreateSubscription(userID, h.trialDays)
	if err != nil {
		slog.Error("error creating trial subscription", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if created {
		slog.Info("trial subscription started", "user_id", userID, "trial_days", h.trialDays)
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved", "trial_started": created})
}

func (h *ProfileHandler) GetChannels(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user"})
		return
	}

	channels, err := h.subscriptions.GetUserChannels(userID)
	if err != nil {
		slog.Error("error fetching channels", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, ChannelsResponse{ChannelIDs: channels})
}

func (h *ProfileHandler) SaveChannels(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user"})
		return
	}

	var req ChannelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	count, err := h.subscriptions.ReplaceUserChannels(userID, req.ChannelIDs)
	if err != nil {
		slog.Error("error saving channels", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved", "count": count})
}

func (h *ProfileHandler) GetSubscription(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user"})
		return
	}

	sub, err := h.subscriptions.GetSubscription(userID)
	if err != nil {
		slog.Error("error fetching subscription", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription"})
		return
	}

	res := SubscriptionResponse{
		Status:   sub.Status,
		Plan:     sub.Plan,
		Eligible: sub.IsEligible(time.Now().UTC()),
	}
	if sub.ExpiresAt != nil {
		expires := sub.ExpiresAt.Format(time.RFC3339)
		res.ExpiresAt = &expires
	}

	c.JSON(http.StatusOK, res)
}
