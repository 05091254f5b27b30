package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"aidigest/internal/model"
	"aidigest/pkg/llm"
	"aidigest/pkg/mail"
)

// EmailCounts aggregates the fan-out outcome across all users.
type EmailCounts struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// DeliveryResult is the outcome for a single user. Skipped means the user
// had nothing new to send, which is a success.
type DeliveryResult struct {
	UserID  string
	Success bool
	Skipped bool
	Sent    int
	Err     error
}

// fanOut delivers to all users over a bounded worker pool. One user's
// failure never affects another's delivery.
func (r *Runner) fanOut(users []model.EligibleUser, now time.Time) (EmailCounts, int) {
	workers := r.opts.Workers
	if workers > len(users) {
		workers = len(users)
	}

	jobs := make(chan model.EligibleUser)
	results := make(chan DeliveryResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				results <- r.deliverUserSafe(user, now)
			}
		}()
	}

	go func() {
		for _, user := range users {
			jobs <- user
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var counts EmailCounts
	processed := 0
	for res := range results {
		processed++
		switch {
		case res.Skipped:
			counts.Skipped++
		case res.Success:
			counts.Sent++
			slog.Info("digest email sent", "user_id", res.UserID, "digests", res.Sent)
		default:
			counts.Failed++
			slog.Error("digest email failed", "user_id", res.UserID, "error", res.Err)
		}
	}
	return counts, processed
}

// deliverUserSafe keeps a panicking delivery from taking down the pool.
func (r *Runner) deliverUserSafe(user model.EligibleUser, now time.Time) (result DeliveryResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("delivery panic: %v", rec)}
		}
	}()
	return r.deliverUser(user, now)
}

func (r *Runner) deliverUser(user model.EligibleUser, now time.Time) DeliveryResult {
	profile, err := r.profiles.GetProfile(user.UserID)
	if err != nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("load profile: %w", err)}
	}
	if profile == nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("no profile for user %s", user.UserID)}
	}

	recipient := profile.EmailTo
	if recipient == "" {
		recipient, err = r.profiles.GetSignupEmail(user.UserID)
		if err != nil {
			return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("load signup email: %w", err)}
		}
	}
	if recipient == "" {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("no recipient address for user %s", user.UserID)}
	}

	cutoff := now.Add(-time.Duration(r.opts.Hours) * time.Hour)
	digests, err := r.digests.GetUnsentForUser(user.UserID, user.ChannelIDs, cutoff)
	if err != nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("load digests: %w", err)}
	}
	if len(digests) == 0 {
		return DeliveryResult{UserID: user.UserID, Success: true, Skipped: true}
	}

	ranked, err := r.rankForUser(profile, digests)
	if err != nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("rank digests: %w", err)}
	}
	if len(ranked) > r.opts.TopN {
		ranked = ranked[:r.opts.TopN]
	}

	items := make([]mail.RankedItem, 0, len(ranked))
	digestIDs := make([]string, 0, len(ranked))
	for _, rd := range ranked {
		items = append(items, mail.RankedItem{
			Rank:           rd.Rank,
			Title:          rd.Title,
			Summary:        rd.Summary,
			URL:            rd.URL,
			SourceType:     rd.SourceType,
			RelevanceScore: rd.RelevanceScore,
		})
		digestIDs = append(digestIDs, rd.ID)
	}

	bodyText := mail.RenderText(profile.Name, items)
	bodyHTML, err := mail.RenderHTML(profile.Name, items)
	if err != nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("render email: %w", err)}
	}

	subject := mail.Subject(profile.Name, now)
	if err := r.mailer.Send(subject, bodyText, bodyHTML, []string{recipient}); err != nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("send email: %w", err)}
	}

	// Only the digests that went into this email are recorded as sent.
	if _, err := r.digests.MarkSent(user.UserID, digestIDs); err != nil {
		return DeliveryResult{UserID: user.UserID, Err: fmt.Errorf("record sends: %w", err)}
	}

	return DeliveryResult{UserID: user.UserID, Success: true, Sent: len(digestIDs)}
}

// rankForUser runs the curator and joins its verdicts back onto the
// digests. Verdicts for unknown ids were already dropped by the parser.
func (r *Runner) rankForUser(profile *model.UserProfile, digests []model.Digest) ([]model.RankedDigest, error) {
	inputs := make([]llm.RankInput, 0, len(digests))
	byID := make(map[string]model.Digest, len(digests))
	for _, d := range digests {
		byID[d.ID] = d
		inputs = append(inputs, llm.RankInput{
			ID:         d.ID,
			Title:      d.Title,
			Summary:    d.Summary,
			SourceType: d.SourceType,
		})
	}

	verdicts, err := r.curator.RankDigests(llm.Profile{
		Name:           profile.Name,
		Background:     profile.Background,
		ExpertiseLevel: profile.ExpertiseLevel,
		Interests:      profile.Interests,
		Preferences:    profile.Preferences,
	}, inputs)
	if err != nil {
		return nil, err
	}

	ranked := make([]model.RankedDigest, 0, len(verdicts))
	for _, v := range verdicts {
		ranked = append(ranked, model.RankedDigest{
			Digest:         byID[v.DigestID],
			Rank:           v.Rank,
			RelevanceScore: v.RelevanceScore,
			Reasoning:      v.Reasoning,
		})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	return ranked, nil
}
