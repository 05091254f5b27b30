package pipeline

import (
	"time"

	"aidigest/internal/model"
	"aidigest/pkg/source"
)

// Store interfaces are declared consumer-side so tests can swap in fakes
// without touching the repositories.

type ItemStore interface {
	SaveVideo(video *model.Video) (bool, error)
	SaveArticle(article *model.Article) (bool, error)
	GetVideosWithoutTranscript(limit int) ([]model.Video, error)
	UpdateVideoTranscript(videoID string, transcript string) error
	GetArticlesWithoutMarkdown(source string, limit int) ([]model.Article, error)
	UpdateArticleMarkdown(source, guid, markdown string) error
	GetUndigested(limit int, enrichableSources []string) ([]model.CandidateItem, error)
}

type DigestStore interface {
	CreateDigest(digest *model.Digest) (bool, error)
	GetUnsentForUser(userID string, channelIDs []string, cutoff time.Time) ([]model.Digest, error)
	MarkSent(userID string, digestIDs []string) (int, error)
}

type SubscriptionStore interface {
	GetEligibleUsers(now time.Time) ([]model.EligibleUser, error)
	GetUniqueChannelIDs() ([]string, error)
}

type ProfileStore interface {
	GetProfile(userID string) (*model.UserProfile, error)
	GetSignupEmail(userID string) (string, error)
}

type Mailer interface {
	Send(subject, bodyText, bodyHTML string, recipients []string) error
}

// VideoSource is the channel-scoped gateway: uploads per channel plus the
// transcript converter used by the enrichment stage.
type VideoSource interface {
	FetchChannel(channelID string, since time.Time) ([]source.Item, error)
	FetchTranscript(videoID string) (transcript string, available bool, err error)
}

// SharedSource is a channel-agnostic gateway (vendor blogs, market news).
type SharedSource interface {
	Fetch(since time.Time) ([]source.Item, error)
}

// Scraper converts an article page into markdown for sources whose feed
// entries carry no usable body.
type Scraper interface {
	URLToMarkdown(url string) (string, error)
}
