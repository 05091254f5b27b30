package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"aidigest/internal/model"
	"aidigest/pkg/llm"
	"aidigest/pkg/source"
)

type fakeItemStore struct {
	mu          sync.Mutex
	videos      []model.Video
	articles    map[string][]model.Article
	transcripts map[string]string
	markdown    map[string]string
	undigested  []model.CandidateItem
	savedVideos int
	savedArts   int
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{
		articles:    make(map[string][]model.Article),
		transcripts: make(map[string]string),
		markdown:    make(map[string]string),
	}
}

func (f *fakeItemStore) SaveVideo(v *model.Video) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.videos {
		if existing.VideoID == v.VideoID {
			return false, nil
		}
	}
	f.videos = append(f.videos, *v)
	f.savedVideos++
	return true, nil
}

func (f *fakeItemStore) SaveArticle(a *model.Article) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.articles[a.Source] {
		if existing.GUID == a.GUID {
			return false, nil
		}
	}
	f.articles[a.Source] = append(f.articles[a.Source], *a)
	f.savedArts++
	return true, nil
}

func (f *fakeItemStore) GetVideosWithoutTranscript(limit int) ([]model.Video, error) {
	var out []model.Video
	for _, v := range f.videos {
		if _, done := f.transcripts[v.VideoID]; !done {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeItemStore) UpdateVideoTranscript(videoID, transcript string) error {
	f.transcripts[videoID] = transcript
	return nil
}

func (f *fakeItemStore) GetArticlesWithoutMarkdown(src string, limit int) ([]model.Article, error) {
	var out []model.Article
	for _, a := range f.articles[src] {
		if _, done := f.markdown[src+":"+a.GUID]; !done {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeItemStore) UpdateArticleMarkdown(src, guid, markdown string) error {
	f.markdown[src+":"+guid] = markdown
	return nil
}

func (f *fakeItemStore) GetUndigested(limit int, enrichableSources []string) ([]model.CandidateItem, error) {
	return f.undigested, nil
}

type fakeDigestStore struct {
	mu        sync.Mutex
	created   []model.Digest
	unsent    map[string][]model.Digest
	marked    map[string][]string
	createErr error
}

func newFakeDigestStore() *fakeDigestStore {
	return &fakeDigestStore{
		unsent: make(map[string][]model.Digest),
		marked: make(map[string][]string),
	}
}

func (f *fakeDigestStore) CreateDigest(d *model.Digest) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.created {
		if existing.ID == d.ID {
			return false, nil
		}
	}
	f.created = append(f.created, *d)
	return true, nil
}

// GetUnsentForUser mirrors the ledger exclusion of the real query:
// anything already marked for the user is filtered out.
func (f *fakeDigestStore) GetUnsentForUser(userID string, channelIDs []string, cutoff time.Time) ([]model.Digest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sent := make(map[string]bool, len(f.marked[userID]))
	for _, id := range f.marked[userID] {
		sent[id] = true
	}
	var out []model.Digest
	for _, d := range f.unsent[userID] {
		if !sent[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// MarkSent skips pairs already in the ledger, like the conflict-safe
// insert it stands in for.
func (f *fakeDigestStore) MarkSent(userID string, digestIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sent := make(map[string]bool, len(f.marked[userID]))
	for _, id := range f.marked[userID] {
		sent[id] = true
	}
	marked := 0
	for _, id := range digestIDs {
		if sent[id] {
			continue
		}
		f.marked[userID] = append(f.marked[userID], id)
		marked++
	}
	return marked, nil
}

type fakeSubscriptionStore struct {
	users    []model.EligibleUser
	channels []string
	usersErr error
}

func (f *fakeSubscriptionStore) GetEligibleUsers(now time.Time) ([]model.EligibleUser, error) {
	return f.users, f.usersErr
}

func (f *fakeSubscriptionStore) GetUniqueChannelIDs() ([]string, error) {
	return f.channels, nil
}

type fakeProfileStore struct {
	profiles map[string]*model.UserProfile
	emails   map[string]string
}

func (f *fakeProfileStore) GetProfile(userID string) (*model.UserProfile, error) {
	return f.profiles[userID], nil
}

func (f *fakeProfileStore) GetSignupEmail(userID string) (string, error) {
	return f.emails[userID], nil
}

type sentMail struct {
	subject    string
	recipients []string
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
}

func (f *fakeMailer) Send(subject, bodyText, bodyHTML string, recipients []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recipients {
		if f.failFor[r] {
			return errors.New("smtp refused")
		}
	}
	f.sent = append(f.sent, sentMail{subject: subject, recipients: recipients})
	return nil
}

type fakeSummarizer struct {
	failTitles map[string]bool
}

func (f *fakeSummarizer) GenerateDigest(input llm.DigestInput) (*llm.DigestResult, error) {
	if f.failTitles[input.Title] {
		return nil, errors.New("model overloaded")
	}
	return &llm.DigestResult{Title: input.Title, Summary: "summary of " + input.Title, ModelUsed: "fake"}, nil
}

// fakeCurator ranks digests in the order given unless ranks overrides a
// specific id.
type fakeCurator struct {
	mu    sync.Mutex
	calls int
	ranks map[string]int
	err   error
}

func (f *fakeCurator) RankDigests(profile llm.Profile, digests []llm.RankInput) ([]llm.RankedArticle, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]llm.RankedArticle, 0, len(digests))
	for i, d := range digests {
		rank := i + 1
		if r, ok := f.ranks[d.ID]; ok {
			rank = r
		}
		out = append(out, llm.RankedArticle{DigestID: d.ID, Rank: rank, RelevanceScore: 1.0 / float64(rank)})
	}
	return out, nil
}

type fakeVideoSource struct {
	uploads     map[string][]source.Item
	transcripts map[string]string
	errIDs      map[string]bool
}

func (f *fakeVideoSource) FetchChannel(channelID string, since time.Time) ([]source.Item, error) {
	items, ok := f.uploads[channelID]
	if !ok {
		return nil, errors.New("channel feed unreachable")
	}
	return items, nil
}

func (f *fakeVideoSource) FetchTranscript(videoID string) (string, bool, error) {
	if f.errIDs[videoID] {
		return "", false, errors.New("timedtext timeout")
	}
	t, ok := f.transcripts[videoID]
	return t, ok, nil
}

type fakeSharedSource struct {
	items []source.Item
	err   error
}

func (f *fakeSharedSource) Fetch(since time.Time) ([]source.Item, error) {
	return f.items, f.err
}

type fakeScraper struct {
	pages map[string]string
	err   error
}

func (f *fakeScraper) URLToMarkdown(url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

func testRunner(deps Deps) *Runner {
	if deps.Items == nil {
		deps.Items = newFakeItemStore()
	}
	if deps.Digests == nil {
		deps.Digests = newFakeDigestStore()
	}
	if deps.Subscriptions == nil {
		deps.Subscriptions = &fakeSubscriptionStore{}
	}
	if deps.Profiles == nil {
		deps.Profiles = &fakeProfileStore{profiles: map[string]*model.UserProfile{}, emails: map[string]string{}}
	}
	if deps.Summarizer == nil {
		deps.Summarizer = &fakeSummarizer{}
	}
	if deps.Curator == nil {
		deps.Curator = &fakeCurator{}
	}
	if deps.Mailer == nil {
		deps.Mailer = &fakeMailer{}
	}
	if deps.Videos == nil {
		deps.Videos = &fakeVideoSource{uploads: map[string][]source.Item{}}
	}
	return NewRunner(deps, Options{Hours: 24, TopN: 10, Workers: 10})
}

func TestRunNoEligibleUsers(t *testing.T) {
	runner := testRunner(Deps{Subscriptions: &fakeSubscriptionStore{}})

	summary := runner.Run()

	assert.Equal(t, summary.Success, true)
	assert.Equal(t, summary.Emails.Skipped, 1)
	assert.Equal(t, summary.Emails.Sent, 0)
	assert.Equal(t, summary.UsersProcessed, 0)
}

func TestRunSummaryReportsDurationSeconds(t *testing.T) {
	runner := testRunner(Deps{Subscriptions: &fakeSubscriptionStore{}})

	summary := runner.Run()

	assert.Equal(t, summary.DurationSeconds >= 0, true)
	raw, err := json.Marshal(summary)
	assert.Equal(t, err, nil)
	assert.Equal(t, strings.Contains(string(raw), `"duration_seconds"`), true)
}

func TestRunEligibleUsersError(t *testing.T) {
	runner := testRunner(Deps{Subscriptions: &fakeSubscriptionStore{usersErr: errors.New("db down")}})

	summary := runner.Run()

	assert.Equal(t, summary.Success, false)
	assert.Equal(t, summary.Error, "db down")
}

func TestEnrichTranscriptsThreeStates(t *testing.T) {
	items := newFakeItemStore()
	items.videos = []model.Video{
		{VideoID: "v-ok"},
		{VideoID: "v-none"},
		{VideoID: "v-err"},
	}
	videos := &fakeVideoSource{
		transcripts: map[string]string{"v-ok": "hello world"},
		errIDs:      map[string]bool{"v-err": true},
	}
	runner := testRunner(Deps{Items: items, Videos: videos})

	result, err := runner.enrichTranscripts()

	assert.Equal(t, err, nil)
	assert.Equal(t, result, BatchResult{Total: 3, Processed: 1, Failed: 1, Unavailable: 1})
	assert.Equal(t, items.transcripts["v-ok"], "hello world")
	assert.Equal(t, items.transcripts["v-none"], model.TranscriptUnavailable)
	// A fetch error leaves the video pending for the next run.
	_, tried := items.transcripts["v-err"]
	assert.Equal(t, tried, false)
}

func TestEnrichMarkdownEmptyPageIsTerminal(t *testing.T) {
	items := newFakeItemStore()
	items.articles[model.SourceAnthropic] = []model.Article{
		{GUID: "g1", Source: model.SourceAnthropic, URL: "https://example.com/a"},
		{GUID: "g2", Source: model.SourceAnthropic, URL: "https://example.com/b"},
	}
	scraper := &fakeScraper{pages: map[string]string{"https://example.com/a": "# Post"}}
	runner := testRunner(Deps{Items: items})

	result, err := runner.enrichMarkdown(model.SourceAnthropic, scraper)

	assert.Equal(t, err, nil)
	assert.Equal(t, result, BatchResult{Total: 2, Processed: 1, Unavailable: 1})
	assert.Equal(t, items.markdown["anthropic:g1"], "# Post")
	assert.Equal(t, items.markdown["anthropic:g2"], model.TranscriptUnavailable)
}

func TestRunSourcesFailureIsolation(t *testing.T) {
	items := newFakeItemStore()
	now := time.Now().UTC()
	videos := &fakeVideoSource{uploads: map[string][]source.Item{
		"UC123": {{ExternalID: "v1", ChannelID: "UC123", Title: "Talk", PublishedAt: now}},
	}}
	shared := []SharedSourceEntry{
		{Name: model.SourceOpenAI, Source: &fakeSharedSource{err: errors.New("feed 500")}},
		{Name: model.SourceAnthropic, Source: &fakeSharedSource{items: []source.Item{
			{ExternalID: "a1", Title: "Post", PublishedAt: now},
			{ExternalID: "a2", Title: "Post 2", PublishedAt: now},
		}}},
	}
	runner := testRunner(Deps{Items: items, Videos: videos, Shared: shared})

	counts := runner.runSources(now.Add(-time.Hour), []string{"UC123"})

	assert.Equal(t, counts[model.SourceYouTube], 1)
	assert.Equal(t, counts[model.SourceOpenAI], 0)
	assert.Equal(t, counts[model.SourceAnthropic], 2)
	assert.Equal(t, items.savedVideos, 1)
	assert.Equal(t, items.savedArts, 2)
}

func TestRunSourcesDuplicatesNotResaved(t *testing.T) {
	items := newFakeItemStore()
	now := time.Now().UTC()
	shared := []SharedSourceEntry{
		{Name: model.SourceOpenAI, Source: &fakeSharedSource{items: []source.Item{
			{ExternalID: "a1", Title: "Post", PublishedAt: now},
		}}},
	}
	runner := testRunner(Deps{Items: items, Shared: shared})

	runner.runSources(now.Add(-time.Hour), nil)
	counts := runner.runSources(now.Add(-time.Hour), nil)

	// The second pass still sees the item but creates nothing new.
	assert.Equal(t, counts[model.SourceOpenAI], 1)
	assert.Equal(t, items.savedArts, 1)
}

func TestGenerateDigests(t *testing.T) {
	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := newFakeItemStore()
	items.undigested = []model.CandidateItem{
		{SourceType: model.SourceOpenAI, ItemID: "a1", Title: "Release", Content: "body", PublishedAt: published},
		{SourceType: model.SourceYouTube, ItemID: "v1", Title: "Broken", Content: "body"},
	}
	digests := newFakeDigestStore()
	runner := testRunner(Deps{
		Items:      items,
		Digests:    digests,
		Summarizer: &fakeSummarizer{failTitles: map[string]bool{"Broken": true}},
	})

	result, err := runner.generateDigests()

	assert.Equal(t, err, nil)
	assert.Equal(t, result, BatchResult{Total: 2, Processed: 1, Failed: 1})
	assert.Equal(t, len(digests.created), 1)
	assert.Equal(t, digests.created[0].ID, "openai:a1")
	assert.Equal(t, digests.created[0].CreatedAt, published)
}

func TestGenerateDigestsRerunCreatesNoDuplicates(t *testing.T) {
	items := newFakeItemStore()
	items.undigested = []model.CandidateItem{
		{SourceType: model.SourceOpenAI, ItemID: "a1", Title: "Release", Content: "body"},
	}
	digests := newFakeDigestStore()
	runner := testRunner(Deps{Items: items, Digests: digests})

	runner.generateDigests()
	result, err := runner.generateDigests()

	assert.Equal(t, err, nil)
	assert.Equal(t, result.Failed, 0)
	assert.Equal(t, len(digests.created), 1)
}

func eligibleUser(id string) model.EligibleUser {
	return model.EligibleUser{UserID: id, Status: model.StatusActive}
}

func fanoutFixture(userIDs ...string) (*fakeDigestStore, *fakeProfileStore, *fakeMailer, []model.EligibleUser) {
	digests := newFakeDigestStore()
	profiles := &fakeProfileStore{profiles: map[string]*model.UserProfile{}, emails: map[string]string{}}
	var users []model.EligibleUser
	for _, id := range userIDs {
		digests.unsent[id] = []model.Digest{{ID: "openai:a1", SourceType: model.SourceOpenAI, Title: "Release", Summary: "s"}}
		profiles.profiles[id] = &model.UserProfile{Name: "User " + id, EmailTo: id + "@example.com"}
		users = append(users, eligibleUser(id))
	}
	return digests, profiles, &fakeMailer{failFor: map[string]bool{}}, users
}

func TestFanOutFailureIsolation(t *testing.T) {
	digests, profiles, mailer, users := fanoutFixture("u1", "u2", "u3", "u4", "u5")
	mailer.failFor["u3@example.com"] = true
	runner := testRunner(Deps{Digests: digests, Profiles: profiles, Mailer: mailer})

	counts, processed := runner.fanOut(users, time.Now().UTC())

	assert.Equal(t, processed, 5)
	assert.Equal(t, counts, EmailCounts{Sent: 4, Failed: 1})
	assert.Equal(t, len(mailer.sent), 4)
	// The ledger only records deliveries that actually went out.
	_, marked := digests.marked["u3"]
	assert.Equal(t, marked, false)
	assert.Equal(t, digests.marked["u1"], []string{"openai:a1"})
}

func TestFanOutSecondRunSendsNothingNew(t *testing.T) {
	digests, profiles, mailer, users := fanoutFixture("u1")
	runner := testRunner(Deps{Digests: digests, Profiles: profiles, Mailer: mailer})
	now := time.Now().UTC()

	first, _ := runner.fanOut(users, now)
	second, _ := runner.fanOut(users, now)

	assert.Equal(t, first, EmailCounts{Sent: 1})
	// The ledger from the first run makes the second a no-op skip.
	assert.Equal(t, second, EmailCounts{Skipped: 1})
	assert.Equal(t, len(mailer.sent), 1)
	assert.Equal(t, digests.marked["u1"], []string{"openai:a1"})
}

func TestDeliverUserSkipsWhenNothingUnsent(t *testing.T) {
	digests, profiles, mailer, _ := fanoutFixture("u1")
	digests.unsent["u1"] = nil
	curator := &fakeCurator{}
	runner := testRunner(Deps{Digests: digests, Profiles: profiles, Mailer: mailer, Curator: curator})

	res := runner.deliverUser(eligibleUser("u1"), time.Now().UTC())

	assert.Equal(t, res.Success, true)
	assert.Equal(t, res.Skipped, true)
	assert.Equal(t, curator.calls, 0)
	assert.Equal(t, len(mailer.sent), 0)
}

func TestDeliverUserNoProfileFails(t *testing.T) {
	digests, profiles, mailer, _ := fanoutFixture("u1")
	delete(profiles.profiles, "u1")
	runner := testRunner(Deps{Digests: digests, Profiles: profiles, Mailer: mailer})

	res := runner.deliverUser(eligibleUser("u1"), time.Now().UTC())

	assert.Equal(t, res.Success, false)
	assert.Equal(t, res.Skipped, false)
	assert.NotEqual(t, res.Err, nil)
}

func TestDeliverUserFallsBackToSignupEmail(t *testing.T) {
	digests, profiles, mailer, _ := fanoutFixture("u1")
	profiles.profiles["u1"].EmailTo = ""
	profiles.emails["u1"] = "signup@example.com"
	runner := testRunner(Deps{Digests: digests, Profiles: profiles, Mailer: mailer})

	res := runner.deliverUser(eligibleUser("u1"), time.Now().UTC())

	assert.Equal(t, res.Success, true)
	assert.Equal(t, mailer.sent[0].recipients, []string{"signup@example.com"})
}

func TestDeliverUserTopNAndLedger(t *testing.T) {
	digests, profiles, mailer, _ := fanoutFixture("u1")
	digests.unsent["u1"] = []model.Digest{
		{ID: "openai:a1", Title: "One"},
		{ID: "anthropic:b1", Title: "Two"},
		{ID: "market:c1", Title: "Three"},
	}
	curator := &fakeCurator{ranks: map[string]int{
		"market:c1":    1,
		"openai:a1":    2,
		"anthropic:b1": 3,
	}}
	runner := NewRunner(Deps{
		Items:         newFakeItemStore(),
		Digests:       digests,
		Subscriptions: &fakeSubscriptionStore{},
		Profiles:      profiles,
		Summarizer:    &fakeSummarizer{},
		Curator:       curator,
		Mailer:        mailer,
		Videos:        &fakeVideoSource{},
	}, Options{Hours: 24, TopN: 2, Workers: 10})

	res := runner.deliverUser(eligibleUser("u1"), time.Now().UTC())

	assert.Equal(t, res.Success, true)
	assert.Equal(t, res.Sent, 2)
	// Only the two highest-ranked digests are recorded as sent.
	assert.Equal(t, digests.marked["u1"], []string{"market:c1", "openai:a1"})
}

func TestDeliverUserCuratorErrorFails(t *testing.T) {
	digests, profiles, mailer, _ := fanoutFixture("u1")
	curator := &fakeCurator{err: errors.New("bad json")}
	runner := testRunner(Deps{Digests: digests, Profiles: profiles, Mailer: mailer, Curator: curator})

	res := runner.deliverUser(eligibleUser("u1"), time.Now().UTC())

	assert.Equal(t, res.Success, false)
	assert.Equal(t, len(mailer.sent), 0)
	_, marked := digests.marked["u1"]
	assert.Equal(t, marked, false)
}

func TestRunEndToEnd(t *testing.T) {
	now := time.Now().UTC()
	items := newFakeItemStore()
	items.undigested = []model.CandidateItem{
		{SourceType: model.SourceOpenAI, ItemID: "a1", Title: "Release", Content: "body", PublishedAt: now},
	}
	digests, profiles, mailer, users := fanoutFixture("u1", "u2")
	digests.unsent["u2"] = nil
	shared := []SharedSourceEntry{
		{Name: model.SourceOpenAI, Source: &fakeSharedSource{items: []source.Item{
			{ExternalID: "a1", Title: "Release", PublishedAt: now},
		}}},
	}
	runner := testRunner(Deps{
		Items:         items,
		Digests:       digests,
		Subscriptions: &fakeSubscriptionStore{users: users},
		Profiles:      profiles,
		Mailer:        mailer,
		Shared:        shared,
	})

	summary := runner.Run()

	assert.Equal(t, summary.Success, true)
	assert.Equal(t, summary.Scraping[model.SourceOpenAI], 1)
	assert.Equal(t, summary.Digests, BatchResult{Total: 1, Processed: 1})
	assert.Equal(t, summary.Emails, EmailCounts{Sent: 1, Skipped: 1})
	assert.Equal(t, summary.UsersProcessed, 2)
}

func TestFanOutRecoversFromPanic(t *testing.T) {
	digests, _, mailer, users := fanoutFixture("u1")
	runner := testRunner(Deps{Digests: digests, Profiles: panickyProfiles{}, Mailer: mailer})

	counts, processed := runner.fanOut(users, time.Now().UTC())

	assert.Equal(t, processed, 1)
	assert.Equal(t, counts.Failed, 1)
}

type panickyProfiles struct{}

func (panickyProfiles) GetProfile(userID string) (*model.UserProfile, error) {
	panic(fmt.Sprintf("corrupt profile for %s", userID))
}

func (panickyProfiles) GetSignupEmail(userID string) (string, error) { return "", nil }
