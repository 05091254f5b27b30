package llm

type DigestInput struct {
	SourceType string
	Title      string
	Content    string
}

type DigestResult struct {
	Title     string
	Summary   string
	ModelUsed string
}

// Profile carries the user context the curator ranks against.
type Profile struct {
	Name           string
	Background     string
	ExpertiseLevel string
	Interests      []string
	Preferences    map[string]string
}

type RankInput struct {
	ID         string
	Title      string
	Summary    string
	SourceType string
}

type RankedArticle struct {
	DigestID       string  `json:"digest_id"`
	Rank           int     `json:"rank"`
	RelevanceScore float64 `json:"relevance_score"`
	Reasoning      string  `json:"reasoning"`
}

// Summarizer condenses one raw item into a short title+summary digest.
type Summarizer interface {
	GenerateDigest(input DigestInput) (*DigestResult, error)
}

// Curator ranks a user's digests by relevance to their profile. An empty
// or unparseable ranking is a miss, never a partial success.
type Curator interface {
	RankDigests(profile Profile, digests []RankInput) ([]RankedArticle, error)
}
