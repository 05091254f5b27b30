package model

// UserProfile is the personalization document the curator ranks against.
// Owned by the API layer; the pipeline only reads it.
type UserProfile struct {
	Name           string            `json:"name"`
	Background     string            `json:"background"`
	ExpertiseLevel string            `json:"expertise_level"`
	Interests      []string          `json:"interests"`
	Preferences    map[string]string `json:"preferences"`
	EmailTo        string            `json:"email_to,omitempty"`
}
