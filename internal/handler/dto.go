package handler

type ProfileRequest struct {
	Name           string            `json:"name"`
	Background     string            `json:"background"`
	ExpertiseLevel string            `json:"expertise_level"`
	Interests      []string          `json:"interests"`
	Preferences    map[string]string `json:"preferences"`
	EmailTo        string            `json:"email_to"`
}

type ProfileResponse struct {
	Name           string            `json:"name"`
	Background     string            `json:"background"`
	ExpertiseLevel string            `json:"expertise_level"`
	Interests      []string          `json:"interests"`
	Preferences    map[string]string `json:"preferences"`
	EmailTo        string            `json:"email_to,omitempty"`
}

type ChannelsRequest struct {
	ChannelIDs []string `json:"channel_ids"`
}

type ChannelsResponse struct {
	ChannelIDs []string `json:"channel_ids"`
}

type SubscriptionResponse struct {
	Status    string  `json:"status"`
	Plan      string  `json:"plan,omitempty"`
	Eligible  bool    `json:"eligible"`
	ExpiresAt *string `json:"expires_at"`
}

type BillingVerifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Plan      string `json:"plan"`
}

type DigestResponse struct {
	ID          string `json:"id"`
	SourceType  string `json:"source_type"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

type DigestFeedResponse struct {
	Digests []DigestResponse `json:"digests"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}
