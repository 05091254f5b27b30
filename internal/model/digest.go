package model

import "time"

// Digest is the LLM-produced title+summary for one raw item. Immutable
// after creation. Delivery state lives in DigestSend, not here.
type Digest struct {
	ID         string
	SourceType string
	ItemID     string
	URL        string
	Title      string
	Summary    string
	CreatedAt  time.Time
}

// DigestSend is one row of the append-only send ledger, unique per
// (digest, user). Its existence is the sole proof of delivery.
type DigestSend struct {
	DigestID string
	UserID   string
	SentAt   time.Time
}

// RankedDigest is a digest with the curator's relevance verdict attached.
type RankedDigest struct {
	Digest
	Rank           int
	RelevanceScore float64
	Reasoning      string
}
