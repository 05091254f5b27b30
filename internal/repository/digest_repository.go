package repository

import (
	"database/sql"
	"time"

	"aidigest/internal/model"

	"github.com/lib/pq"
)

// DigestRepository persists digests and the append-only send ledger.
// A digest_sends row is the sole source of truth for "delivered to this
// user"; digests themselves carry no delivery state.
type DigestRepository struct {
	db *sql.DB
}

func NewDigestRepository(db *sql.DB) *DigestRepository {
	return &DigestRepository{db: db}
}

// CreateDigest inserts a digest unless its id already exists. CreatedAt
// keeps the source's publish time so recency windows stay chronological.
func (r *DigestRepository) CreateDigest(digest *model.Digest) (bool, error) {
	createdAt := digest.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id string
	err := r.db.QueryRow(`
		INSERT INTO digests(id, source_type, item_id, url, title, summary, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`, digest.ID, digest.SourceType, digest.ItemID, digest.URL, digest.Title, digest.Summary, createdAt).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// GetUnsentForUser returns recent digests visible to one user: channel
// scoped digests limited to the user's channels, shared-source digests for
// everyone, minus anything already in the user's ledger.
func (r *DigestRepository) GetUnsentForUser(userID string, channelIDs []string, cutoff time.Time) ([]model.Digest, error) {
	rows, err := r.db.Query(`
		SELECT d.id, d.source_type, d.item_id, d.url, d.title, d.summary, d.created_at
		FROM digests d
		LEFT JOIN videos v ON d.source_type = $4 AND d.item_id = v.video_id
		WHERE d.created_at >= $2
			AND (d.source_type <> $4 OR v.channel_id = ANY($3))
			AND NOT EXISTS (
				SELECT 1 FROM digest_sends s
				WHERE s.digest_id = d.id AND s.user_id = $1
			)
		ORDER BY d.created_at DESC
	`, userID, cutoff, pq.Array(channelIDs), model.SourceYouTube)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDigests(rows)
}

// MarkSent appends ledger entries for the given digests, skipping pairs
// already present. Returns the number of newly marked digests.
func (r *DigestRepository) MarkSent(userID string, digestIDs []string) (int, error) {
	if len(digestIDs) == 0 {
		return 0, nil
	}

	res, err := r.db.Exec(`
		INSERT INTO digest_sends(digest_id, user_id)
		SELECT unnest($2::text[]), $1
		ON CONFLICT (digest_id, user_id) DO NOTHING
	`, userID, pq.Array(digestIDs))
	if err != nil {
		return 0, err
	}

	marked, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(marked), nil
}

// GetSendCount reports how many users a digest has been delivered to.
func (r *DigestRepository) GetSendCount(digestID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM digest_sends WHERE digest_id = $1
	`, digestID).Scan(&count)
	return count, err
}

// GetRecentDigests returns the newest digests for the API feed.
func (r *DigestRepository) GetRecentDigests(limit, offset int) ([]model.Digest, error) {
	rows, err := r.db.Query(`
		SELECT id, source_type, item_id, url, title, summary, created_at
		FROM digests
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDigests(rows)
}

func (r *DigestRepository) GetDigestTotal() (int, error) {
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM digests`).Scan(&total)
	return total, err
}

func scanDigests(rows *sql.Rows) ([]model.Digest, error) {
	var digests []model.Digest
	for rows.Next() {
		var d model.Digest
		err := rows.Scan(&d.ID, &d.SourceType, &d.ItemID, &d.URL, &d.Title, &d.Summary, &d.CreatedAt)
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return digests, nil
}
