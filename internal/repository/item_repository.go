package repository

import (
	"database/sql"

	"aidigest/internal/model"
)

// ItemRepository persists raw items. Inserts are dedup-by-key: a row is
// written at most once and its core fields are never revised afterwards.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// SaveVideo inserts a video unless its natural id already exists.
// Returns true when a new row was created.
func (r *ItemRepository) SaveVideo(video *model.Video) (bool, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO videos(video_id, title, url, channel_id, published_at, description, transcript)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (video_id) DO NOTHING
		RETURNING video_id
	`, video.VideoID, video.Title, video.URL, video.ChannelID, video.PublishedAt, video.Description, video.Transcript).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// SaveArticle inserts a shared-source article unless (source, guid) exists.
func (r *ItemRepository) SaveArticle(article *model.Article) (bool, error) {
	var guid string
	err := r.db.QueryRow(`
		INSERT INTO articles(guid, source, title, url, description, published_at, category, markdown)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source, guid) DO NOTHING
		RETURNING guid
	`, article.GUID, article.Source, article.Title, article.URL, article.Description, article.PublishedAt, article.Category, article.Markdown).Scan(&guid)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// GetVideosWithoutTranscript returns videos still pending enrichment.
// NULL means pending; the unavailable sentinel is terminal and excluded.
func (r *ItemRepository) GetVideosWithoutTranscript(limit int) ([]model.Video, error) {
	query := `
		SELECT video_id, title, url, channel_id, published_at, description, transcript
		FROM videos
		WHERE transcript IS NULL
		ORDER BY published_at ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		var v model.Video
		err := rows.Scan(&v.VideoID, &v.Title, &v.URL, &v.ChannelID, &v.PublishedAt, &v.Description, &v.Transcript)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return videos, nil
}

func (r *ItemRepository) UpdateVideoTranscript(videoID string, transcript string) error {
	_, err := r.db.Exec(`
		UPDATE videos SET transcript = $1 WHERE video_id = $2
	`, transcript, videoID)
	return err
}

// GetArticlesWithoutMarkdown returns articles of a scraped source still
// pending markdown conversion.
func (r *ItemRepository) GetArticlesWithoutMarkdown(source string, limit int) ([]model.Article, error) {
	query := `
		SELECT guid, source, title, url, description, published_at, category, markdown
		FROM articles
		WHERE source = $1 AND markdown IS NULL
		ORDER BY published_at ASC
	`
	args := []any{source}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		err := rows.Scan(&a.GUID, &a.Source, &a.Title, &a.URL, &a.Description, &a.PublishedAt, &a.Category, &a.Markdown)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return articles, nil
}

func (r *ItemRepository) UpdateArticleMarkdown(source, guid, markdown string) error {
	_, err := r.db.Exec(`
		UPDATE articles SET markdown = $1 WHERE source = $2 AND guid = $3
	`, markdown, source, guid)
	return err
}

// GetUndigested returns raw items with usable content whose computed
// digest id does not exist yet. Eligibility is a set difference against
// the full digest id set; enrichable sources additionally require a
// non-null, non-sentinel content field.
func (r *ItemRepository) GetUndigested(limit int, enrichableSources []string) ([]model.CandidateItem, error) {
	seen, err := r.digestIDSet()
	if err != nil {
		return nil, err
	}

	enrichable := make(map[string]bool, len(enrichableSources))
	for _, s := range enrichableSources {
		enrichable[s] = true
	}

	var candidates []model.CandidateItem

	rows, err := r.db.Query(`
		SELECT video_id, title, url, description, transcript, published_at
		FROM videos
		WHERE transcript IS NOT NULL AND transcript != $1
	`, model.TranscriptUnavailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Video
		err := rows.Scan(&v.VideoID, &v.Title, &v.URL, &v.Description, &v.Transcript, &v.PublishedAt)
		if err != nil {
			return nil, err
		}

		if seen[model.SourceYouTube+":"+v.VideoID] {
			continue
		}

		content := v.Description
		if v.Transcript != nil {
			content = *v.Transcript
		}
		candidates = append(candidates, model.CandidateItem{
			SourceType:  model.SourceYouTube,
			ItemID:      v.VideoID,
			Title:       v.Title,
			URL:         v.URL,
			Content:     content,
			PublishedAt: v.PublishedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	articleRows, err := r.db.Query(`
		SELECT guid, source, title, url, description, markdown, published_at
		FROM articles
	`)
	if err != nil {
		return nil, err
	}
	defer articleRows.Close()

	for articleRows.Next() {
		var a model.Article
		err := articleRows.Scan(&a.GUID, &a.Source, &a.Title, &a.URL, &a.Description, &a.Markdown, &a.PublishedAt)
		if err != nil {
			return nil, err
		}

		if seen[a.Source+":"+a.GUID] {
			continue
		}

		content := a.Description
		if enrichable[a.Source] {
			if a.Markdown == nil || *a.Markdown == model.TranscriptUnavailable {
				continue
			}
			content = *a.Markdown
		}

		candidates = append(candidates, model.CandidateItem{
			SourceType:  a.Source,
			ItemID:      a.GUID,
			Title:       a.Title,
			URL:         a.URL,
			Content:     content,
			PublishedAt: a.PublishedAt,
		})
	}

	if err := articleRows.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (r *ItemRepository) digestIDSet() (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT id FROM digests`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seen, nil
}
