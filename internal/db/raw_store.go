package db

import (
	"context"
	"time"

	"github.com/painscope/opportunity-engine/pkg/models"
)

// Raw-store operations. Raw rows are immutable after fetch; the only
// permitted mutation is the per-post comments-fetched watermark.

// UpsertPost inserts a post if its source id is new. Returns true when a
// row was actually inserted.
func (s *Store) UpsertPost(ctx context.Context, p models.RawPost) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO raw_posts
			(id, subreddit, title, body, author, created_utc, score,
			 num_comments, url, permalink, sort_type, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Subreddit, p.Title, p.Body, p.Author, p.CreatedUTC,
		p.Score, p.NumComments, p.URL, p.Permalink, p.SortType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertComment inserts a comment if its source id is new. Returns true
// when a row was actually inserted.
func (s *Store) UpsertComment(ctx context.Context, c models.RawComment) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO raw_comments
			(id, post_id, parent_id, body, author, created_utc, score,
			 post_score, post_title, subreddit, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.PostID, c.ParentID, c.Body, c.Author, c.CreatedUTC,
		c.Score, c.PostScore, c.PostTitle, c.Subreddit)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetCommentsFetched advances the per-post watermark after a successful
// comment fetch.
func (s *Store) SetCommentsFetched(ctx context.Context, postID string, n int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE raw_posts
		SET comments_fetched = $2, comments_fetched_at = NOW()
		WHERE id = $1`,
		postID, n)
	return err
}

// PostsNeedingComments returns posts whose comments have never been
// fetched, highest score first.
func (s *Store) PostsNeedingComments(ctx context.Context, limit int) ([]models.RawPost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subreddit, title, author, score, num_comments, permalink
		FROM raw_posts
		WHERE comments_fetched = 0
		ORDER BY score DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]models.RawPost, 0)
	for rows.Next() {
		var p models.RawPost
		if err := rows.Scan(&p.ID, &p.Subreddit, &p.Title, &p.Author,
			&p.Score, &p.NumComments, &p.Permalink); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UnprocessedComments returns up to limit comments awaiting the binary
// filter: never processed, body at least minLen characters, highest score
// first.
func (s *Store) UnprocessedComments(ctx context.Context, limit, minLen int) ([]models.RawComment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, parent_id, body, author, created_utc, score,
		       post_score, post_title, subreddit
		FROM raw_comments
		WHERE is_pain_point IS NULL AND length(body) >= $2
		ORDER BY score DESC
		LIMIT $1`, limit, minLen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]models.RawComment, 0)
	for rows.Next() {
		var c models.RawComment
		if err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Body, &c.Author,
			&c.CreatedUTC, &c.Score, &c.PostScore, &c.PostTitle, &c.Subreddit); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// MarkCommentProcessed records the binary filter verdict. Both columns are
// always written together so a processed comment can never have a null
// verdict.
func (s *Store) MarkCommentProcessed(ctx context.Context, commentID string, isPain bool, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE raw_comments
		SET processed_at = $2, is_pain_point = $3
		WHERE id = $1`,
		commentID, at, isPain)
	return err
}

// RawCounts returns total post and comment row counts for /api/stats.
func (s *Store) RawCounts(ctx context.Context) (posts, comments int64, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM raw_posts), (SELECT COUNT(*) FROM raw_comments)`).
		Scan(&posts, &comments)
	return posts, comments, err
}
