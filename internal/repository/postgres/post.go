package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

// postViewSelect is shared by every post listing; $1 is always the viewer.
const postViewSelect = `
	SELECT p.id, p.user_id, p.image_url, p.caption, p.created_at,
	       u.username, u.profile_picture,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id),
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	       EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1)`

// commentsAgg folds a post's comments, newest first, into one JSON array.
const commentsAgg = `
	COALESCE((
		SELECT json_agg(json_build_object(
			'id', c.id,
			'comment_text', c.comment_text,
			'created_at', c.created_at,
			'username', cu.username,
			'profile_picture', cu.profile_picture
		) ORDER BY c.created_at DESC, c.id DESC)
		FROM comments c
		JOIN users cu ON cu.id = c.user_id
		WHERE c.post_id = p.id
	), '[]'::json)`

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = now()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO posts (id, user_id, image_url, caption, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		post.ID,
		post.UserID,
		post.ImageURL,
		post.Caption,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating post: %w", err)
	}

	return nil
}

// GetPost loads the post, its counts and its comments in one statement, so
// the comment list and comments_count come from the same snapshot.
func (db *DB) GetPost(ctx context.Context, postID, viewerID string) (*model.PostDetail, error) {
	row := db.pool.QueryRow(ctx,
		postViewSelect+`, `+commentsAgg+`
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.id = $2`,
		viewerID, postID,
	)

	var (
		detail   model.PostDetail
		comments []byte
	)
	v := &detail.PostView
	err := row.Scan(
		&v.ID, &v.UserID, &v.ImageURL, &v.Caption, &v.CreatedAt,
		&v.Username, &v.ProfilePicture,
		&v.LikesCount, &v.CommentsCount, &v.IsLiked,
		&comments,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("post", postID)
		}
		return nil, fmt.Errorf("postgres: getting post %s: %w", postID, err)
	}

	detail.Comments = make([]model.CommentView, 0)
	if err := json.Unmarshal(comments, &detail.Comments); err != nil {
		return nil, fmt.Errorf("postgres: decoding comments of %s: %w", postID, err)
	}

	return &detail, nil
}

func (db *DB) ListUserPosts(ctx context.Context, authorID, viewerID string) ([]model.PostView, error) {
	rows, err := db.pool.Query(ctx,
		postViewSelect+`
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $2
		 ORDER BY p.created_at DESC, p.id DESC`,
		viewerID, authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts of %s: %w", authorID, err)
	}

	posts, err := collect(rows, scanPostView)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning posts: %w", err)
	}
	return posts, nil
}

func (db *DB) Feed(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.PostView, error) {
	rows, err := db.pool.Query(ctx,
		postViewSelect+`
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $1
		    OR p.user_id IN (SELECT following_id FROM follows WHERE follower_id = $1)
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $2 OFFSET $3`,
		viewerID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading feed for %s: %w", viewerID, err)
	}

	posts, err := collect(rows, scanPostView)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning feed: %w", err)
	}
	return posts, nil
}

func (db *DB) DeletePost(ctx context.Context, postID, ownerID string) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`,
		postID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting post %s: %w", postID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFoundOrUnauthorized("post")
	}
	return nil
}

func scanPostView(row pgx.CollectableRow) (model.PostView, error) {
	var v model.PostView
	err := row.Scan(
		&v.ID, &v.UserID, &v.ImageURL, &v.Caption, &v.CreatedAt,
		&v.Username, &v.ProfilePicture,
		&v.LikesCount, &v.CommentsCount, &v.IsLiked,
	)
	return v, err
}
