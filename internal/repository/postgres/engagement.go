package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
)

const foreignKeyViolation = "23503"

// Like inserts with ON CONFLICT DO NOTHING so that a lost race against a
// concurrent like of the same pair surfaces as AlreadyLiked.
func (db *DB) Like(ctx context.Context, postID, userID string) (int, error) {
	var count int

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if err := requirePost(ctx, tx, postID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO likes (user_id, post_id, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, post_id) DO NOTHING`,
			userID, postID, now(),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("post", postID)
			}
			return fmt.Errorf("postgres: inserting like on %s: %w", postID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.AlreadyLiked()
		}

		count, err = countLikes(ctx, tx, postID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (db *DB) Unlike(ctx context.Context, postID, userID string) (int, error) {
	var count int

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`,
			userID, postID,
		)
		if err != nil {
			return fmt.Errorf("postgres: deleting like on %s: %w", postID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NotLiked()
		}

		count, err = countLikes(ctx, tx, postID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// AddComment inserts the comment and joins in its author in the same
// statement through a CTE.
func (db *DB) AddComment(ctx context.Context, comment *model.Comment) (*model.CommentView, error) {
	comment.ID = xid.New().String()
	comment.CreatedAt = now()

	view := &model.CommentView{
		ID:        comment.ID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}

	err := db.pool.QueryRow(ctx,
		`WITH inserted AS (
			INSERT INTO comments (id, user_id, post_id, comment_text, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING user_id
		 )
		 SELECT u.username, u.profile_picture
		 FROM inserted i
		 JOIN users u ON u.id = i.user_id`,
		comment.ID,
		comment.UserID,
		comment.PostID,
		comment.Text,
		comment.CreatedAt,
	).Scan(&view.Username, &view.ProfilePicture)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperror.NotFound("post", comment.PostID)
		}
		return nil, fmt.Errorf("postgres: inserting comment on %s: %w", comment.PostID, err)
	}

	return view, nil
}

func (db *DB) ListComments(ctx context.Context, postID string) ([]model.CommentView, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, c.comment_text, c.created_at, u.username, u.profile_picture
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at DESC, c.id DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing comments on %s: %w", postID, err)
	}

	comments, err := collect(rows, func(row pgx.CollectableRow) (model.CommentView, error) {
		var c model.CommentView
		err := row.Scan(&c.ID, &c.Text, &c.CreatedAt, &c.Username, &c.ProfilePicture)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning comments: %w", err)
	}
	return comments, nil
}

func (db *DB) DeleteComment(ctx context.Context, commentID, ownerID string) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM comments WHERE id = $1 AND user_id = $2`,
		commentID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting comment %s: %w", commentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFoundOrUnauthorized("comment")
	}
	return nil
}

func requirePost(ctx context.Context, q querier, postID string) error {
	exists, err := rowExists(ctx, q, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID)
	if err != nil {
		return fmt.Errorf("postgres: checking post %s: %w", postID, err)
	}
	if !exists {
		return apperror.NotFound("post", postID)
	}
	return nil
}

func countLikes(ctx context.Context, q querier, postID string) (int, error) {
	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: counting likes on %s: %w", postID, err)
	}
	return count, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
