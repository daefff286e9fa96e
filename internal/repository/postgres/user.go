package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

const userColumns = `id, username, email, password_hash, full_name, bio, profile_picture, github_id, created_at`

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = now()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, full_name, bio, profile_picture, github_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Bio,
		user.ProfilePicture,
		user.GitHubID,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictCode("user_exists", "username or email already exists")
		}
		return fmt.Errorf("postgres: inserting user %s: %w", user.Username, err)
	}

	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "id", id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row, "username", username)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID)
	return scanUser(row, "github_id", fmt.Sprint(githubID))
}

func (db *DB) UpdateProfilePicture(ctx context.Context, userID, url string) (*model.User, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE users SET profile_picture = $1 WHERE id = $2 RETURNING `+userColumns,
		url, userID,
	)
	return scanUser(row, "id", userID)
}

// GetProfile sends the user lookup and its four independent aggregates as
// one batch. The statements are read-only and unrelated, so batching them
// changes nothing but the number of round trips.
func (db *DB) GetProfile(ctx context.Context, subjectID, viewerID string) (*model.Profile, error) {
	batch := &pgx.Batch{}
	batch.Queue(`SELECT `+userColumns+` FROM users WHERE id = $1`, subjectID)
	batch.Queue(`SELECT COUNT(*) FROM follows WHERE following_id = $1`, subjectID)
	batch.Queue(`SELECT COUNT(*) FROM follows WHERE follower_id = $1`, subjectID)
	batch.Queue(`SELECT COUNT(*) FROM posts WHERE user_id = $1`, subjectID)
	batch.Queue(`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`,
		viewerID, subjectID)

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	user, err := scanUser(br.QueryRow(), "id", subjectID)
	if err != nil {
		return nil, err
	}

	p := model.Profile{User: *user}
	for _, dest := range []any{&p.FollowersCount, &p.FollowingCount, &p.PostsCount, &p.IsFollowing} {
		if err := br.QueryRow().Scan(dest); err != nil {
			return nil, fmt.Errorf("postgres: loading profile counts for %s: %w", subjectID, err)
		}
	}
	p.IsOwnProfile = subjectID == viewerID

	return &p, nil
}

func (db *DB) SearchUsers(ctx context.Context, query, viewerID string, limit int) ([]model.Member, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT u.id, u.username, u.full_name, u.profile_picture,
		        EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = $2 AND f.following_id = u.id)
		 FROM users u
		 WHERE (u.username ILIKE $1 ESCAPE '\' OR u.full_name ILIKE $1 ESCAPE '\')
		   AND u.id <> $2
		 ORDER BY u.username
		 LIMIT $3`,
		repository.LikePattern(query), viewerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: searching users: %w", err)
	}

	members, err := collect(rows, scanMember)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning search results: %w", err)
	}
	return members, nil
}

func scanUser(row pgx.Row, key, value string) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Bio,
		&u.ProfilePicture,
		&u.GitHubID,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("postgres: getting user by %s %s: %w", key, value, err)
	}
	return &u, nil
}

func scanMember(row pgx.CollectableRow) (model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.Username, &m.FullName, &m.ProfilePicture, &m.IsFollowing)
	return m, err
}
