package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/auth"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

const (
	MaxUsernameLength = 30
	MinPasswordLength = 6

	// githubUsernameAttempts bounds the suffixes tried when a GitHub login
	// collides with an existing username.
	githubUsernameAttempts = 5
)

// AuthService handles signup, login and GitHub sign-in.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignupInput is the data needed to create a password account.
type SignupInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Signup creates a password account and logs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" || email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", "username, email, and password are required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeFailure(s.logger, "creating user", err, slog.String("username", username))
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login checks a username and password. An unknown username and a wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("", "username and password are required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid credentials")
		}
		return nil, storeFailure(s.logger, "loading user", err, slog.String("username", username))
	}

	// GitHub-only accounts have no password hash and cannot log in this way.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthenticated("invalid credentials")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("password verification failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthenticated("invalid credentials")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account linked to the GitHub user,
// creating it on first login.
//
// A new account takes the GitHub login as its username. If that is taken,
// "login-2", "login-3" and so on are tried with a GitHub noreply address, so
// a collision with a password account's email does not block sign-in.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	if err == nil {
		s.logger.Info("user authenticated via GitHub", slog.String("userID", user.ID))
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, storeFailure(s.logger, "loading GitHub user", err, slog.Int64("githubID", ghUser.ID))
	}

	githubID := ghUser.ID
	noreply := fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, strings.ToLower(ghUser.Login))

	for attempt := 1; attempt <= githubUsernameAttempts; attempt++ {
		user = &model.User{
			Username:       ghUser.Login,
			Email:          strings.ToLower(ghUser.Email),
			FullName:       ghUser.Name,
			ProfilePicture: ghUser.AvatarURL,
			GitHubID:       &githubID,
		}
		if user.Email == "" {
			user.Email = noreply
		}
		if attempt > 1 {
			user.Username = fmt.Sprintf("%s-%d", ghUser.Login, attempt)
			user.Email = noreply
		}

		err = s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user registered via GitHub",
				slog.String("userID", user.ID),
				slog.String("username", user.Username),
			)
			return s.issue(user)
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, storeFailure(s.logger, "creating GitHub user", err, slog.Int64("githubID", ghUser.ID))
		}
	}

	return nil, err
}

// Me returns the viewer's own profile.
func (s *AuthService) Me(ctx context.Context, viewerID string) (*model.Profile, error) {
	if viewerID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	profile, err := s.users.GetProfile(ctx, viewerID, viewerID)
	if err != nil {
		return nil, storeFailure(s.logger, "loading profile", err, slog.String("userID", viewerID))
	}
	return profile, nil
}

// TokenTTL exposes the token lifetime for cookie expiry.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
