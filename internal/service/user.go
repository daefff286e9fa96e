package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

const (
	MaxProfilePictureLength = 255
	SearchLimit             = 20
	DefaultMemberLimit      = 50
)

// UserService covers profiles, search and the follow graph.
type UserService struct {
	users     repository.UserRepository
	relations repository.RelationshipRepository
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, relations repository.RelationshipRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		relations: relations,
		logger:    logger,
	}
}

// Profile returns subjectID's profile with live counts and flags relative
// to viewerID.
func (s *UserService) Profile(ctx context.Context, subjectID, viewerID string) (*model.Profile, error) {
	profile, err := s.users.GetProfile(ctx, subjectID, viewerID)
	if err != nil {
		return nil, storeFailure(s.logger, "loading profile", err, slog.String("userID", subjectID))
	}
	return profile, nil
}

// UpdateProfilePicture sets the viewer's picture URL. Surrounding space is
// trimmed and an empty value clears the picture.
func (s *UserService) UpdateProfilePicture(ctx context.Context, viewerID, url string) (*model.User, error) {
	url = strings.TrimSpace(url)
	if utf8.RuneCountInString(url) > MaxProfilePictureLength {
		return nil, apperror.ValidationFailed("profile_picture", "profile picture URL is too long")
	}

	user, err := s.users.UpdateProfilePicture(ctx, viewerID, url)
	if err != nil {
		return nil, storeFailure(s.logger, "updating profile picture", err, slog.String("userID", viewerID))
	}

	s.logger.Info("profile picture updated", slog.String("userID", viewerID))
	return user, nil
}

// Search matches username or full name by substring. A blank query
// returns no users without touching the store.
func (s *UserService) Search(ctx context.Context, query, viewerID string) ([]model.Member, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Member{}, nil
	}

	users, err := s.users.SearchUsers(ctx, query, viewerID, SearchLimit)
	if err != nil {
		return nil, storeFailure(s.logger, "searching users", err, slog.String("query", query))
	}
	return users, nil
}

// Follow makes the viewer follow subjectID. Following oneself is rejected
// before any lookup, so it fails the same way for unknown IDs.
func (s *UserService) Follow(ctx context.Context, subjectID, viewerID string) error {
	if subjectID == viewerID {
		return apperror.SelfFollow()
	}

	if err := s.relations.Follow(ctx, viewerID, subjectID); err != nil {
		return storeFailure(s.logger, "following user", err,
			slog.String("followerID", viewerID), slog.String("followingID", subjectID))
	}

	s.logger.Info("user followed",
		slog.String("followerID", viewerID),
		slog.String("followingID", subjectID),
	)
	return nil
}

// Unfollow removes the viewer's follow of subjectID.
func (s *UserService) Unfollow(ctx context.Context, subjectID, viewerID string) error {
	if err := s.relations.Unfollow(ctx, viewerID, subjectID); err != nil {
		return storeFailure(s.logger, "unfollowing user", err,
			slog.String("followerID", viewerID), slog.String("followingID", subjectID))
	}
	return nil
}

// Followers lists who follows subjectID, newest follow first. Each entry's
// is_following says whether the viewer follows that user.
func (s *UserService) Followers(ctx context.Context, subjectID, viewerID string, limit, offset int) ([]model.Member, error) {
	opts := repository.ListOptions{Limit: limit, Offset: offset}.Clamp(DefaultMemberLimit)

	members, err := s.relations.ListFollowers(ctx, subjectID, viewerID, opts)
	if err != nil {
		return nil, storeFailure(s.logger, "listing followers", err, slog.String("userID", subjectID))
	}
	return members, nil
}

// Following lists who subjectID follows, newest follow first.
func (s *UserService) Following(ctx context.Context, subjectID, viewerID string, limit, offset int) ([]model.Member, error) {
	opts := repository.ListOptions{Limit: limit, Offset: offset}.Clamp(DefaultMemberLimit)

	members, err := s.relations.ListFollowing(ctx, subjectID, viewerID, opts)
	if err != nil {
		return nil, storeFailure(s.logger, "listing following", err, slog.String("userID", subjectID))
	}
	return members, nil
}
