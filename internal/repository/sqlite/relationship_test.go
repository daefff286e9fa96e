package sqlite

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
)

func TestFollowUnfollow(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	ctx := context.Background()

	follow(t, db, bob.ID, alice.ID)

	following, err := db.IsFollowing(ctx, bob.ID, alice.ID)
	if err != nil || !following {
		t.Fatalf("IsFollowing() = %v, %v, want true", following, err)
	}
	// Direction matters.
	reverse, err := db.IsFollowing(ctx, alice.ID, bob.ID)
	if err != nil || reverse {
		t.Fatalf("IsFollowing(reverse) = %v, %v, want false", reverse, err)
	}

	err = db.Follow(ctx, bob.ID, alice.ID)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeAlreadyFollowing {
		t.Errorf("second Follow() error = %v, want %s", err, apperror.CodeAlreadyFollowing)
	}

	if err := db.Unfollow(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	following, err = db.IsFollowing(ctx, bob.ID, alice.ID)
	if err != nil || following {
		t.Fatalf("IsFollowing() after unfollow = %v, %v, want false", following, err)
	}

	err = db.Unfollow(ctx, bob.ID, alice.ID)
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeNotFollowing {
		t.Errorf("second Unfollow() error = %v, want %s", err, apperror.CodeNotFollowing)
	}
}

func TestFollow_Errors(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	tests := []struct {
		name        string
		followerID  string
		followingID string
		wantErr     error
	}{
		{"self follow", alice.ID, alice.ID, apperror.ErrConflict},
		{"self follow of unknown user", "ghost", "ghost", apperror.ErrConflict},
		{"unknown target", alice.ID, "ghost", apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.Follow(context.Background(), tt.followerID, tt.followingID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Follow() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListFollowersAndFollowing(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	dave := createTestUser(t, db, "dave")
	ctx := context.Background()

	follow(t, db, bob.ID, alice.ID)
	follow(t, db, carol.ID, alice.ID)
	follow(t, db, dave.ID, carol.ID) // the viewer follows carol only
	follow(t, db, alice.ID, bob.ID)

	followers, err := db.ListFollowers(ctx, alice.ID, dave.ID, repository.ListOptions{Limit: 50})
	if err != nil {
		t.Fatalf("ListFollowers() error = %v", err)
	}
	if len(followers) != 2 {
		t.Fatalf("ListFollowers() returned %d, want 2", len(followers))
	}
	// Most recent follow first.
	if followers[0].Username != "carol" || followers[1].Username != "bob" {
		t.Errorf("order = [%s %s], want [carol bob]", followers[0].Username, followers[1].Username)
	}
	// is_following is relative to the viewer (dave), not to alice.
	if !followers[0].IsFollowing || followers[1].IsFollowing {
		t.Errorf("is_following = [%v %v], want [true false]", followers[0].IsFollowing, followers[1].IsFollowing)
	}

	following, err := db.ListFollowing(ctx, alice.ID, dave.ID, repository.ListOptions{Limit: 50})
	if err != nil {
		t.Fatalf("ListFollowing() error = %v", err)
	}
	if len(following) != 1 || following[0].Username != "bob" {
		t.Errorf("ListFollowing() = %+v, want [bob]", following)
	}
}

func TestListFollowers_Pagination(t *testing.T) {
	db := newTestDB(t)
	star := createTestUser(t, db, "star")
	for _, name := range []string{"f1", "f2", "f3"} {
		fan := createTestUser(t, db, name)
		follow(t, db, fan.ID, star.ID)
	}

	page, err := db.ListFollowers(context.Background(), star.ID, star.ID, repository.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListFollowers() error = %v", err)
	}
	if len(page) != 1 || page[0].Username != "f1" {
		t.Errorf("second page = %+v, want [f1]", page)
	}
}

func TestListFollowers_TiesBreakOnMemberID(t *testing.T) {
	db := newTestDB(t)
	star := createTestUser(t, db, "star")
	first := createTestUser(t, db, "first")
	second := createTestUser(t, db, "second")
	third := createTestUser(t, db, "third")
	ctx := context.Background()

	// Same timestamp for every edge, inserted out of id order so rowid
	// and member id disagree.
	at := now()
	edges := [][2]string{
		{second.ID, star.ID},
		{third.ID, star.ID},
		{first.ID, star.ID},
		{star.ID, first.ID},
		{star.ID, third.ID},
		{star.ID, second.ID},
	}
	for _, e := range edges {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)`,
			e[0], e[1], at,
		); err != nil {
			t.Fatalf("inserting follow %s -> %s: %v", e[0], e[1], err)
		}
	}

	want := []string{"third", "second", "first"}

	followers, err := db.ListFollowers(ctx, star.ID, star.ID, repository.ListOptions{Limit: 50})
	if err != nil {
		t.Fatalf("ListFollowers() error = %v", err)
	}
	if got := usernames(followers); !slices.Equal(got, want) {
		t.Errorf("ListFollowers() order = %v, want %v", got, want)
	}

	following, err := db.ListFollowing(ctx, star.ID, star.ID, repository.ListOptions{Limit: 50})
	if err != nil {
		t.Fatalf("ListFollowing() error = %v", err)
	}
	if got := usernames(following); !slices.Equal(got, want) {
		t.Errorf("ListFollowing() order = %v, want %v", got, want)
	}
}

func usernames(members []model.Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	return names
}
