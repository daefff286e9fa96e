package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sakif/snapgram/internal/apperror"
)

func TestLikeUnlike_CountNeverNegative(t *testing.T) {
	s := newTestServices(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")
	post := s.post(t, alice.ID, "hello")
	ctx := context.Background()

	steps := []struct {
		name      string
		like      bool
		wantCount int
		wantErr   error
	}{
		{"like", true, 1, nil},
		{"like again", true, 0, apperror.ErrConflict},
		{"unlike", false, 0, nil},
		{"unlike again", false, 0, apperror.ErrConflict},
		{"like after unlike", true, 1, nil},
	}

	for _, step := range steps {
		var (
			count int
			err   error
		)
		if step.like {
			count, err = s.engagement.Like(ctx, post.ID, bob.ID)
		} else {
			count, err = s.engagement.Unlike(ctx, post.ID, bob.ID)
		}

		if step.wantErr != nil {
			if !errors.Is(err, step.wantErr) {
				t.Errorf("%s: error = %v, want %v", step.name, err, step.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if count != step.wantCount {
			t.Errorf("%s: count = %d, want %d", step.name, count, step.wantCount)
		}
	}
}

func TestLike_ConcurrentDistinctUsers(t *testing.T) {
	s := newTestServices(t)
	author := s.signup(t, "author")
	post := s.post(t, author.ID, "popular")

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		ids[i] = s.signup(t, fmt.Sprintf("fan%d", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := s.engagement.Like(context.Background(), post.ID, userID); err != nil {
				t.Errorf("Like() error = %v", err)
			}
		}(id)
	}
	wg.Wait()

	detail, err := s.posts.Get(context.Background(), post.ID, author.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if detail.LikesCount != n {
		t.Errorf("LikesCount = %d, want %d", detail.LikesCount, n)
	}
}

func TestAddComment_Validation(t *testing.T) {
	s := newTestServices(t)
	alice := s.signup(t, "alice")
	post := s.post(t, alice.ID, "hello")
	ctx := context.Background()

	for _, text := range []string{"", "   \n\t", strings.Repeat("x", MaxCommentLength+1), strings.Repeat("é", MaxCommentLength+1)} {
		if _, err := s.engagement.AddComment(ctx, post.ID, alice.ID, text); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("AddComment(%.10q) error = %v, want ErrValidation", text, err)
		}
	}

	if _, err := s.engagement.AddComment(ctx, "missing", alice.ID, "hi"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddComment(missing post) error = %v, want ErrNotFound", err)
	}

	// Characters, not bytes: 1500 two-byte runes fit.
	if _, err := s.engagement.AddComment(ctx, post.ID, alice.ID, strings.Repeat("é", 1500)); err != nil {
		t.Errorf("AddComment(1500 multi-byte characters) error = %v, want nil", err)
	}

	view, err := s.engagement.AddComment(ctx, post.ID, alice.ID, "  trimmed  ")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if view.Text != "trimmed" || view.Username != "alice" {
		t.Errorf("AddComment() = %+v, want trimmed text by alice", view)
	}
}

func TestDeleteComment_OnlyAuthor(t *testing.T) {
	s := newTestServices(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")
	post := s.post(t, alice.ID, "hello")
	ctx := context.Background()

	c, err := s.engagement.AddComment(ctx, post.ID, bob.ID, "hey")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}

	if err := s.engagement.DeleteComment(ctx, c.ID, alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteComment(not author) error = %v, want ErrNotFound", err)
	}
	if err := s.engagement.DeleteComment(ctx, c.ID, bob.ID); err != nil {
		t.Errorf("DeleteComment(author) error = %v", err)
	}

	comments, err := s.engagement.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("ListComments() = %+v, want none", comments)
	}
}
