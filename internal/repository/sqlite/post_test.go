package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/repository"
)

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	post := createTestPost(t, db, alice.ID, "hello")

	if post.ID == "" {
		t.Error("CreatePost() did not set post.ID")
	}
	if post.CreatedAt.IsZero() {
		t.Error("CreatePost() did not set post.CreatedAt")
	}
}

func TestCreatePost_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)

	err := db.CreatePost(context.Background(), createPostInput("ghost"))
	if err == nil {
		t.Fatal("CreatePost() should fail for an unknown author (foreign key)")
	}
}

func TestGetPost(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "hello")

	if _, err := db.Like(context.Background(), post.ID, bob.ID); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	addTestComment(t, db, post.ID, bob.ID, "first")
	addTestComment(t, db, post.ID, alice.ID, "second")

	detail, err := db.GetPost(context.Background(), post.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}

	if detail.Username != "alice" {
		t.Errorf("Username = %q, want alice", detail.Username)
	}
	if detail.Caption != "hello" {
		t.Errorf("Caption = %q, want hello", detail.Caption)
	}
	if detail.LikesCount != 1 || !detail.IsLiked {
		t.Errorf("LikesCount = %d, IsLiked = %v, want 1, true", detail.LikesCount, detail.IsLiked)
	}
	if detail.CommentsCount != 2 || len(detail.Comments) != 2 {
		t.Fatalf("CommentsCount = %d, len(Comments) = %d, want 2", detail.CommentsCount, len(detail.Comments))
	}
	if detail.Comments[0].Text != "second" || detail.Comments[0].Username != "alice" {
		t.Errorf("Comments[0] = %+v, want newest comment by alice", detail.Comments[0])
	}

	asAuthor, err := db.GetPost(context.Background(), post.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetPost(as author) error = %v", err)
	}
	if asAuthor.IsLiked {
		t.Error("IsLiked = true for a viewer who did not like the post")
	}
}

func TestGetPost_NoCommentsIsEmptySlice(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice.ID, "quiet")

	detail, err := db.GetPost(context.Background(), post.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if detail.Comments == nil {
		t.Error("Comments = nil, want empty slice")
	}
}

func TestGetPost_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetPost(context.Background(), "nonexistent-id", "viewer")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetPost() error = %v, want ErrNotFound", err)
	}
}

func TestListUserPosts(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestPost(t, db, alice.ID, "one")
	createTestPost(t, db, alice.ID, "two")
	createTestPost(t, db, bob.ID, "bobs")

	posts, err := db.ListUserPosts(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("ListUserPosts() error = %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("ListUserPosts() returned %d posts, want 2", len(posts))
	}
	if posts[0].Caption != "two" || posts[1].Caption != "one" {
		t.Errorf("order = [%s %s], want newest first [two one]", posts[0].Caption, posts[1].Caption)
	}
}

func TestFeed_EmptyForNewUser(t *testing.T) {
	db := newTestDB(t)
	loner := createTestUser(t, db, "loner")
	other := createTestUser(t, db, "other")
	createTestPost(t, db, other.ID, "not followed")

	posts, err := db.Feed(context.Background(), loner.ID, repository.ListOptions{Limit: 20})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("Feed() = %v, want empty non-nil slice", posts)
	}
}

func TestFeed_IncludesOwnAndFollowedPosts(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	createTestPost(t, db, alice.ID, "alice-post")
	createTestPost(t, db, carol.ID, "carol-post")
	createTestPost(t, db, bob.ID, "bob-post")
	follow(t, db, bob.ID, alice.ID)

	posts, err := db.Feed(context.Background(), bob.ID, repository.ListOptions{Limit: 20})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("Feed() returned %d posts, want 2", len(posts))
	}
	if posts[0].Caption != "bob-post" || posts[1].Caption != "alice-post" {
		t.Errorf("order = [%s %s], want [bob-post alice-post]", posts[0].Caption, posts[1].Caption)
	}
	if posts[1].Username != "alice" {
		t.Errorf("author = %q, want alice", posts[1].Username)
	}
}

func TestFeed_Pagination(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	for i := 0; i < 5; i++ {
		createTestPost(t, db, alice.ID, "p")
	}

	pages := []struct {
		offset int
		want   int
	}{
		{0, 2},
		{2, 2},
		{4, 1},
		{6, 0},
	}
	for _, p := range pages {
		posts, err := db.Feed(context.Background(), alice.ID, repository.ListOptions{Limit: 2, Offset: p.offset})
		if err != nil {
			t.Fatalf("Feed(offset=%d) error = %v", p.offset, err)
		}
		if len(posts) != p.want {
			t.Errorf("Feed(offset=%d) returned %d posts, want %d", p.offset, len(posts), p.want)
		}
	}
}

func TestFeed_EngagementCounts(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "hello")
	follow(t, db, bob.ID, alice.ID)

	if _, err := db.Like(context.Background(), post.ID, alice.ID); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	addTestComment(t, db, post.ID, bob.ID, "nice!")

	posts, err := db.Feed(context.Background(), bob.ID, repository.ListOptions{Limit: 20})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("Feed() returned %d posts, want 1", len(posts))
	}

	got := posts[0]
	if got.LikesCount != 1 || got.CommentsCount != 1 || got.IsLiked {
		t.Errorf("engagement = (likes %d, comments %d, liked %v), want (1, 1, false)",
			got.LikesCount, got.CommentsCount, got.IsLiked)
	}
}

func TestDeletePost(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "hello")

	err := db.DeletePost(context.Background(), post.ID, bob.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("DeletePost(not owner) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetPost(context.Background(), post.ID, alice.ID); err != nil {
		t.Fatalf("post should survive a foreign delete, GetPost() error = %v", err)
	}

	if err := db.DeletePost(context.Background(), post.ID, alice.ID); err != nil {
		t.Fatalf("DeletePost(owner) error = %v", err)
	}
	if _, err := db.GetPost(context.Background(), post.ID, alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetPost() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeletePost_CascadesEngagement(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "hello")

	if _, err := db.Like(context.Background(), post.ID, bob.ID); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	addTestComment(t, db, post.ID, bob.ID, "bye")

	if err := db.DeletePost(context.Background(), post.ID, alice.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	var likes, comments int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM likes`).Scan(&likes); err != nil {
		t.Fatalf("counting likes: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&comments); err != nil {
		t.Fatalf("counting comments: %v", err)
	}
	if likes != 0 || comments != 0 {
		t.Errorf("orphans left: %d likes, %d comments", likes, comments)
	}
}
