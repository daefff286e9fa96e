package model

import "time"

// Post is a single image post as stored.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView is a post in a list (feed, profile grid): the post, its author
// and live engagement relative to the viewer. Comments are only counted.
type PostView struct {
	Post
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture"`
	LikesCount     int    `json:"likes_count"`
	CommentsCount  int    `json:"comments_count"`
	IsLiked        bool   `json:"is_liked"`
}

// PostDetail is the single-post view. Unlike PostView it embeds the full
// comment list, newest first.
type PostDetail struct {
	PostView
	Comments []CommentView `json:"comments"`
}

// Comment is a comment row as stored.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	Text      string    `json:"comment_text"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentView is a comment joined with its author.
type CommentView struct {
	ID             string    `json:"id"`
	Text           string    `json:"comment_text"`
	CreatedAt      time.Time `json:"created_at"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profile_picture"`
}
