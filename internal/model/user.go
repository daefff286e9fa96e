// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// PasswordHash and GitHubID never leave the server: their json tag is "-".
// A user created through GitHub OAuth has an empty PasswordHash and can only
// log in through GitHub.
//
// Optional text fields (FullName, Bio, ProfilePicture) use the empty string as
// "not set" rather than a nullable pointer.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	FullName       string    `json:"full_name"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	GitHubID       *int64    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is a user as seen by a viewer: the public fields plus live counts
// and the viewer's relationship to the subject.
type Profile struct {
	User
	FollowersCount int  `json:"followers_count"`
	FollowingCount int  `json:"following_count"`
	PostsCount     int  `json:"posts_count"`
	IsFollowing    bool `json:"is_following"`
	IsOwnProfile   bool `json:"is_own_profile"`
}

// Member is one row of a follower/following/search listing. IsFollowing
// is the VIEWER's relationship to this member, not the listed subject's.
type Member struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
	IsFollowing    bool   `json:"is_following"`
}
