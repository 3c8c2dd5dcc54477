package common

import (
	"io"
	"time"
)

type UserResult struct {
	Id        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
}

type ProfileResult struct {
	Id          uint        `json:"id"`
	User        *UserResult `json:"user"`
	DateOfBirth *time.Time  `json:"date_of_birth,omitempty"`
	ProfilePic  string      `json:"profile_pic"`
}

type CategoryResult struct {
	Id          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PostResult struct {
	Id          uint              `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Author      *UserResult       `json:"author"`
	Categories  []*CategoryResult `json:"categories"`
	IsPublished bool              `json:"is_published"`
	CoverImage  string            `json:"cover_image"`
	LikeCount   int               `json:"like_count"`
}

// HasCategory reports whether the post is filed under id.
func (p *PostResult) HasCategory(id uint) bool {
	for _, c := range p.Categories {
		if c.Id == id {
			return true
		}
	}
	return false
}

type CommentResult struct {
	Id        uint        `json:"id"`
	Author    *UserResult `json:"author"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionResult is the authenticated user behind a session token.
type SessionResult struct {
	User    *UserResult
	TokenId string
}

// Upload is a file submitted with a form. Content is read once.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}
