package entities

import (
	"strings"
	"time"
)

type Comment struct {
	Id        uint
	PostId    uint
	AuthorId  uint
	Author    *User
	Content   string
	CreatedAt time.Time
}

func NewComment(postID, authorID uint, content string) *Comment {
	return &Comment{
		PostId:    postID,
		AuthorId:  authorID,
		Content:   strings.TrimSpace(content),
		CreatedAt: time.Now(),
	}
}

func (c *Comment) Validate() FieldErrors {
	errs := FieldErrors{}
	if c.Content == "" {
		errs.Add("comment_content", "This field is required.")
	}
	return errs
}
