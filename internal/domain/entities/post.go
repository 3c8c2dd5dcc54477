package entities

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultCoverImage = "cover.jpg"
	CoverImageDir     = "cover_pics"
)

type Post struct {
	Id          uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Title       string
	Content     string
	AuthorId    uint
	Author      *User
	Categories  []Category
	IsPublished bool
	CoverImage  string
	LikeCount   int
}

func NewPost(authorID uint, title, content string, isPublished bool) *Post {
	return &Post{
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Title:       strings.TrimSpace(title),
		Content:     strings.TrimSpace(content),
		AuthorId:    authorID,
		IsPublished: isPublished,
		CoverImage:  DefaultCoverImage,
	}
}

func (p *Post) validate() FieldErrors {
	errs := FieldErrors{}
	switch {
	case p.Title == "":
		errs.Add("title", "This field is required.")
	case utf8.RuneCountInString(p.Title) > MaxTitleLength:
		errs.Add("title", "Ensure this value has at most 200 characters.")
	}
	if p.Content == "" {
		errs.Add("content", "This field is required.")
	}
	return errs
}

// Edit applies form values to an existing post. The author is always reset
// to actorID so a submission can never reassign ownership.
func (p *Post) Edit(actorID uint, title, content string, isPublished bool) {
	p.Title = strings.TrimSpace(title)
	p.Content = strings.TrimSpace(content)
	p.IsPublished = isPublished
	p.AuthorId = actorID
	p.UpdatedAt = time.Now()
}

// HasCustomCover reports whether the cover points at an uploaded file rather
// than the shared default.
func (p *Post) HasCustomCover() bool {
	return p.CoverImage != "" && p.CoverImage != DefaultCoverImage
}

func (p *Post) CategoryIds() []uint {
	ids := make([]uint, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.Id)
	}
	return ids
}

type ValidatedPost struct {
	*Post
}

func NewValidatedPost(post *Post) (*ValidatedPost, error) {
	if errs := post.validate(); !errs.OK() {
		return nil, &InvalidError{Fields: errs}
	}
	return &ValidatedPost{Post: post}, nil
}

func (vp *ValidatedPost) GetPost() *Post {
	return vp.Post
}
