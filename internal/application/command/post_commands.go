package command

import "blog-service/internal/application/common"

type CreatePostCommand struct {
	AuthorId       uint           `json:"author_id"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	CategoryIds    []string       `json:"categories"`
	IsPublished    bool           `json:"is_published"`
	CoverImage     *common.Upload `json:"-"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

type CreatePostCommandResult struct {
	Result *common.PostResult `json:"result"`
}

// UpdatePostCommand edits a post on behalf of ActorId. A nil CoverImage
// keeps the current cover.
type UpdatePostCommand struct {
	PostId      uint
	ActorId     uint
	Title       string
	Content     string
	CategoryIds []string
	IsPublished bool
	CoverImage  *common.Upload
}

type UpdatePostCommandResult struct {
	Result *common.PostResult `json:"result"`
}

type DeletePostCommand struct {
	PostId  uint
	ActorId uint
}

type AddCommentCommand struct {
	PostId   uint
	AuthorId uint
	Content  string
}

type AddCommentCommandResult struct {
	Result *common.CommentResult `json:"result"`
}

type LikePostCommand struct {
	PostId uint
	UserId uint
}

type CreateCategoryCommand struct {
	Name        string
	Description string
}

type CreateCategoryCommandResult struct {
	Result *common.CategoryResult `json:"result"`
}
