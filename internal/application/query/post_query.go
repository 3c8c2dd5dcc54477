package query

import "blog-service/internal/application/common"

type HomeQueryResult struct {
	RecentPosts   []*common.PostResult
	FeaturedPosts []*common.PostResult
	Categories    []*common.CategoryResult
}

// PostListQuery carries the raw query-string values of a listing request.
type PostListQuery struct {
	Category string
	Search   string
	Page     string
}

type PostListQueryResult struct {
	Posts      []*common.PostResult
	Categories []*common.CategoryResult
	Category   string
	Search     string
	Pagination Pagination
}

type Pagination struct {
	Page     int
	Pages    int
	PerPage  int
	Total    int64
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
}

type PostDetailQueryResult struct {
	Post      *common.PostResult
	Comments  []*common.CommentResult
	LikeCount int
	IsLiked   bool
}

type CategoryQueryListResult struct {
	Result []*common.CategoryResult `json:"result"`
}
