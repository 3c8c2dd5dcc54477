package mapper

import (
	"blog-service/internal/application/common"
	"blog-service/internal/domain/entities"
)

func NewUserResultFromEntity(user *entities.User) *common.UserResult {
	if user == nil {
		return nil
	}
	return &common.UserResult{
		Id:        user.Id,
		CreatedAt: user.CreatedAt,
		Username:  user.Username,
		Email:     user.Email,
	}
}

func NewUserResultFromValidatedEntity(validatedUser *entities.ValidatedUser) *common.UserResult {
	return NewUserResultFromEntity(validatedUser.GetUser())
}

func NewProfileResult(user *entities.User, profile *entities.Profile) *common.ProfileResult {
	return &common.ProfileResult{
		Id:          profile.Id,
		User:        NewUserResultFromEntity(user),
		DateOfBirth: profile.DateOfBirth,
		ProfilePic:  profile.ProfilePic,
	}
}

func NewCategoryResultFromEntity(category *entities.Category) *common.CategoryResult {
	return &common.CategoryResult{
		Id:          category.Id,
		Name:        category.Name,
		Description: category.Description,
	}
}

func NewCategoryResults(categories []*entities.Category) []*common.CategoryResult {
	results := make([]*common.CategoryResult, 0, len(categories))
	for _, c := range categories {
		results = append(results, NewCategoryResultFromEntity(c))
	}
	return results
}

func NewPostResultFromEntity(post *entities.Post) *common.PostResult {
	result := &common.PostResult{
		Id:          post.Id,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
		Title:       post.Title,
		Content:     post.Content,
		Author:      NewUserResultFromEntity(post.Author),
		Categories:  make([]*common.CategoryResult, 0, len(post.Categories)),
		IsPublished: post.IsPublished,
		CoverImage:  post.CoverImage,
		LikeCount:   post.LikeCount,
	}
	for i := range post.Categories {
		result.Categories = append(result.Categories, NewCategoryResultFromEntity(&post.Categories[i]))
	}
	return result
}

func NewPostResults(posts []*entities.Post) []*common.PostResult {
	results := make([]*common.PostResult, 0, len(posts))
	for _, p := range posts {
		results = append(results, NewPostResultFromEntity(p))
	}
	return results
}

func NewCommentResultFromEntity(comment *entities.Comment) *common.CommentResult {
	return &common.CommentResult{
		Id:        comment.Id,
		Author:    NewUserResultFromEntity(comment.Author),
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

func NewCommentResults(comments []*entities.Comment) []*common.CommentResult {
	results := make([]*common.CommentResult, 0, len(comments))
	for _, c := range comments {
		results = append(results, NewCommentResultFromEntity(c))
	}
	return results
}
