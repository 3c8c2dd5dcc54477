package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"blog-service/internal/application/command"
	"blog-service/internal/application/common"
	"blog-service/internal/application/interfaces"
	"blog-service/internal/application/mapper"
	"blog-service/internal/application/query"
	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/policy"
	"blog-service/internal/domain/repositories"
)

const recentPostsCount = 5

type PostServiceConfig struct {
	FeaturedPosts int
	PostsPerPage  int
}

type PostService struct {
	postRepo        repositories.PostRepository
	categoryRepo    repositories.CategoryRepository
	commentRepo     repositories.CommentRepository
	likeRepo        repositories.LikeRepository
	idempotencyRepo repositories.IdempotencyRepository
	media           MediaStore
	cfg             PostServiceConfig
}

func NewPostService(
	postRepo repositories.PostRepository,
	categoryRepo repositories.CategoryRepository,
	commentRepo repositories.CommentRepository,
	likeRepo repositories.LikeRepository,
	idempotencyRepo repositories.IdempotencyRepository,
	media MediaStore,
	cfg PostServiceConfig,
) interfaces.PostService {
	if cfg.FeaturedPosts <= 0 {
		cfg.FeaturedPosts = 3
	}
	if cfg.PostsPerPage <= 0 {
		cfg.PostsPerPage = 3
	}
	return &PostService{
		postRepo:        postRepo,
		categoryRepo:    categoryRepo,
		commentRepo:     commentRepo,
		likeRepo:        likeRepo,
		idempotencyRepo: idempotencyRepo,
		media:           media,
		cfg:             cfg,
	}
}

func (s *PostService) Home(ctx context.Context) (*query.HomeQueryResult, error) {
	recent, err := s.postRepo.Recent(ctx, recentPostsCount)
	if err != nil {
		return nil, fmt.Errorf("load recent posts: %w", err)
	}
	featured, err := s.postRepo.MostLiked(ctx, s.cfg.FeaturedPosts)
	if err != nil {
		return nil, fmt.Errorf("load featured posts: %w", err)
	}
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	return &query.HomeQueryResult{
		RecentPosts:   mapper.NewPostResults(recent),
		FeaturedPosts: mapper.NewPostResults(featured),
		Categories:    mapper.NewCategoryResults(categories),
	}, nil
}

// ListPosts filters by category and title search and returns one page.
// A category that is not a number matches nothing, a page that is not a
// number means the first page, and a page past the end is ErrNotFound.
func (s *PostService) ListPosts(ctx context.Context, listQuery *query.PostListQuery) (*query.PostListQueryResult, error) {
	filter := repositories.PostFilter{
		Search: listQuery.Search,
		Limit:  s.cfg.PostsPerPage,
	}
	if raw := strings.TrimSpace(listQuery.Category); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			filter.MatchNone = true
		} else {
			filter.CategoryId = uint(id)
		}
	}

	page := 1
	if raw := strings.TrimSpace(listQuery.Page); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}
	if page < 1 {
		return nil, ErrNotFound
	}
	filter.Offset = (page - 1) * s.cfg.PostsPerPage

	posts, total, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	pages := int((total + int64(s.cfg.PostsPerPage) - 1) / int64(s.cfg.PostsPerPage))
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		return nil, ErrNotFound
	}

	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	pagination := query.Pagination{
		Page:    page,
		Pages:   pages,
		PerPage: s.cfg.PostsPerPage,
		Total:   total,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	if pagination.HasPrev {
		pagination.PrevPage = page - 1
	}
	if pagination.HasNext {
		pagination.NextPage = page + 1
	}

	return &query.PostListQueryResult{
		Posts:      mapper.NewPostResults(posts),
		Categories: mapper.NewCategoryResults(categories),
		Category:   listQuery.Category,
		Search:     listQuery.Search,
		Pagination: pagination,
	}, nil
}

// GetPost loads a post with its comments. viewerID 0 means anonymous.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint) (*query.PostDetailQueryResult, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.FindByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	isLiked := false
	if viewerID != 0 {
		isLiked, err = s.likeRepo.Exists(ctx, postID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("check like: %w", err)
		}
	}

	return &query.PostDetailQueryResult{
		Post:      mapper.NewPostResultFromEntity(post),
		Comments:  mapper.NewCommentResults(comments),
		LikeCount: post.LikeCount,
		IsLiked:   isLiked,
	}, nil
}

// GetPostForEdit returns the post only when actorID may modify it.
func (s *PostService) GetPostForEdit(ctx context.Context, postID, actorID uint) (*common.PostResult, error) {
	post, err := s.authorizedPost(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}
	return mapper.NewPostResultFromEntity(post), nil
}

func (s *PostService) CreatePost(ctx context.Context, createCommand *command.CreatePostCommand) (*command.CreatePostCommandResult, error) {
	// Keys are scoped to the author so one user's key never replays another's post.
	idempotencyKey := ""
	if createCommand.IdempotencyKey != "" {
		idempotencyKey = fmt.Sprintf("%d:%s", createCommand.AuthorId, createCommand.IdempotencyKey)
		existingRecord, err := s.idempotencyRepo.FindByKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}

		if existingRecord != nil {
			// Return cached response
			var result command.CreatePostCommandResult
			if err := json.Unmarshal([]byte(existingRecord.Response), &result); err != nil {
				return nil, err
			}
			return &result, nil
		}
	}

	newPost := entities.NewPost(createCommand.AuthorId, createCommand.Title, createCommand.Content, createCommand.IsPublished)
	validatedPost, categoryIDs, err := s.validatePost(ctx, newPost, createCommand.CategoryIds, createCommand.CoverImage)
	if err != nil {
		return nil, err
	}

	if upload := createCommand.CoverImage; upload != nil {
		stored, err := s.media.Save(entities.CoverImageDir, upload.Filename, upload.Content)
		if err != nil {
			return nil, fmt.Errorf("store cover image: %w", err)
		}
		newPost.CoverImage = stored
	}

	createdPost, err := s.postRepo.Create(ctx, validatedPost, categoryIDs)
	if err != nil {
		if newPost.HasCustomCover() {
			s.media.Remove(newPost.CoverImage)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	result := command.CreatePostCommandResult{
		Result: mapper.NewPostResultFromEntity(createdPost),
	}

	// Store response in idempotency record
	if idempotencyKey != "" {
		requestJSON, _ := json.Marshal(createCommand)
		idempotencyRecord := entities.NewIdempotencyRecord(idempotencyKey, string(requestJSON))
		responseJSON, _ := json.Marshal(result)
		idempotencyRecord.SetResponse(string(responseJSON), http.StatusFound)
		if _, err := s.idempotencyRepo.Create(ctx, idempotencyRecord); err != nil {
			log.Printf("Failed to store idempotency record: %v", err)
		}
	}

	log.Printf("User %d created post %d", createdPost.AuthorId, createdPost.Id)
	return &result, nil
}

// UpdatePost applies an edit after the ownership check. The author is reset
// to the actor on every edit.
func (s *PostService) UpdatePost(ctx context.Context, updateCommand *command.UpdatePostCommand) (*command.UpdatePostCommandResult, error) {
	post, err := s.authorizedPost(ctx, updateCommand.PostId, updateCommand.ActorId)
	if err != nil {
		return nil, err
	}

	post.Edit(updateCommand.ActorId, updateCommand.Title, updateCommand.Content, updateCommand.IsPublished)
	validatedPost, categoryIDs, err := s.validatePost(ctx, post, updateCommand.CategoryIds, updateCommand.CoverImage)
	if err != nil {
		return nil, err
	}

	previousCover := post.CoverImage
	upload := updateCommand.CoverImage
	if upload != nil {
		stored, err := s.media.Save(entities.CoverImageDir, upload.Filename, upload.Content)
		if err != nil {
			return nil, fmt.Errorf("store cover image: %w", err)
		}
		post.CoverImage = stored
	}

	updatedPost, err := s.postRepo.Update(ctx, validatedPost, categoryIDs)
	if err != nil {
		if upload != nil {
			s.media.Remove(post.CoverImage)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	if upload != nil && previousCover != entities.DefaultCoverImage {
		s.media.Remove(previousCover)
	}

	return &command.UpdatePostCommandResult{
		Result: mapper.NewPostResultFromEntity(updatedPost),
	}, nil
}

func (s *PostService) DeletePost(ctx context.Context, deleteCommand *command.DeletePostCommand) error {
	post, err := s.authorizedPost(ctx, deleteCommand.PostId, deleteCommand.ActorId)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, post.Id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	if post.HasCustomCover() {
		s.media.Remove(post.CoverImage)
	}

	log.Printf("User %d deleted post %d", deleteCommand.ActorId, post.Id)
	return nil
}

func (s *PostService) AddComment(ctx context.Context, commentCommand *command.AddCommentCommand) (*command.AddCommentCommandResult, error) {
	if _, err := s.findPost(ctx, commentCommand.PostId); err != nil {
		return nil, err
	}

	comment := entities.NewComment(commentCommand.PostId, commentCommand.AuthorId, commentCommand.Content)
	if fields := comment.Validate(); !fields.OK() {
		return nil, newValidationError(fields)
	}

	created, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &command.AddCommentCommandResult{
		Result: mapper.NewCommentResultFromEntity(created),
	}, nil
}

// LikePost records a like. The lookup only picks the friendly path; the
// unique index decides when two requests race.
func (s *PostService) LikePost(ctx context.Context, likeCommand *command.LikePostCommand) error {
	if _, err := s.findPost(ctx, likeCommand.PostId); err != nil {
		return err
	}

	exists, err := s.likeRepo.Exists(ctx, likeCommand.PostId, likeCommand.UserId)
	if err != nil {
		return fmt.Errorf("check like: %w", err)
	}
	if exists {
		return ErrAlreadyLiked
	}

	_, err = s.likeRepo.Create(ctx, entities.NewLike(likeCommand.PostId, likeCommand.UserId))
	if errors.Is(err, repositories.ErrDuplicate) {
		return ErrAlreadyLiked
	}
	if err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

func (s *PostService) findPost(ctx context.Context, postID uint) (*entities.Post, error) {
	post, err := s.postRepo.FindById(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

func (s *PostService) authorizedPost(ctx context.Context, postID, actorID uint) (*entities.Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyPost(&entities.User{Id: actorID}, post) {
		return nil, ErrForbidden
	}
	return post, nil
}

// validatePost collects every form error for a post: entity fields,
// category choices and the optional cover upload.
func (s *PostService) validatePost(ctx context.Context, post *entities.Post, rawCategoryIDs []string, cover *common.Upload) (*entities.ValidatedPost, []uint, error) {
	fields := entities.FieldErrors{}

	validatedPost, err := entities.NewValidatedPost(post)
	if err != nil {
		fe := fieldErrorsOf(err)
		if fe == nil {
			return nil, nil, err
		}
		fields.Merge(fe)
	}

	categoryIDs, categoryErrs, err := s.resolveCategories(ctx, rawCategoryIDs)
	if err != nil {
		return nil, nil, err
	}
	fields.Merge(categoryErrs)

	if cover != nil {
		fields.Merge(entities.ValidateImageUpload("cover_image", cover.Filename, cover.ContentType))
	}

	if !fields.OK() {
		return nil, nil, newValidationError(fields)
	}
	return validatedPost, categoryIDs, nil
}

func (s *PostService) resolveCategories(ctx context.Context, raw []string) ([]uint, entities.FieldErrors, error) {
	fields := entities.FieldErrors{}
	ids := make([]uint, 0, len(raw))
	seen := map[uint]bool{}
	for _, value := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			fields.Add("categories", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value))
			continue
		}
		if !seen[uint(id)] {
			seen[uint(id)] = true
			ids = append(ids, uint(id))
		}
	}
	if len(ids) == 0 {
		return ids, fields, nil
	}

	found, err := s.categoryRepo.FindByIds(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}
	known := make(map[uint]bool, len(found))
	for _, c := range found {
		known[c.Id] = true
	}
	for _, id := range ids {
		if !known[id] {
			fields.Add("categories", fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id))
		}
	}
	return ids, fields, nil
}
