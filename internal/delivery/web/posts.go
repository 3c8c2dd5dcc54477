package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"blog-service/internal/application/command"
	"blog-service/internal/application/common"
	"blog-service/internal/application/query"
	"blog-service/internal/application/services"
	"blog-service/internal/domain/entities"
)

const dashboardErrorMessage = "Something went wrong while loading the dashboard. Please try again later."

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// Home renders the dashboard. Failures other than not-found are shown in
// the page instead of failing the request.
func (h *Handler) Home(c echo.Context) error {
	home, err := h.posts.Home(c.Request().Context())
	if errors.Is(err, services.ErrNotFound) {
		return echo.ErrNotFound
	}
	data := map[string]any{}
	if err != nil {
		log.Printf("Failed to load dashboard: %v", err)
		data["Error"] = dashboardErrorMessage
	} else {
		data["Home"] = home
	}
	return h.render(c, http.StatusOK, "home", "Home", data)
}

func (h *Handler) PostList(c echo.Context) error {
	listQuery := &query.PostListQuery{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		Page:     c.QueryParam("page"),
	}
	result, err := h.posts.ListPosts(c.Request().Context(), listQuery)
	if err != nil {
		return serviceError(err)
	}
	return h.render(c, http.StatusOK, "post_list", "Posts", map[string]any{"List": result})
}

// PostDetail shows a post. A POST carries either a comment or a like,
// told apart by which field the form submitted.
func (h *Handler) PostDetail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if c.Request().Method == http.MethodPost {
		form, err := c.FormParams()
		if err != nil {
			return echo.ErrBadRequest
		}
		if _, ok := form["comment_content"]; ok {
			return h.addComment(c, id, form.Get("comment_content"))
		}
		if _, ok := form["like_button"]; ok {
			return h.likePost(c, id)
		}
		return echo.ErrMethodNotAllowed
	}

	detail, err := h.posts.GetPost(c.Request().Context(), id, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}
	return h.render(c, http.StatusOK, "post_detail", detail.Post.Title, map[string]any{"Detail": detail})
}

func (h *Handler) addComment(c echo.Context, postID uint, content string) error {
	if currentUser(c) == nil {
		addFlash(c, levelWarning, "You must be logged in to comment.")
		return redirectToLogin(c)
	}

	_, err := h.posts.AddComment(c.Request().Context(), &command.AddCommentCommand{
		PostId:   postID,
		AuthorId: currentUserID(c),
		Content:  content,
	})
	if _, ok := validationErrors(err); ok {
		addFlash(c, levelWarning, "Comment cannot be empty.")
		return c.Redirect(http.StatusFound, postURL(postID))
	}
	if err != nil {
		return serviceError(err)
	}

	addFlash(c, levelSuccess, "Your comment has been added.")
	return c.Redirect(http.StatusFound, postURL(postID))
}

func (h *Handler) likePost(c echo.Context, postID uint) error {
	if currentUser(c) == nil {
		addFlash(c, levelWarning, "You must be logged in to like a post.")
		return redirectToLogin(c)
	}

	err := h.posts.LikePost(c.Request().Context(), &command.LikePostCommand{
		PostId: postID,
		UserId: currentUserID(c),
	})
	if errors.Is(err, services.ErrAlreadyLiked) {
		addFlash(c, levelWarning, "You have already liked this post.")
		return c.Redirect(http.StatusFound, postURL(postID))
	}
	if err != nil {
		return serviceError(err)
	}

	addFlash(c, levelSuccess, "You liked this post!")
	return c.Redirect(http.StatusFound, postURL(postID))
}

// postForm is what the create and update pages echo back on a failed submit.
type postForm struct {
	Title          string
	Content        string
	CategoryIds    []string
	IsPublished    bool
	IdempotencyKey string
}

func readPostForm(c echo.Context) (postForm, error) {
	params, err := c.FormParams()
	if err != nil {
		return postForm{}, echo.ErrBadRequest
	}
	return postForm{
		Title:          params.Get("title"),
		Content:        params.Get("content"),
		CategoryIds:    params["categories"],
		IsPublished:    checkbox(c, "is_published"),
		IdempotencyKey: params.Get("idempotency_key"),
	}, nil
}

func (h *Handler) renderPostForm(c echo.Context, title string, form postForm, post *common.PostResult, fields entities.FieldErrors) error {
	categories, err := h.categories.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "post_form", title, map[string]any{
		"Form":       form,
		"Post":       post,
		"Categories": categories.Result,
		"Errors":     fields,
	})
}

func (h *Handler) PostCreate(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return h.renderPostForm(c, "New Post", postForm{IsPublished: true, IdempotencyKey: uuid.NewString()}, nil, nil)
	}

	form, err := readPostForm(c)
	if err != nil {
		return err
	}
	cover, closeCover, err := formUpload(c, "cover_image")
	if err != nil {
		return echo.ErrBadRequest
	}
	defer closeCover()

	result, err := h.posts.CreatePost(c.Request().Context(), &command.CreatePostCommand{
		AuthorId:       currentUserID(c),
		Title:          form.Title,
		Content:        form.Content,
		CategoryIds:    form.CategoryIds,
		IsPublished:    form.IsPublished,
		CoverImage:     cover,
		IdempotencyKey: form.IdempotencyKey,
	})
	if fields, ok := validationErrors(err); ok {
		return h.renderPostForm(c, "New Post", form, nil, fields)
	}
	if err != nil {
		return serviceError(err)
	}

	addFlash(c, levelSuccess, "Post created successfully!")
	return c.Redirect(http.StatusFound, postURL(result.Result.Id))
}

func (h *Handler) PostUpdate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.posts.GetPostForEdit(c.Request().Context(), id, currentUserID(c))
	if err != nil {
		return serviceError(err)
	}

	if c.Request().Method == http.MethodGet {
		form := postForm{
			Title:       post.Title,
			Content:     post.Content,
			IsPublished: post.IsPublished,
		}
		for _, cat := range post.Categories {
			form.CategoryIds = append(form.CategoryIds, fmt.Sprint(cat.Id))
		}
		return h.renderPostForm(c, "Edit Post", form, post, nil)
	}

	form, err := readPostForm(c)
	if err != nil {
		return err
	}
	cover, closeCover, err := formUpload(c, "cover_image")
	if err != nil {
		return echo.ErrBadRequest
	}
	defer closeCover()

	_, err = h.posts.UpdatePost(c.Request().Context(), &command.UpdatePostCommand{
		PostId:      id,
		ActorId:     currentUserID(c),
		Title:       form.Title,
		Content:     form.Content,
		CategoryIds: form.CategoryIds,
		IsPublished: form.IsPublished,
		CoverImage:  cover,
	})
	if fields, ok := validationErrors(err); ok {
		return h.renderPostForm(c, "Edit Post", form, post, fields)
	}
	if err != nil {
		return serviceError(err)
	}

	addFlash(c, levelSuccess, "Post updated successfully!")
	return c.Redirect(http.StatusFound, postURL(id))
}

func (h *Handler) PostDelete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if c.Request().Method == http.MethodGet {
		post, err := h.posts.GetPostForEdit(c.Request().Context(), id, currentUserID(c))
		if err != nil {
			return serviceError(err)
		}
		return h.render(c, http.StatusOK, "post_confirm_delete", "Delete Post", map[string]any{"Post": post})
	}

	err = h.posts.DeletePost(c.Request().Context(), &command.DeletePostCommand{
		PostId:  id,
		ActorId: currentUserID(c),
	})
	if err != nil {
		return serviceError(err)
	}

	addFlash(c, levelSuccess, "Post deleted successfully!")
	return c.Redirect(http.StatusFound, "/")
}

func (h *Handler) CategoryCreate(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return h.render(c, http.StatusOK, "category_form", "New Category", nil)
	}

	name := c.FormValue("name")
	description := c.FormValue("description")
	result, err := h.categories.CreateCategory(c.Request().Context(), &command.CreateCategoryCommand{
		Name:        name,
		Description: description,
	})
	if fields, ok := validationErrors(err); ok {
		return h.render(c, http.StatusOK, "category_form", "New Category", map[string]any{
			"Name":        name,
			"Description": description,
			"Errors":      fields,
		})
	}
	if err != nil {
		return err
	}

	addFlash(c, levelSuccess, fmt.Sprintf("Category %q created.", result.Result.Name))
	return c.Redirect(http.StatusFound, fmt.Sprintf("/posts/?category=%d", result.Result.Id))
}
