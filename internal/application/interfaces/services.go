package interfaces

import (
	"context"

	"blog-service/internal/application/command"
	"blog-service/internal/application/common"
	"blog-service/internal/application/query"
)

type UserService interface {
	Register(ctx context.Context, registerCommand *command.RegisterUserCommand) (*command.RegisterUserCommandResult, error)
	Login(ctx context.Context, loginCommand *command.LoginUserCommand) (*command.LoginUserCommandResult, error)
	Logout(ctx context.Context, tokenID string) error
	Authenticate(ctx context.Context, token string) (*common.SessionResult, error)
	GetProfile(ctx context.Context, userID uint) (*query.ProfileQueryResult, error)
	UpdateProfile(ctx context.Context, updateCommand *command.UpdateProfileCommand) (*command.UpdateProfileCommandResult, error)
	RequestPasswordReset(ctx context.Context, resetCommand *command.RequestPasswordResetCommand) error
	CheckPasswordResetLink(ctx context.Context, uidb64, token string) error
	ConfirmPasswordReset(ctx context.Context, confirmCommand *command.ConfirmPasswordResetCommand) error
}

type PostService interface {
	Home(ctx context.Context) (*query.HomeQueryResult, error)
	ListPosts(ctx context.Context, listQuery *query.PostListQuery) (*query.PostListQueryResult, error)
	GetPost(ctx context.Context, postID, viewerID uint) (*query.PostDetailQueryResult, error)
	GetPostForEdit(ctx context.Context, postID, actorID uint) (*common.PostResult, error)
	CreatePost(ctx context.Context, createCommand *command.CreatePostCommand) (*command.CreatePostCommandResult, error)
	UpdatePost(ctx context.Context, updateCommand *command.UpdatePostCommand) (*command.UpdatePostCommandResult, error)
	DeletePost(ctx context.Context, deleteCommand *command.DeletePostCommand) error
	AddComment(ctx context.Context, commentCommand *command.AddCommentCommand) (*command.AddCommentCommandResult, error)
	LikePost(ctx context.Context, likeCommand *command.LikePostCommand) error
}

type CategoryService interface {
	ListCategories(ctx context.Context) (*query.CategoryQueryListResult, error)
	CreateCategory(ctx context.Context, createCommand *command.CreateCategoryCommand) (*command.CreateCategoryCommandResult, error)
}
