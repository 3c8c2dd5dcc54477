package orm

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueErr(err):
		return repositories.ErrDuplicate
	}
	return err
}

// isUniqueErr catches unique violations a driver did not translate.
func isUniqueErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func userToEntity(m *UserModel) *entities.User {
	if m == nil {
		return nil
	}
	return &entities.User{
		Id:        m.Id,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Username:  m.Username,
		Email:     m.Email,
		Password:  m.Password,
	}
}

func userToModel(u *entities.User) UserModel {
	return UserModel{
		Id:        u.Id,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
	}
}

func profileToEntity(m *ProfileModel) *entities.Profile {
	return &entities.Profile{
		Id:          m.Id,
		UserId:      m.UserId,
		DateOfBirth: m.DateOfBirth,
		ProfilePic:  m.ProfilePic,
	}
}

func profileToModel(p *entities.Profile) ProfileModel {
	return ProfileModel{
		Id:          p.Id,
		UserId:      p.UserId,
		DateOfBirth: p.DateOfBirth,
		ProfilePic:  p.ProfilePic,
	}
}

func categoryToEntity(m *CategoryModel) *entities.Category {
	return &entities.Category{Id: m.Id, Name: m.Name, Description: m.Description}
}

func postToEntity(m *PostModel) *entities.Post {
	post := &entities.Post{
		Id:          m.Id,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Title:       m.Title,
		Content:     m.Content,
		AuthorId:    m.AuthorId,
		Author:      userToEntity(m.Author),
		IsPublished: m.IsPublished,
		CoverImage:  m.CoverImage,
		LikeCount:   m.LikeCount,
	}
	for i := range m.Categories {
		post.Categories = append(post.Categories, *categoryToEntity(&m.Categories[i]))
	}
	return post
}

func postToModel(p *entities.Post) PostModel {
	return PostModel{
		Id:          p.Id,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Title:       p.Title,
		Content:     p.Content,
		AuthorId:    p.AuthorId,
		IsPublished: p.IsPublished,
		CoverImage:  p.CoverImage,
	}
}

func commentToEntity(m *CommentModel) *entities.Comment {
	return &entities.Comment{
		Id:        m.Id,
		PostId:    m.PostId,
		AuthorId:  m.AuthorId,
		Author:    userToEntity(m.Author),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
