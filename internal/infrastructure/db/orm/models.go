package orm

import (
	"time"

	"github.com/google/uuid"
)

type UserModel struct {
	Id        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string `gorm:"size:150;uniqueIndex;not null"`
	Email     string `gorm:"size:254"`
	Password  string `gorm:"not null"`

	Profile  *ProfileModel  `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Posts    []PostModel    `gorm:"foreignKey:AuthorId;constraint:OnDelete:CASCADE"`
	Comments []CommentModel `gorm:"foreignKey:AuthorId;constraint:OnDelete:CASCADE"`
	Likes    []LikeModel    `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

func (UserModel) TableName() string {
	return "users"
}

type ProfileModel struct {
	Id          uint `gorm:"primaryKey"`
	UserId      uint `gorm:"uniqueIndex;not null"`
	DateOfBirth *time.Time
	ProfilePic  string `gorm:"size:255;not null"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

type CategoryModel struct {
	Id          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:200;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
}

func (CategoryModel) TableName() string {
	return "categories"
}

type PostModel struct {
	Id          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	Title       string `gorm:"size:200;not null"`
	Content     string `gorm:"type:text;not null"`
	AuthorId    uint   `gorm:"index;not null"`
	Author      *UserModel
	Categories  []CategoryModel `gorm:"many2many:post_categories;joinForeignKey:PostId;joinReferences:CategoryId;constraint:OnDelete:CASCADE"`
	IsPublished bool            `gorm:"not null;default:true"`
	CoverImage  string          `gorm:"size:255;not null"`

	Comments []CommentModel `gorm:"foreignKey:PostId;constraint:OnDelete:CASCADE"`
	Likes    []LikeModel    `gorm:"foreignKey:PostId;constraint:OnDelete:CASCADE"`

	// LikeCount is filled by aggregate queries only.
	LikeCount int `gorm:"->;-:migration"`
}

func (PostModel) TableName() string {
	return "posts"
}

type CommentModel struct {
	Id        uint `gorm:"primaryKey"`
	PostId    uint `gorm:"index;not null"`
	AuthorId  uint `gorm:"index;not null"`
	Author    *UserModel
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (CommentModel) TableName() string {
	return "comments"
}

type LikeModel struct {
	Id        uint `gorm:"primaryKey"`
	PostId    uint `gorm:"not null;uniqueIndex:idx_like_post_user"`
	UserId    uint `gorm:"not null;uniqueIndex:idx_like_post_user"`
	CreatedAt time.Time
}

func (LikeModel) TableName() string {
	return "likes"
}

type IdempotencyRecord struct {
	Id         uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Key        string    `gorm:"column:idempotency_key;size:64;uniqueIndex;not null"`
	Request    string    `gorm:"type:text"`
	Response   string    `gorm:"type:text"`
	StatusCode int
	CreatedAt  time.Time
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}
