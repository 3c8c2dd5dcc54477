package entities

import "time"

// Like records that a user liked a post. A user likes a post at most once.
type Like struct {
	Id        uint
	PostId    uint
	UserId    uint
	CreatedAt time.Time
}

func NewLike(postID, userID uint) *Like {
	return &Like{PostId: postID, UserId: userID, CreatedAt: time.Now()}
}
