// Package policy holds the ownership rules checked before any mutation.
package policy

import "blog-service/internal/domain/entities"

// CanModifyPost reports whether actor may update or delete post. Only the
// post's author may; an anonymous actor never may.
func CanModifyPost(actor *entities.User, post *entities.Post) bool {
	if actor == nil || post == nil || actor.Id == 0 {
		return false
	}
	return post.AuthorId == actor.Id
}

// CanManageProfile reports whether actor may view or edit profile.
func CanManageProfile(actor *entities.User, profile *entities.Profile) bool {
	if actor == nil || profile == nil || actor.Id == 0 {
		return false
	}
	return profile.UserId == actor.Id
}
