package orm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

type UserRepository struct {
	db         *gorm.DB
	avatarHook *ImageHook
}

func NewUserRepository(db *gorm.DB, avatarHook *ImageHook) *UserRepository {
	return &UserRepository{db: db, avatarHook: avatarHook}
}

var (
	_ repositories.UserRepository    = (*UserRepository)(nil)
	_ repositories.ProfileRepository = (*UserRepository)(nil)
)

func (r *UserRepository) CreateWithProfile(ctx context.Context, user *entities.ValidatedUser) (*entities.User, *entities.Profile, error) {
	userEntity := user.GetUser()

	// Hash password before saving
	if err := userEntity.HashPassword(); err != nil {
		return nil, nil, err
	}

	userModel := userToModel(userEntity)
	var profileModel ProfileModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userModel).Error; err != nil {
			return err
		}
		profileModel = profileToModel(entities.NewProfile(userModel.Id))
		return tx.Create(&profileModel).Error
	})
	if err != nil {
		return nil, nil, translate(err)
	}

	return userToEntity(&userModel), profileToEntity(&profileModel), nil
}

func (r *UserRepository) FindById(ctx context.Context, id uint) (*entities.User, error) {
	var userModel UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error; err != nil {
		return nil, translate(err)
	}
	return userToEntity(&userModel), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entities.User, error) {
	var userModel UserModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&userModel).Error; err != nil {
		return nil, translate(err)
	}
	return userToEntity(&userModel), nil
}

// FindByEmail matches case-insensitively; several accounts may share an address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) ([]*entities.User, error) {
	var models []UserModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	users := make([]*entities.User, 0, len(models))
	for i := range models {
		users = append(users, userToEntity(&models[i]))
	}
	return users, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *entities.User) error {
	res := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", user.Id).
		Updates(map[string]interface{}{"password": user.Password, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateAccount(ctx context.Context, user *entities.ValidatedUser, profile *entities.Profile) error {
	u := user.GetUser()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserModel{}).Where("id = ?", u.Id).Updates(map[string]interface{}{
			"username":   u.Username,
			"email":      u.Email,
			"updated_at": time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&ProfileModel{}).Where("user_id = ?", u.Id).Updates(map[string]interface{}{
			"date_of_birth": profile.DateOfBirth,
			"profile_pic":   profile.ProfilePic,
		}).Error
	})
	if err != nil {
		return translate(err)
	}

	if profile.HasCustomPic() {
		r.avatarHook.afterSave("profile", profile.ProfilePic)
	}
	return nil
}

// Delete removes the user and everything it owns.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownPosts := func() *gorm.DB {
			return tx.Model(&PostModel{}).Select("id").Where("author_id = ?", id)
		}
		steps := []func() error{
			func() error { return tx.Where("post_id IN (?)", ownPosts()).Delete(&LikeModel{}).Error },
			func() error { return tx.Where("post_id IN (?)", ownPosts()).Delete(&CommentModel{}).Error },
			func() error { return tx.Exec("DELETE FROM post_categories WHERE post_id IN (?)", ownPosts()).Error },
			func() error { return tx.Where("author_id = ?", id).Delete(&PostModel{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&LikeModel{}).Error },
			func() error { return tx.Where("author_id = ?", id).Delete(&CommentModel{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&ProfileModel{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		res := tx.Delete(&UserModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

func (r *UserRepository) FindByUserId(ctx context.Context, userID uint) (*entities.Profile, error) {
	var profileModel ProfileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profileModel).Error; err != nil {
		return nil, translate(err)
	}
	return profileToEntity(&profileModel), nil
}
