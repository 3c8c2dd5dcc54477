package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"blog-service/internal/application/command"
	"blog-service/internal/application/common"
	"blog-service/internal/application/interfaces"
	"blog-service/internal/application/mapper"
	"blog-service/internal/application/query"
	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
	"blog-service/internal/infrastructure"
)

const (
	profileCacheTTL      = 24 * time.Hour
	usernameTakenMessage = "A user with that username already exists."
)

type UserServiceConfig struct {
	// BaseURL prefixes links sent by email, e.g. "http://localhost:8080".
	BaseURL         string
	SessionLifetime time.Duration
}

type UserService struct {
	userRepo     repositories.UserRepository
	profileRepo  repositories.ProfileRepository
	redisService *infrastructure.RedisService
	jwtService   *infrastructure.JWTService
	mailer       PasswordResetMailer
	rateLimiter  *infrastructure.RateLimiter
	media        MediaStore
	cfg          UserServiceConfig
}

func NewUserService(
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	redisService *infrastructure.RedisService,
	jwtService *infrastructure.JWTService,
	mailer PasswordResetMailer,
	rateLimiter *infrastructure.RateLimiter,
	media MediaStore,
	cfg UserServiceConfig,
) interfaces.UserService {
	return &UserService{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		redisService: redisService,
		jwtService:   jwtService,
		mailer:       mailer,
		rateLimiter:  rateLimiter,
		media:        media,
		cfg:          cfg,
	}
}

// Register creates the account together with its profile.
func (s *UserService) Register(ctx context.Context, registerCommand *command.RegisterUserCommand) (*command.RegisterUserCommandResult, error) {
	fields := entities.ValidateNewPassword("password1", "password2", registerCommand.Password1, registerCommand.Password2)

	newUser := entities.NewUser(registerCommand.Username, registerCommand.Email, registerCommand.Password1)
	validatedUser, err := entities.NewValidatedUser(newUser)
	if err != nil {
		fe := fieldErrorsOf(err)
		if fe == nil {
			return nil, err
		}
		fields.Merge(fe)
	}

	if fields.Get("username") == "" {
		taken, err := s.usernameTaken(ctx, newUser.Username, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("username", usernameTakenMessage)
		}
	}
	if !fields.OK() {
		return nil, newValidationError(fields)
	}

	createdUser, _, err := s.userRepo.CreateWithProfile(ctx, validatedUser)
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, newValidationError(entities.FieldErrors{"username": {usernameTakenMessage}})
	}
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	log.Printf("Registered user %q (id=%d)", createdUser.Username, createdUser.Id)
	return &command.RegisterUserCommandResult{
		Result: mapper.NewUserResultFromEntity(createdUser),
	}, nil
}

func (s *UserService) Login(ctx context.Context, loginCommand *command.LoginUserCommand) (*command.LoginUserCommandResult, error) {
	limiterKey := "login:" + strings.ToLower(loginCommand.Username) + "|" + loginCommand.ClientIP
	if !s.rateLimiter.Allow(limiterKey) {
		return nil, ErrRateLimited
	}

	user, err := s.userRepo.FindByUsername(ctx, loginCommand.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, &InvalidCredentialsError{AttemptsLeft: s.rateLimiter.Remaining(limiterKey)}
	}
	if err != nil {
		return nil, err
	}

	if err := user.CheckPassword(loginCommand.Password); err != nil {
		return nil, &InvalidCredentialsError{AttemptsLeft: s.rateLimiter.Remaining(limiterKey)}
	}

	token, err := s.jwtService.GenerateToken(user.Id)
	if err != nil {
		return nil, err
	}

	// The registry entry is what logout revokes.
	if err := s.redisService.SetToken(ctx, token.ID, user.Id, time.Until(token.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("store session token: %w", err)
	}
	s.rateLimiter.Reset(limiterKey)

	return &command.LoginUserCommandResult{
		Token:     token.Token,
		User:      mapper.NewUserResultFromEntity(user),
		ExpiresIn: int(s.cfg.SessionLifetime.Seconds()),
	}, nil
}

func (s *UserService) Logout(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return s.redisService.RevokeToken(ctx, tokenID)
}

// Authenticate resolves a session token to its user. Every failure is
// reported as ErrUnauthenticated except repository errors.
func (s *UserService) Authenticate(ctx context.Context, token string) (*common.SessionResult, error) {
	userID, tokenID, err := s.jwtService.ParseToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	active, err := s.redisService.TokenActive(ctx, tokenID)
	if err != nil {
		log.Printf("Failed to check session token: %v", err)
		return nil, ErrUnauthenticated
	}
	if !active {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.FindById(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	return &common.SessionResult{
		User:    mapper.NewUserResultFromEntity(user),
		TokenId: tokenID,
	}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*query.ProfileQueryResult, error) {
	cached, err := s.redisService.GetProfile(ctx, userID)
	if err == nil && cached != nil && cached.User != nil && cached.Profile != nil {
		return &query.ProfileQueryResult{
			Result: mapper.NewProfileResult(cached.User, cached.Profile),
		}, nil
	}
	if err != nil && !errors.Is(err, infrastructure.ErrCacheMiss) {
		log.Printf("Failed to read cached profile: %v", err)
	}

	user, profile, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.redisService.SetProfile(ctx, userID, &entities.UserProfile{User: user, Profile: profile}, profileCacheTTL); err != nil {
		log.Printf("Failed to cache user profile: %v", err)
	}

	return &query.ProfileQueryResult{
		Result: mapper.NewProfileResult(user, profile),
	}, nil
}

// UpdateProfile validates the account and profile fields together and
// persists both only when every field passes.
func (s *UserService) UpdateProfile(ctx context.Context, updateCommand *command.UpdateProfileCommand) (*command.UpdateProfileCommandResult, error) {
	user, profile, err := s.loadAccount(ctx, updateCommand.UserId)
	if err != nil {
		return nil, err
	}

	fields := user.UpdateAccount(updateCommand.Username, updateCommand.Email)
	if fields.Get("username") == "" {
		taken, err := s.usernameTaken(ctx, user.Username, user.Id)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("username", usernameTakenMessage)
		}
	}
	fields.Merge(profile.SetDateOfBirth(updateCommand.DateOfBirth))

	upload := updateCommand.ProfilePic
	if upload != nil {
		fields.Merge(entities.ValidateImageUpload("profile_pic", upload.Filename, upload.ContentType))
	}
	if !fields.OK() {
		return nil, newValidationError(fields)
	}

	validatedUser, err := entities.NewValidatedUser(user)
	if err != nil {
		return nil, err
	}

	previousPic := profile.ProfilePic
	if upload != nil {
		stored, err := s.media.Save(entities.ProfilePicDir, upload.Filename, upload.Content)
		if err != nil {
			return nil, fmt.Errorf("store profile picture: %w", err)
		}
		profile.ProfilePic = stored
	}

	if err := s.userRepo.UpdateAccount(ctx, validatedUser, profile); err != nil {
		if upload != nil {
			s.media.Remove(profile.ProfilePic)
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newValidationError(entities.FieldErrors{"username": {usernameTakenMessage}})
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if upload != nil && previousPic != entities.DefaultProfilePic {
		s.media.Remove(previousPic)
	}
	if err := s.redisService.DeleteProfile(ctx, user.Id); err != nil {
		log.Printf("Failed to drop cached profile: %v", err)
	}

	return &command.UpdateProfileCommandResult{
		Result: mapper.NewProfileResult(user, profile),
	}, nil
}

// RequestPasswordReset mails a reset link to every account registered under
// the address. It succeeds whether or not such an account exists.
func (s *UserService) RequestPasswordReset(ctx context.Context, resetCommand *command.RequestPasswordResetCommand) error {
	email := strings.TrimSpace(resetCommand.Email)
	if email == "" {
		return newValidationError(entities.FieldErrors{"email": {"This field is required."}})
	}
	if fields := entities.ValidateEmail(email); !fields.OK() {
		return newValidationError(fields)
	}

	if !s.rateLimiter.Allow("reset:" + strings.ToLower(email)) {
		return ErrRateLimited
	}

	users, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	for _, user := range users {
		token, err := s.jwtService.GenerateResetToken(user.Id, user.PasswordFingerprint())
		if err != nil {
			return err
		}
		link := fmt.Sprintf("%s/accounts/password-reset-confirm/%s/%s/",
			strings.TrimRight(s.cfg.BaseURL, "/"), encodeUID(user.Id), token)
		if err := s.mailer.SendPasswordReset(ctx, email, user.Username, link); err != nil {
			log.Printf("Failed to send password reset email to user %d: %v", user.Id, err)
		}
	}
	return nil
}

func (s *UserService) CheckPasswordResetLink(ctx context.Context, uidb64, token string) error {
	_, err := s.resetLinkUser(ctx, uidb64, token)
	return err
}

func (s *UserService) ConfirmPasswordReset(ctx context.Context, confirmCommand *command.ConfirmPasswordResetCommand) error {
	user, err := s.resetLinkUser(ctx, confirmCommand.UidB64, confirmCommand.Token)
	if err != nil {
		return err
	}

	fields := entities.ValidateNewPassword("new_password1", "new_password2",
		confirmCommand.NewPassword1, confirmCommand.NewPassword2)
	if !fields.OK() {
		return newValidationError(fields)
	}

	if err := user.SetPassword(confirmCommand.NewPassword1); err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	log.Printf("Password reset for user %d", user.Id)
	return nil
}

// resetLinkUser returns the user a reset link was issued for, provided the
// link is signed, unexpired and the password has not changed since.
func (s *UserService) resetLinkUser(ctx context.Context, uidb64, token string) (*entities.User, error) {
	uid, err := decodeUID(uidb64)
	if err != nil {
		return nil, ErrInvalidResetLink
	}
	tokenUID, fingerprint, err := s.jwtService.ParseResetToken(token)
	if err != nil || tokenUID != uid {
		return nil, ErrInvalidResetLink
	}

	user, err := s.userRepo.FindById(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidResetLink
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordFingerprint() != fingerprint {
		return nil, ErrInvalidResetLink
	}
	return user, nil
}

func (s *UserService) loadAccount(ctx context.Context, userID uint) (*entities.User, *entities.Profile, error) {
	user, err := s.userRepo.FindById(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.profileRepo.FindByUserId(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

// usernameTaken reports whether another account than exceptID uses username.
func (s *UserService) usernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.Id != exceptID, nil
}

func encodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func decodeUID(uidb64 string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
