package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	Id        uint
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string
	Email     string
	Password  string
}

func NewUser(username, email, password string) *User {
	return &User{
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		Password:  password,
	}
}

func (u *User) validate() FieldErrors {
	errs := ValidateUsername(u.Username)
	errs.Merge(ValidateEmail(u.Email))
	return errs
}

func (u *User) HashPassword() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// SetPassword replaces the stored hash with the hash of password.
func (u *User) SetPassword(password string) error {
	u.Password = password
	u.UpdatedAt = time.Now()
	return u.HashPassword()
}

// PasswordFingerprint identifies the current password hash without exposing
// it. It changes whenever the password does.
func (u *User) PasswordFingerprint() string {
	sum := sha256.Sum256([]byte(u.Password))
	return hex.EncodeToString(sum[:8])
}

func (u *User) UpdateAccount(username, email string) FieldErrors {
	u.Username = strings.TrimSpace(username)
	u.Email = strings.TrimSpace(email)
	u.UpdatedAt = time.Now()
	return u.validate()
}
