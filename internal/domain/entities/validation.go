package entities

import (
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldErrors maps a form field name to its validation messages. The empty
// key "" holds errors that are not tied to a single field.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// OK reports whether no errors were recorded.
func (fe FieldErrors) OK() bool {
	return len(fe) == 0
}

// Get returns the first message for field, or "".
func (fe FieldErrors) Get(field string) string {
	if msgs := fe[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Merge copies every message of other into fe.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		for _, m := range msgs {
			fe.Add(field, m)
		}
	}
}

const (
	MaxTitleLength        = 200
	MaxCategoryNameLength = 200
	MaxUsernameLength     = 150
	MinPasswordLength     = 8
)

var (
	allowedImageTypes      = map[string]bool{"image/jpeg": true, "image/png": true}
	allowedImageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	usernamePattern        = regexp.MustCompile(`^[\w.@+-]+$`)
	numericPattern         = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateImageUpload checks an uploaded image's declared content type and its
// filename extension. Both checks run so both messages can be reported.
func ValidateImageUpload(field, filename, contentType string) FieldErrors {
	errs := FieldErrors{}
	if !allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		errs.Add(field, "Only JPEG and PNG images are allowed.")
	}
	if !allowedImageExtensions[strings.ToLower(filepath.Ext(filename))] {
		errs.Add(field, "Invalid file type. Only JPEG and PNG files are allowed.")
	}
	return errs
}

// ValidateUsername enforces the account username rules.
func ValidateUsername(username string) FieldErrors {
	errs := FieldErrors{}
	switch {
	case username == "":
		errs.Add("username", "This field is required.")
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		errs.Add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	return errs
}

// ValidateEmail accepts an empty address; a non-empty one must parse.
func ValidateEmail(email string) FieldErrors {
	errs := FieldErrors{}
	if email == "" {
		return errs
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.Add("email", "Enter a valid email address.")
	}
	return errs
}

// ValidateNewPassword checks a password pair entered on a form. field1 and
// field2 name the two inputs so the helper serves registration and reset.
func ValidateNewPassword(field1, field2, password, confirmation string) FieldErrors {
	errs := FieldErrors{}
	if password == "" {
		errs.Add(field1, "This field is required.")
		return errs
	}
	if password != confirmation {
		errs.Add(field2, "The two password fields didn't match.")
		return errs
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs.Add(field2, "This password is too short. It must contain at least 8 characters.")
	}
	if numericPattern.MatchString(password) {
		errs.Add(field2, "This password is entirely numeric.")
	}
	return errs
}
