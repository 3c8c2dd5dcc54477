package entities

import (
	"strings"
	"time"
)

const (
	DefaultProfilePic = "default_pic.png"
	ProfilePicDir     = "profile_pics"
	DateOfBirthLayout = "2006-01-02"
)

type Profile struct {
	Id          uint
	UserId      uint
	DateOfBirth *time.Time
	ProfilePic  string
}

func NewProfile(userID uint) *Profile {
	return &Profile{UserId: userID, ProfilePic: DefaultProfilePic}
}

// SetDateOfBirth parses raw as YYYY-MM-DD. An empty value clears the date.
func (p *Profile) SetDateOfBirth(raw string) FieldErrors {
	errs := FieldErrors{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		p.DateOfBirth = nil
		return errs
	}
	dob, err := time.Parse(DateOfBirthLayout, raw)
	if err != nil {
		errs.Add("date_of_birth", "Enter a valid date.")
		return errs
	}
	if dob.After(time.Now()) {
		errs.Add("date_of_birth", "Date of birth cannot be in the future.")
		return errs
	}
	p.DateOfBirth = &dob
	return errs
}

func (p *Profile) HasCustomPic() bool {
	return p.ProfilePic != "" && p.ProfilePic != DefaultProfilePic
}

// UserProfile pairs an account with its profile for display.
type UserProfile struct {
	User    *User
	Profile *Profile
}
