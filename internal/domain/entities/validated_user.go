package entities

import "fmt"

// InvalidError carries the field errors that stopped an entity from being
// validated.
type InvalidError struct {
	Fields FieldErrors
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid entity: %d field(s) failed validation", len(e.Fields))
}

type ValidatedUser struct {
	*User
}

func NewValidatedUser(user *User) (*ValidatedUser, error) {
	if errs := user.validate(); !errs.OK() {
		return nil, &InvalidError{Fields: errs}
	}

	return &ValidatedUser{User: user}, nil
}

func (vu *ValidatedUser) GetUser() *User {
	return vu.User
}
