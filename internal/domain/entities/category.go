package entities

import (
	"strings"
	"unicode/utf8"
)

type Category struct {
	Id          uint
	Name        string
	Description string
}

func NewCategory(name, description string) *Category {
	return &Category{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
}

func (c *Category) Validate() FieldErrors {
	errs := FieldErrors{}
	switch {
	case c.Name == "":
		errs.Add("name", "This field is required.")
	case utf8.RuneCountInString(c.Name) > MaxCategoryNameLength:
		errs.Add("name", "Ensure this value has at most 200 characters.")
	}
	return errs
}
