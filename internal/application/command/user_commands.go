package command

import "blog-service/internal/application/common"

type RegisterUserCommand struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"-"`
	Password2 string `json:"-"`
}

type RegisterUserCommandResult struct {
	Result *common.UserResult `json:"result"`
}

type LoginUserCommand struct {
	Username string `json:"username"`
	Password string `json:"-"`
	ClientIP string `json:"client_ip"`
}

type LoginUserCommandResult struct {
	Token string             `json:"token"`
	User  *common.UserResult `json:"user"`
	// ExpiresIn is the session lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}

type UpdateProfileCommand struct {
	UserId      uint
	Username    string
	Email       string
	DateOfBirth string
	ProfilePic  *common.Upload
}

type UpdateProfileCommandResult struct {
	Result *common.ProfileResult `json:"result"`
}

type RequestPasswordResetCommand struct {
	Email string `json:"email"`
}

type ConfirmPasswordResetCommand struct {
	UidB64       string
	Token        string
	NewPassword1 string
	NewPassword2 string
}
