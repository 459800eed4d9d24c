package user

import (
	"errors"
	"time"

	"github.com/sublimart/studio/internal/models"
)

type UpdateUserDTO struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Mail   *string `json:"mail"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Mail     string `json:"mail"`
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Mail          string     `json:"mail"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLoginTime *time.Time `json:"lastLoginTime"`
	LastLoginIP   string     `json:"lastLoginIp"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UA        string    `json:"ua"`
	Date      time.Time `json:"date"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

func toResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID: u.ID, Username: u.Username, Name: u.Name, Avatar: u.Avatar, Mail: u.Mail,
		Role: u.Role, CreatedAt: u.CreatedAt,
		LastLoginTime: u.LastLoginTime, LastLoginIP: u.LastLoginIP,
	}
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongPassword     = errors.New("wrong password")
	ErrOwnerExists       = errors.New("owner already registered")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrPasswordSameAsOld = errors.New("password same as old")
	ErrCannotDeleteOwner = errors.New("the owner account cannot be deleted")
)
