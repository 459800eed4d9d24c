package models

import "time"

// Role values of UserModel.Role.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// UserModel is a staff account of the shop: the owner created at
// registration, then employees created by an authenticated user.
type UserModel struct {
	Base
	Username      string     `json:"username"      gorm:"size:64;uniqueIndex;not null"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Mail          string     `json:"mail"`
	Role          string     `json:"role"          gorm:"size:16;not null;default:staff"`
	Password      string     `json:"-"             gorm:"not null"`
	LastLoginTime *time.Time `json:"lastLoginTime"`
	LastLoginIP   string     `json:"lastLoginIp"`
}

func (UserModel) TableName() string { return "users" }

// IsOwner reports whether u holds the owner role.
func (u *UserModel) IsOwner() bool { return u != nil && u.Role == RoleOwner }
