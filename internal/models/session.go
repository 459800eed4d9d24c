package models

import "time"

// UserSession backs a signed JWT so tokens can be listed and revoked.
type UserSession struct {
	Base
	UserID    string     `json:"userId"    gorm:"index;not null"`
	IP        string     `json:"ip"`
	UA        string     `json:"ua"        gorm:"type:text"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revokedAt" gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }

// Active reports whether the session can still authenticate at now.
func (s *UserSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
