// Package session persists the sessions behind issued JWTs so a user can
// list their devices and revoke tokens before they expire.
package session

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sublimart/studio/internal/models"
	jwtpkg "github.com/sublimart/studio/internal/pkg/jwt"
)

const DefaultTTL = 30 * 24 * time.Hour

// ErrInactive is returned for revoked, expired or unknown sessions.
var ErrInactive = errors.New("session expired or revoked")

// Manager issues and checks sessions.
type Manager struct {
	db     *gorm.DB
	signer *jwtpkg.Signer
	ttl    time.Duration
}

// NewManager returns a manager; ttl <= 0 uses DefaultTTL.
func NewManager(db *gorm.DB, signer *jwtpkg.Signer, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{db: db, signer: signer, ttl: ttl}
}

// Signer returns the token signer.
func (m *Manager) Signer() *jwtpkg.Signer { return m.signer }

// Issue creates a session row and signs a JWT bound to it.
func (m *Manager) Issue(u *models.UserModel, ip, ua string) (string, *models.UserSession, error) {
	s := &models.UserSession{
		UserID:    u.ID,
		IP:        strings.TrimSpace(ip),
		UA:        strings.TrimSpace(ua),
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.db.Create(s).Error; err != nil {
		return "", nil, err
	}

	token, err := m.signer.Sign(u.ID, s.ID, u.Role, m.ttl)
	if err != nil {
		_ = m.db.Delete(s).Error
		return "", nil, err
	}
	return token, s, nil
}

// Verify parses the token and checks its session is still active.
func (m *Manager) Verify(token string) (*jwtpkg.Claims, error) {
	claims, err := m.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	var count int64
	err = m.db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", claims.SessionID, claims.UserID, time.Now()).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrInactive
	}
	return claims, nil
}

// Touch bumps updated_at so session lists show the last use.
func (m *Manager) Touch(userID, sessionID string) {
	_ = m.db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Update("updated_at", time.Now()).Error
}

// ListActive returns the user's live sessions, most recently used first.
func (m *Manager) ListActive(userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := m.db.Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("updated_at DESC, created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// Revoke ends one session. Unknown sessions yield gorm.ErrRecordNotFound.
func (m *Manager) Revoke(userID, sessionID string) error {
	now := time.Now()
	res := m.db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("revoked_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RevokeAllExcept ends every session of the user but keepSessionID.
func (m *Manager) RevokeAllExcept(userID, keepSessionID string) error {
	now := time.Now()
	query := m.db.Model(&models.UserSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if keepSessionID != "" {
		query = query.Where("id <> ?", keepSessionID)
	}
	return query.Update("revoked_at", &now).Error
}

// PurgeExpired hard-deletes sessions that expired or were revoked before
// cutoff and returns how many rows went.
func (m *Manager) PurgeExpired(cutoff time.Time) (int64, error) {
	res := m.db.Unscoped().
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
		Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}
