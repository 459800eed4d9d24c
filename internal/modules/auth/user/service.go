package user

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sublimart/studio/internal/models"
	sessionpkg "github.com/sublimart/studio/internal/pkg/session"
)

// loginFailDelay slows down username probing.
const loginFailDelay = 3 * time.Second

type Service struct {
	db        *gorm.DB
	sessions  *sessionpkg.Manager
	failDelay time.Duration
	logger    *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("UserService")
		}
	}
}

func NewService(db *gorm.DB, sessions *sessionpkg.Manager, opts ...ServiceOption) *Service {
	s := &Service{db: db, sessions: sessions, failDelay: loginFailDelay, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) IsRegistered() (bool, error) {
	var count int64
	err := s.db.Model(&models.UserModel{}).Where("role = ?", models.RoleOwner).Count(&count).Error
	return count > 0, err
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) List() ([]models.UserModel, error) {
	var users []models.UserModel
	err := s.db.Order("created_at ASC").Find(&users).Error
	return users, err
}

func (s *Service) Login(username, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(s.failDelay)
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		s.logger.Warn("login with wrong password", zap.String("username", u.Username), zap.String("ip", ip))
		return "", nil, ErrWrongPassword
	}
	now := time.Now()
	if err := s.db.Model(&u).Updates(map[string]any{
		"last_login_time": now,
		"last_login_ip":   ip,
	}).Error; err != nil {
		s.logger.Warn("record login time", zap.String("userId", u.ID), zap.Error(err))
	}
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, _, err := s.sessions.Issue(&u, ip, ua)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("user logged in", zap.String("userId", u.ID), zap.String("ip", ip))
	return token, &u, nil
}

// Register creates the owner account. It fails once an owner exists.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	registered, err := s.IsRegistered()
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrOwnerExists
	}
	return s.create(dto, models.RoleOwner)
}

// CreateStaff adds an employee account.
func (s *Service) CreateStaff(dto *RegisterDTO) (*models.UserModel, error) {
	return s.create(dto, models.RoleStaff)
}

func (s *Service) create(dto *RegisterDTO, role string) (*models.UserModel, error) {
	username := strings.TrimSpace(dto.Username)
	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = username
	}
	u := models.UserModel{
		Username: username,
		Name:     name,
		Mail:     strings.TrimSpace(dto.Mail),
		Role:     role,
		Password: string(hash),
	}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("userId", u.ID), zap.String("role", role))
	return &u, nil
}

func (s *Service) UpdateProfile(id string, dto *UpdateUserDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
		u.Name = *dto.Name
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
		u.Avatar = *dto.Avatar
	}
	if dto.Mail != nil {
		updates["mail"] = *dto.Mail
		u.Mail = *dto.Mail
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

// ChangePassword replaces the password and ends every other session.
func (s *Service) ChangePassword(id, currentSessionID, oldPwd, newPwd string) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPwd)); err != nil {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(newPwd)); err == nil {
		return ErrPasswordSameAsOld
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.Model(&u).Update("password", string(hash)).Error; err != nil {
		return err
	}
	return s.sessions.RevokeAllExcept(id, currentSessionID)
}

// Delete removes a staff account and its sessions.
func (s *Service) Delete(id string) error {
	u, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if u.IsOwner() {
		return ErrCannotDeleteOwner
	}
	if err := s.sessions.RevokeAllExcept(id, ""); err != nil {
		return err
	}
	return s.db.Delete(u).Error
}

func (s *Service) ListSessions(userID string) ([]models.UserSession, error) {
	return s.sessions.ListActive(userID)
}

func (s *Service) RevokeSession(userID, sessionID string) error {
	err := s.sessions.Revoke(userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (s *Service) RevokeOtherSessions(userID, keepSessionID string) error {
	return s.sessions.RevokeAllExcept(userID, keepSessionID)
}
