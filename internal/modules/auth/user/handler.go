package user

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/middleware"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/pkg/response"
)

type userService interface {
	IsRegistered() (bool, error)
	GetByID(id string) (*models.UserModel, error)
	List() ([]models.UserModel, error)
	Login(username, password, ip, ua string) (string, *models.UserModel, error)
	Register(dto *RegisterDTO) (*models.UserModel, error)
	CreateStaff(dto *RegisterDTO) (*models.UserModel, error)
	UpdateProfile(id string, dto *UpdateUserDTO) (*models.UserModel, error)
	ChangePassword(id, currentSessionID, oldPwd, newPwd string) error
	Delete(id string) error
	ListSessions(userID string) ([]models.UserSession, error)
	RevokeSession(userID, sessionID string) error
	RevokeOtherSessions(userID, keepSessionID string) error
}

type Handler struct {
	svc userService
}

func NewHandler(svc userService) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/user")
	g.GET("/registered", h.registered)
	g.POST("/login", h.login)
	g.POST("/register", h.register)

	a := g.Group("", authMW)
	a.GET("", h.me)
	a.PATCH("", h.updateProfile)
	a.POST("/logout", h.logout)
	a.PATCH("/password", h.changePassword)
	a.GET("/session", h.listSessions)
	a.DELETE("/session/all", h.deleteOtherSessions)
	a.DELETE("/session/:sessionId", h.deleteSession)

	staff := a.Group("/staff", middleware.RequireRole(models.RoleOwner))
	staff.GET("", h.listStaff)
	staff.POST("", h.createStaff)
	staff.DELETE("/:id", h.deleteStaff)
}

func (h *Handler) registered(c *gin.Context) {
	ok, err := h.svc.IsRegistered()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"registered": ok})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrWrongPassword) {
			response.ForbiddenMsg(c, "invalid username or password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, User: toResponse(u)})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOwnerExists):
		response.Conflict(c, "the shop already has an owner")
	case errors.Is(err, ErrUsernameTaken):
		response.Conflict(c, "username already taken")
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) logout(c *gin.Context) {
	if sid := middleware.CurrentSessionID(c); sid != "" {
		if err := h.svc.RevokeSession(middleware.CurrentUserID(c), sid); err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.NoContent(c)
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.svc.ChangePassword(middleware.CurrentUserID(c), middleware.CurrentSessionID(c), dto.OldPassword, dto.NewPassword)
	switch {
	case err == nil:
		response.NoContent(c)
	case errors.Is(err, ErrWrongPassword):
		response.BadRequest(c, "current password is incorrect")
	case errors.Is(err, ErrPasswordSameAsOld):
		response.UnprocessableEntity(c, "new password must differ from the current one")
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) listSessions(c *gin.Context) {
	current := middleware.CurrentSessionID(c)
	sessions, err := h.svc.ListSessions(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	data := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, sessionResponse{
			ID: s.ID, IP: s.IP, UA: s.UA,
			Date:      s.UpdatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == current,
		})
	}
	response.OK(c, data)
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.svc.RevokeSession(middleware.CurrentUserID(c), c.Param("sessionId")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) deleteOtherSessions(c *gin.Context) {
	if err := h.svc.RevokeOtherSessions(middleware.CurrentUserID(c), middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listStaff(c *gin.Context) {
	users, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	data := make([]*userResponse, 0, len(users))
	for i := range users {
		data = append(data, toResponse(&users[i]))
	}
	response.OK(c, data)
}

func (h *Handler) createStaff(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.CreateStaff(&dto)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) deleteStaff(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"))
	switch {
	case err == nil:
		response.NoContent(c)
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrCannotDeleteOwner):
		response.ForbiddenMsg(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
