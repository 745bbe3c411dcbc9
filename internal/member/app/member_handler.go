package app

import (
	"errors"
	"time"

	"intranet_chat/internal/member/domain"
	"intranet_chat/pkg/encrypt"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/middlewares"
	"intranet_chat/pkg/validate"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberHandler 會員 HTTP API
type MemberHandler struct {
	uc MemberUseCase
}

// NewMemberHandler create MemberHandler
func NewMemberHandler(uc MemberUseCase) *MemberHandler {
	return &MemberHandler{uc: uc}
}

// Register 註冊
// @Summary 註冊新會員
// @Tags Members
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "註冊資料"
// @Success 200 {object} map[string]interface{} "註冊成功"
// @Failure 400 {object} map[string]interface{} "格式錯誤"
// @Failure 409 {object} map[string]interface{} "email 已存在"
// @Router /member/register [post]
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req domain.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid request"})
	}

	if err := h.uc.Register(c.UserContext(), req); err != nil {
		status := errprocess.HTTPStatus(err)
		switch {
		case errors.Is(err, ErrEmailExists):
			status = fiber.StatusConflict
		case errors.Is(err, encrypt.ErrWeakPassword):
			status = fiber.StatusBadRequest
		}
		logger.Log.Warn("register failed", zap.String("email", req.Email), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "text": "register success"})
}

// Login 登入
// @Summary 會員登入
// @Tags Members
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "登入資料"
// @Success 200 {object} map[string]interface{} "token"
// @Failure 401 {object} map[string]interface{} "登入失敗"
// @Router /member/login [post]
func (h *MemberHandler) Login(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid request"})
	}
	if err := validate.Struct("login", req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	t, err := h.uc.Login(c.UserContext(), req.Email, req.Password, time.Now())
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "invalid email or password"})
	}
	return c.JSON(fiber.Map{"ok": true, "token": t})
}

// Logout 登出
// @Summary 會員登出
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "登出成功"
// @Router /member/logout [post]
func (h *MemberHandler) Logout(c *fiber.Ctx) error {
	if err := h.uc.ForceLogout(c.UserContext(), middlewares.MemberID(c)); err != nil {
		return c.Status(errprocess.HTTPStatus(err)).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "text": "logout success"})
}

// Me 目前登入的會員
// @Summary 取得自己的資料
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "會員資料"
// @Router /member/me [get]
func (h *MemberHandler) Me(c *fiber.Ctx) error {
	memberID := middlewares.MemberID(c)
	m, err := h.uc.FindMember(c.UserContext(), &domain.MemberQuery{MemberID: &memberID})
	if err != nil {
		return c.Status(errprocess.HTTPStatus(err)).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"ok":           true,
		"member_id":    m.MemberID,
		"email":        m.Email,
		"display_name": m.DisplayName,
	})
}

// CheckSession session 是否過期
// @Summary 檢查 session
// @Tags Members
// @Produce json
// @Param auth query string true "token"
// @Success 200 {object} map[string]interface{} "expired"
// @Router /member/session [get]
func (h *MemberHandler) CheckSession(c *fiber.Ctx) error {
	expired, err := h.uc.CheckSessionTimeout(c.UserContext(), c.Query(middlewares.QueryToken))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	if !expired {
		if err := h.uc.ReconnectSession(c.UserContext(), c.Query(middlewares.QueryToken)); err != nil {
			logger.Log.Warn("extend session", zap.Error(err))
		}
	}
	return c.JSON(fiber.Map{"ok": true, "expired": expired})
}
