package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intranet_chat/internal/member/domain"
	"intranet_chat/internal/member/repository"
	"intranet_chat/pkg/database"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	token "intranet_chat/pkg/token"
	"intranet_chat/pkg/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 會員錯誤
var (
	ErrEmailExists  = errors.New("email already exists")
	ErrMemberLocked = errors.New("member is banned or deleted")
)

// MemberUseCase 這裡封裝了對外提供的應用服務
type MemberUseCase interface {
	Register(ctx context.Context, req domain.RegisterRequest) error
	FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error)
	Login(ctx context.Context, email, password string, now time.Time) (string, error)
	Logout(ctx context.Context, token string) error
	ForceLogout(ctx context.Context, memberID string) error
	CheckSessionTimeout(ctx context.Context, token string) (bool, error)
	ReconnectSession(ctx context.Context, token string) error
	// Reauthenticate 刪除等破壞性操作前重新驗證密碼
	Reauthenticate(ctx context.Context, memberID, password string) error
	ListActiveMemberIDs(ctx context.Context) ([]string, error)
}

type memberUseCase struct {
	memberRepo   repository.MemberRepository
	sessionTTL   time.Duration
	redisRepo    database.RedisRepository[domain.MemberSession]
	hashPassword func(string) (string, error)
}

// NewMemberUseCase 建立一個新的 MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.MemberSession],
	hashPassword func(string) (string, error),
) MemberUseCase {
	return &memberUseCase{
		memberRepo:   memberRepo,
		sessionTTL:   sessionTTL,
		redisRepo:    redisRepo,
		hashPassword: hashPassword,
	}
}

// Register
func (m *memberUseCase) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := validate.Struct("register", req); err != nil {
		return err
	}

	// 檢查 email 是否已存在
	if _, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &req.Email}); err == nil {
		return ErrEmailExists
	}

	pw, err := m.hashPassword(req.Password)
	if err != nil {
		return err
	}

	user := domain.Member{
		MemberID:    uuid.New().String(),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    pw,
	}
	logger.Log.Info("usecase Register", zap.String("member_id", user.MemberID), zap.String("email", user.Email))

	return m.memberRepo.CreateUser(ctx, &user)
}

// FindMember 尋找使用者
func (m *memberUseCase) FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error) {
	return m.memberRepo.FindByMember(ctx, param)
}

// Login 驗證密碼後簽發 JWT 並建立 redis session
func (m *memberUseCase) Login(ctx context.Context, email, password string, now time.Time) (string, error) {
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err != nil {
		logger.Log.Error("login member not found", zap.String("email", email), zap.Error(err))
		return "", err
	}
	if !member.IsActive() {
		return "", ErrMemberLocked
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Warn("login password mismatch", zap.String("member_id", member.MemberID))
		return "", err
	}

	member.Status = domain.MemberStatusOnLine

	t, err := token.GenerateJWTWrapper(member.MemberID, string(token.RoleMember))
	if err != nil {
		return "", err
	}

	session := domain.MemberSession{
		Token:        t,
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}
	if err := m.redisRepo.Set(ctx, member.MemberID, session, m.sessionTTL); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	if err := m.memberRepo.UpdateMemberStatus(ctx, member); err != nil {
		return "", err
	}

	return t, nil
}

// Logout
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Error("Logout err", zap.Error(err))
		return err
	}
	return m.ForceLogout(ctx, tokenInfo.MemberID)
}

// ForceLogout 直接把該 memberID 的 session 清除
func (m *memberUseCase) ForceLogout(ctx context.Context, memberID string) error {
	if err := m.redisRepo.Del(ctx, memberID); err != nil {
		logger.Log.Warn("delete session", zap.String("member_id", memberID), zap.Error(err))
	}

	return m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: memberID,
		Status:   domain.MemberStatusOffLine,
	})
}

// CheckSessionTimeout 回傳 true 代表已過期
func (m *memberUseCase) CheckSessionTimeout(ctx context.Context, t string) (bool, error) {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		return true, err
	}

	ttl, err := m.redisRepo.GetTTL(ctx, tokenInfo.MemberID)
	if err != nil {
		return true, err
	}
	return ttl <= 0, nil
}

// ReconnectSession 斷線重連，延長 session
func (m *memberUseCase) ReconnectSession(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		return err
	}
	logger.Log.Debug("ReconnectSession", zap.String("member_id", tokenInfo.MemberID))

	return m.redisRepo.ExtendTTL(ctx, tokenInfo.MemberID, m.sessionTTL)
}

// Reauthenticate 密碼錯誤或帳號不存在一律回傳 ErrReauthFailed
func (m *memberUseCase) Reauthenticate(ctx context.Context, memberID, password string) error {
	if password == "" {
		return errprocess.Wrap(errprocess.ErrReauthFailed, "reauthenticate", errors.New("password is required"))
	}

	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{MemberID: &memberID})
	if err != nil {
		if errors.Is(err, errprocess.ErrNotFound) {
			return errprocess.Wrap(errprocess.ErrReauthFailed, "reauthenticate", err)
		}
		return errprocess.Classify("reauthenticate", err)
	}

	if err := member.IsPasswordMatch(password); err != nil {
		return errprocess.Wrap(errprocess.ErrReauthFailed, "reauthenticate", err)
	}
	return nil
}

// ListActiveMemberIDs 論壇通知與快速聊天室的收件者
func (m *memberUseCase) ListActiveMemberIDs(ctx context.Context) ([]string, error) {
	return m.memberRepo.ListActiveMemberIDs(ctx)
}
