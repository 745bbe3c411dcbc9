package errprocess

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"intranet_chat/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// 錯誤分類
var (
	// ErrPermissionDenied 權限不足，該 scope 會被鎖定不再重試
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTransient 網路或暫時性錯誤，交給 driver 自行重連
	ErrTransient = errors.New("temporarily unavailable")
	// ErrValidation 本地驗證失敗，不會送出任何請求
	ErrValidation = errors.New("validation failed")
	// ErrReauthFailed 刪除前的密碼驗證失敗
	ErrReauthFailed = errors.New("re-authentication failed")
	// ErrNotFound 找不到資料
	ErrNotFound = errors.New("not found")
)

// mongo Unauthorized
const mongoUnauthorized = 13

// Error carries a kind sentinel plus the underlying cause.
type Error struct {
	Kind  error
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Cause)
}

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap 包裝錯誤並標記分類
func Wrap(kind error, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// Validation 建立驗證錯誤
func Validation(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Cause: errors.New(msg)}
}

// Classify 將 driver 錯誤轉成分類，已分類或無法判斷的原樣回傳
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, redis.Nil):
		return Wrap(ErrNotFound, op, err)
	case isMongoUnauthorized(err), isRedisNoPerm(err):
		return Wrap(ErrPermissionDenied, op, err)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return Wrap(ErrTransient, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(ErrTransient, op, err)
	}
	return err
}

// KindOf 回傳錯誤分類，未分類回傳 nil
func KindOf(err error) error {
	for _, kind := range []error{ErrPermissionDenied, ErrTransient, ErrValidation, ErrReauthFailed, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// HTTPStatus 依分類回傳 http status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrReauthFailed:
		return http.StatusUnauthorized
	case ErrPermissionDenied:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func isMongoUnauthorized(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == mongoUnauthorized
	}
	return false
}

// isRedisNoPerm ACL 拒絕或未登入的 redis 回覆
func isRedisNoPerm(err error) bool {
	var redisErr redis.Error
	if !errors.As(err, &redisErr) {
		return false
	}
	msg := redisErr.Error()
	return strings.HasPrefix(msg, "NOPERM") || strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS")
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
