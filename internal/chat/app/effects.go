package app

import (
	"errors"

	"intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"
)

// EffectSink 接收 session 推給前端的 UI effect
type EffectSink interface {
	Emit(effect domain.Action, payload map[string]interface{})
}

// EffectFunc 讓一般 func 實作 EffectSink
type EffectFunc func(effect domain.Action, payload map[string]interface{})

// Emit implements EffectSink
func (f EffectFunc) Emit(effect domain.Action, payload map[string]interface{}) {
	f(effect, payload)
}

// 用於 toast 的錯誤分類名稱
func errorKindName(err error) string {
	switch errprocess.KindOf(err) {
	case errprocess.ErrPermissionDenied:
		return "permission_denied"
	case errprocess.ErrTransient:
		return "transient"
	case errprocess.ErrValidation:
		return "validation"
	case errprocess.ErrReauthFailed:
		return "reauth_failed"
	case errprocess.ErrNotFound:
		return "not_found"
	}
	if errors.Is(err, domain.ErrPanelClosed) || errors.Is(err, domain.ErrNoActiveThread) || errors.Is(err, domain.ErrInvalidTransition) {
		return "window"
	}
	return "error"
}
