package domain

import "sync"

// Subscription 訂閱的取消 handle
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc 將 cancel func 包成只會執行一次的 Subscription
type SubscriptionFunc struct {
	once   sync.Once
	cancel func()
}

// NewSubscription create SubscriptionFunc
func NewSubscription(cancel func()) *SubscriptionFunc {
	return &SubscriptionFunc{cancel: cancel}
}

// Unsubscribe 重複呼叫為 no-op
func (s *SubscriptionFunc) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
