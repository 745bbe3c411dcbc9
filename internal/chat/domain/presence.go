package domain

import "time"

// Presence member 上線狀態，last write wins
type Presence struct {
	UserID      string    `json:"user_id" validate:"required"`
	DisplayName string    `json:"display_name,omitempty"`
	Online      bool      `json:"online"`
	Away        bool      `json:"away"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stale 超過 ttl 沒有刷新視為離線，ttl <= 0 不過期
func (p Presence) Stale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(p.UpdatedAt) > ttl
}
