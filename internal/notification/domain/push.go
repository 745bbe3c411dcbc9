package domain

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// PushQueue rabbitmq queue name
const PushQueue = "push"

// PushJob 推播工作
type PushJob struct {
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Route       string `json:"route"`
	Badge       int64  `json:"badge"`
}

// PushSubscription 瀏覽器 web push 訂閱
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	MemberID  string    `gorm:"index;not null" json:"member_id"`
	Endpoint  string    `gorm:"uniqueIndex;not null" json:"endpoint" validate:"required,url"`
	P256dh    string    `gorm:"not null" json:"p256dh" validate:"required"`
	Auth      string    `gorm:"not null" json:"auth" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// ToWebPush 轉為 webpush 訂閱
func (p PushSubscription) ToWebPush() *webpush.Subscription {
	return &webpush.Subscription{
		Endpoint: p.Endpoint,
		Keys: webpush.Keys{
			Auth:   p.Auth,
			P256dh: p.P256dh,
		},
	}
}
