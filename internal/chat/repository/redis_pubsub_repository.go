package repository

import (
	"context"
	"fmt"

	"intranet_chat/internal/chat/domain"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PresenceChannel 上線狀態廣播
const PresenceChannel = "chat:presence"

// UserChannel 每個 member 的跨聊天室訊息 channel
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// RoomChannel 單一聊天室的事件 channel
func RoomChannel(conversationID string) string {
	return "chat:room:" + conversationID
}

// EventFeed 以 envelope 格式收發 pub/sub 事件
type EventFeed interface {
	Publish(ctx context.Context, channel string, t domain.EventType, payload interface{}) error
	// Subscribe 收到的 payload 先經 DecodeEvent，解碼失敗只記 log 不會交給 handler
	Subscribe(ctx context.Context, channel string, handler func(domain.Event)) (domain.Subscription, error)
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 payload 包成 envelope 後發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, t domain.EventType, payload interface{}) error {
	data, err := domain.NewEnvelope(t, payload)
	if err != nil {
		return err
	}
	return errprocess.Classify("publish "+channel, r.client.Publish(ctx, channel, data).Err())
}

// Subscribe 訂閱 channel，回傳的 Subscription 只會關閉一次
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.Event)) (domain.Subscription, error) {
	sub := r.client.Subscribe(ctx, channel)
	// 等待訂閱確認，權限或連線錯誤在這裡回傳
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, errprocess.Classify("subscribe "+channel, err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				ev, err := domain.DecodeEvent([]byte(m.Payload))
				if err != nil {
					logger.Log.Warn("drop invalid event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-subCtx.Done():
				logger.Log.Debug(fmt.Sprintf("%s , sub close", channel))
				return
			}
		}
	}()

	return domain.NewSubscription(func() {
		cancel()
		if err := sub.Close(); err != nil {
			logger.Log.Warn("close subscription", zap.String("channel", channel), zap.Error(err))
		}
	}), nil
}
