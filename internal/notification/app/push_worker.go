package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/internal/notification/repository"
	"intranet_chat/pkg/config"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/metrics"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// PushSender 送出一筆 web push，回傳 http status
type PushSender interface {
	Send(ctx context.Context, sub domain.PushSubscription, payload []byte) (int, error)
}

type webPushSender struct {
	cfg config.WebPushConfig
}

// NewWebPushSender create PushSender with VAPID keys
func NewWebPushSender(cfg config.WebPushConfig) PushSender {
	if cfg.TTL <= 0 {
		cfg.TTL = 30
	}
	return &webPushSender{cfg: cfg}
}

func (s *webPushSender) Send(_ context.Context, sub domain.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotification(payload, sub.ToWebPush(), &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// PushWorker 消費 push queue 並送出 web push
type PushWorker struct {
	subs   repository.PushSubscriptionRepository
	sender PushSender
}

// NewPushWorker create PushWorker
func NewPushWorker(subs repository.PushSubscriptionRepository, sender PushSender) *PushWorker {
	return &PushWorker{subs: subs, sender: sender}
}

// Run 阻塞直到 ctx 結束
func (w *PushWorker) Run(ctx context.Context, queue repository.PushQueue) error {
	logger.Log.Info("push worker started")
	err := queue.Consume(ctx, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle 推播到收件者所有裝置，404/410 代表訂閱已失效，直接刪除
func (w *PushWorker) Handle(ctx context.Context, job domain.PushJob) error {
	subs, err := w.subs.ListByMember(ctx, job.RecipientID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		metrics.PushDelivered("no_subscription")
		return nil
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		status, err := w.sender.Send(ctx, sub, payload)
		switch {
		case err != nil:
			metrics.PushDelivered("error")
			logger.Log.Warn("web push failed", zap.String("recipient", job.RecipientID), zap.Error(err))
		case status == http.StatusNotFound || status == http.StatusGone:
			metrics.PushDelivered("gone")
			if err := w.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				logger.Log.Warn("delete gone subscription", zap.Error(err))
			}
		case status >= 400:
			metrics.PushDelivered("rejected")
			logger.Log.Warn("web push rejected", zap.String("recipient", job.RecipientID), zap.Int("status", status))
		default:
			metrics.PushDelivered("ok")
		}
	}
	return nil
}
