package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/pkg/database"
	"intranet_chat/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PushQueue 推播工作佇列
type PushQueue interface {
	Enqueue(ctx context.Context, job domain.PushJob) error
	// Consume handler 回傳 nil 才 ack，否則 nack 不重送
	Consume(ctx context.Context, handler func(context.Context, domain.PushJob) error) error
}

type rabbitPushQueue struct {
	repo database.RabbitRepo
}

// NewRabbitPushQueue create a PushQueue
func NewRabbitPushQueue(repo database.RabbitRepo) (PushQueue, error) {
	if err := repo.DeclareQueue(domain.PushQueue); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", domain.PushQueue, err)
	}
	return &rabbitPushQueue{repo: repo}, nil
}

func (q *rabbitPushQueue) Enqueue(_ context.Context, job domain.PushJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.repo.Publish(domain.PushQueue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (q *rabbitPushQueue) Consume(ctx context.Context, handler func(context.Context, domain.PushJob) error) error {
	deliveries, err := q.repo.Consume(domain.PushQueue, "push-worker")
	if err != nil {
		return fmt.Errorf("consume %s: %w", domain.PushQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("queue %s closed", domain.PushQueue)
			}

			var job domain.PushJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.Log.Warn("drop invalid push job", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(ctx, job); err != nil {
				logger.Log.Error("push job failed", zap.String("recipient", job.RecipientID), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
