package repository

import (
	"context"
	"fmt"

	"intranet_chat/internal/notification/domain"
	"intranet_chat/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// TriggerPublisher 寫入觸發事件
type TriggerPublisher interface {
	Publish(ctx context.Context, ev domain.TriggerEvent) error
}

// TriggerConsumer 讀取觸發事件
type TriggerConsumer interface {
	// Consume 逐筆交給 handler，處理完才 commit
	Consume(ctx context.Context, handler func(context.Context, domain.TriggerEvent) error) error
	Close() error
}

type kafkaTriggerPublisher struct {
	writer *kafka.Writer
}

// NewKafkaTriggerPublisher create a TriggerPublisher
func NewKafkaTriggerPublisher(w *kafka.Writer) TriggerPublisher {
	return &kafkaTriggerPublisher{writer: w}
}

// EncodeTrigger msgpack 編碼
func EncodeTrigger(ev domain.TriggerEvent) ([]byte, error) {
	return msgpack.Marshal(ev)
}

// DecodeTrigger msgpack 解碼
func DecodeTrigger(data []byte) (domain.TriggerEvent, error) {
	var ev domain.TriggerEvent
	err := msgpack.Unmarshal(data, &ev)
	return ev, err
}

func (p *kafkaTriggerPublisher) Publish(ctx context.Context, ev domain.TriggerEvent) error {
	data, err := EncodeTrigger(ev)
	if err != nil {
		return fmt.Errorf("encode trigger %s: %w", ev.Kind, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.PartitionKey()),
		Value: data,
	})
}

type kafkaTriggerConsumer struct {
	reader *kafka.Reader
}

// NewKafkaTriggerConsumer create a TriggerConsumer
func NewKafkaTriggerConsumer(r *kafka.Reader) TriggerConsumer {
	return &kafkaTriggerConsumer{reader: r}
}

func (c *kafkaTriggerConsumer) Consume(ctx context.Context, handler func(context.Context, domain.TriggerEvent) error) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		ev, err := DecodeTrigger(m.Value)
		if err != nil {
			logger.Log.Warn("drop invalid trigger", zap.Int64("offset", m.Offset), zap.Error(err))
		} else if err := handler(ctx, ev); err != nil {
			logger.Log.Error("trigger failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit offset %d: %w", m.Offset, err)
		}
	}
}

func (c *kafkaTriggerConsumer) Close() error {
	return c.reader.Close()
}
