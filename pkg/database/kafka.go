package database

import (
	"context"
	"fmt"
	"time"

	"intranet_chat/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 先確認 broker 可連線並取得 topic partition，再建立 Writer
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	if err := waitKafka(k); err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(k.Brokers...),
		Topic:        k.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}, nil
}

// NewKafkaReaderWithRetry 建立 consumer group reader
func NewKafkaReaderWithRetry(k KafkaConnection) (*kafka.Reader, error) {
	if err := waitKafka(k); err != nil {
		return nil, err
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.Brokers,
		Topic:   k.Topic,
		GroupID: k.GroupID,
	}), nil
}

func waitKafka(k KafkaConnection) error {
	if len(k.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var err error
	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialContext(context.Background(), "tcp", k.Brokers[0])
		if err == nil {
			_, err = conn.ReadPartitions(k.Topic)
			conn.Close()
			if err == nil {
				logger.Log.Info("kafka ready", zap.String("topic", k.Topic), zap.Int("attempt", attempt))
				return nil
			}
		}

		logger.Log.Warn("kafka not ready", zap.String("topic", k.Topic), zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(k.RetryInterval * time.Second)
	}
	return fmt.Errorf("kafka[%s] not ready after %d attempts: %w", k.Topic, k.RetryCount, err)
}
