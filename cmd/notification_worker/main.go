package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	notifapp "intranet_chat/internal/notification/app"
	notifrepo "intranet_chat/internal/notification/repository"
	"intranet_chat/pkg/config"
	"intranet_chat/pkg/database"
	"intranet_chat/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.NotificationWorker, config.EnvConfig.NotificationWorkerLogPath)
	cfg := config.LoadConfig[config.NotificationWorker](config.EnvConfig.NotificationWorker, config.EnvConfig.NotificationWorkerYAMLPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Mongo (通知匣)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries", zap.String("host", cfg.MongoSQL.Host), zap.Error(err))
	}
	defer mongo.Close(context.Background())

	// 2. Redis (按讚冷卻、viewing)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	defer redisClient.Close()

	// 3. PostgreSQL (push subscription)
	sqlParams := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	gormDB, err := database.NewPGConnection(database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}
	subRepo, err := notifrepo.NewGormPushSubscriptionRepository(gormDB)
	if err != nil {
		logger.Log.Fatal("migrate push subscriptions", zap.Error(err))
	}

	// 4. RabbitMQ (push job)
	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect rabbitmq", zap.Error(err))
	}
	defer conn.Close()
	ch, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		logger.Log.Fatal("open rabbitmq channel", zap.Error(err))
	}
	defer ch.Close()
	queue, err := notifrepo.NewRabbitPushQueue(database.NewRabbitRepository(ch))
	if err != nil {
		logger.Log.Fatal("declare push queue", zap.Error(err))
	}

	// 5. Kafka (trigger consumer)
	reader, err := database.NewKafkaReaderWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		GroupID:       cfg.Kafka.GroupID,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
	}
	consumer := notifrepo.NewKafkaTriggerConsumer(reader)
	defer consumer.Close()

	bridge := notifapp.NewBridge(
		notifrepo.NewMongoNotificationRepository(mongo.Database),
		notifrepo.NewRedisViewingChecker(redisClient),
		queue,
	)
	likes := notifapp.NewLikeUseCase(bridge, notifrepo.NewRedisCooldownRepository(redisClient), cfg.LikeCooldown)
	triggerWorker := notifapp.NewTriggerWorker(bridge, likes)
	pushWorker := notifapp.NewPushWorker(subRepo, notifapp.NewWebPushSender(cfg.WebPush))

	errCh := make(chan error, 2)
	go func() { errCh <- triggerWorker.Run(ctx, consumer) }()
	go func() { errCh <- pushWorker.Run(ctx, queue) }()
	logger.Log.Info("notification worker started", zap.String("topic", cfg.Kafka.Topic))

	select {
	case <-ctx.Done():
		logger.Log.Info("notification worker stopping")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logger.Log.Fatal("worker stopped", zap.Error(err))
		}
	}
}
