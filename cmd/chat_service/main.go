package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"intranet_chat/internal/chat/app"
	"intranet_chat/internal/chat/domain"
	"intranet_chat/internal/chat/repository"
	"intranet_chat/internal/chat/router"
	memberapp "intranet_chat/internal/member/app"
	memberdomain "intranet_chat/internal/member/domain"
	memberrepo "intranet_chat/internal/member/repository"
	notifapp "intranet_chat/internal/notification/app"
	notifrepo "intranet_chat/internal/notification/repository"
	"intranet_chat/pkg/config"
	"intranet_chat/pkg/database"
	"intranet_chat/pkg/encrypt"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/metrics"
	testtool "intranet_chat/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	ctx := context.Background()
	testtool.StartPprof("")

	// 1. Mongo (訊息、聊天室摘要、通知匣)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. Redis (pub/sub、presence、viewing)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	defer redisClient.Close()

	// 3. PostgreSQL (刪除前重新驗證密碼、顯示名稱)
	sqlParams := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}
	defer pool.Close()

	// 4. MinIO (附件)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect minio", zap.String("host", cfg.MinIO.Host), zap.Error(err))
	}

	// 5. Kafka (通知 trigger)
	writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
	}
	defer writer.Close()

	// 6. gRPC health
	grpcServer, health, err := database.ServeHealth(cfg.GRPCPort, config.EnvConfig.ChatService)
	if err != nil {
		logger.Log.Fatal("grpc health", zap.Error(err))
	}
	defer grpcServer.GracefulStop()
	defer health.Shutdown()

	// 7. Repository & UseCase
	feed := repository.NewRedisPubSub(redisClient)
	quickRooms := domain.NewQuickRooms(cfg.Session.QuickRooms)
	// chat 只用到 Reauthenticate、FindMember 與成員名單，不管理 session
	members := memberapp.NewMemberUseCase(
		memberrepo.NewMemberRepository(pool),
		0,
		database.NewRedisRepository[memberdomain.MemberSession](redisClient, "member_session"),
		encrypt.HashPassword,
	)
	messageUC := app.NewMessageUseCase(
		repository.NewMongoMessageRepository(mongo.Database),
		repository.NewMongoConversationRepository(mongo.Database),
		feed,
		notifrepo.NewKafkaTriggerPublisher(writer),
		members,
		quickRooms,
	)
	notifications := notifapp.NewNotificationUseCase(notifrepo.NewMongoNotificationRepository(mongo.Database), nil)

	deps := app.SessionDeps{
		Chat:          messageUC,
		Feed:          feed,
		Presence:      repository.NewRedisPresenceRepository(redisClient, feed, cfg.Session.PresenceTTL),
		Viewing:       repository.NewRedisViewingRepository(redisClient, cfg.Session.ViewingTTL),
		Notifications: notifications,
		QuickRooms:    quickRooms,
		PageSize:      cfg.Session.PageSize,
		PresenceTTL:   cfg.Session.PresenceTTL,
		Heartbeat:     heartbeatInterval(cfg.Session.ViewingTTL, cfg.Session.PresenceTTL),
		Now:           time.Now,
	}

	// 8. Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))
	r.Use(metrics.FiberMiddleware())

	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(deps, members),
		app.NewAttachmentHandler(repository.NewMinIOAttachmentRepository(minioClient, cfg.Session.AttachmentURLTTL)),
	)

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

// heartbeatInterval 在較短的 ttl 內至少刷新三次
func heartbeatInterval(ttls ...time.Duration) time.Duration {
	var shortest time.Duration
	for _, ttl := range ttls {
		if ttl > 0 && (shortest == 0 || ttl < shortest) {
			shortest = ttl
		}
	}
	return shortest / 3
}
