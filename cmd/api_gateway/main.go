package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	_ "intranet_chat/cmd/api_gateway/docs" // 引入生成的 Swagger 文档
	"intranet_chat/internal/api/handlers"
	"intranet_chat/internal/api/router"
	memberapp "intranet_chat/internal/member/app"
	memberdomain "intranet_chat/internal/member/domain"
	memberrepo "intranet_chat/internal/member/repository"
	notifapp "intranet_chat/internal/notification/app"
	notifrepo "intranet_chat/internal/notification/repository"
	"intranet_chat/pkg/config"
	"intranet_chat/pkg/database"
	"intranet_chat/pkg/encrypt"
	"intranet_chat/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.APIGateway, config.EnvConfig.APIGatewayLogPath)
	cfg := config.LoadConfig[config.APIGateway](config.EnvConfig.APIGateway, config.EnvConfig.APIGatewayYAMLPath)
	ctx := context.Background()

	// 1. PostgreSQL (member)
	sqlParams := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pgConn := database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
	pool, err := database.NewDatabaseConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}
	defer pool.Close()
	if err := memberrepo.EnsureSchema(ctx, pool); err != nil {
		logger.Log.Fatal("ensure member schema", zap.Error(err))
	}

	// push subscription 使用 gorm
	gormDB, err := database.NewPGConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to open gorm connection", zap.Error(err))
	}
	subRepo, err := notifrepo.NewGormPushSubscriptionRepository(gormDB)
	if err != nil {
		logger.Log.Fatal("migrate push subscriptions", zap.Error(err))
	}

	// 2. Redis (member session)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	defer redisClient.Close()
	sessionRepo := database.NewRedisRepository[memberdomain.MemberSession](redisClient, "member_session")

	// 3. Mongo (notification inbox)
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
	defer mongo.Close(ctx)

	// 4. Kafka (trigger events)
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

	memberUC := memberapp.NewMemberUseCase(memberrepo.NewMemberRepository(pool), cfg.SessionTTL, sessionRepo, encrypt.HashPassword)
	notificationUC := notifapp.NewNotificationUseCase(notifrepo.NewMongoNotificationRepository(mongo.Database), subRepo)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.APIGatewayLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		memberapp.NewMemberHandler(memberUC),
		notifapp.NewNotificationHandler(notificationUC),
		handlers.NewFunctionHandler(notifrepo.NewKafkaTriggerPublisher(writer), memberUC),
	)

	if err := r.Listen(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
