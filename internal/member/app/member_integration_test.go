//go:build integration

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"intranet_chat/internal/member/domain"
	"intranet_chat/internal/member/repository"
	"intranet_chat/pkg/database"
	"intranet_chat/pkg/encrypt"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	testtool "intranet_chat/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var memberUsecase MemberUseCase

func TestMain(m *testing.M) {
	logger.SetNewNop()
	ctx := context.Background()

	// **啟動 PostgreSQL**
	postgresContainer, postgresHost, postgresPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image: "postgres:16",
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start PostgreSQL container: %v", err)
	}

	// **啟動 Redis**
	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testtool.RedisRequest())
	if err != nil {
		log.Fatalf("❌ Failed to start Redis container: %v", err)
	}

	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", postgresHost, postgresPort),
		RetryCount:    5,
		RetryInterval: 2,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	if err := repository.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("❌ ensure schema: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: redisHost + ":" + redisPort})
	sessions := database.NewRedisRepository[domain.MemberSession](redisClient, "member_session")

	memberUsecase = NewMemberUseCase(repository.NewMemberRepository(pool), time.Hour, sessions, encrypt.HashPassword)

	code := m.Run()

	pool.Close()
	_ = redisClient.Close()
	_ = postgresContainer.Terminate(ctx)
	_ = redisContainer.Terminate(ctx)
	os.Exit(code)
}

func TestMemberLifecycle(t *testing.T) {
	ctx := context.Background()
	email := "integration@intranet.local"
	pw := "!Integration123"

	require.NoError(t, memberUsecase.Register(ctx, domain.RegisterRequest{Email: email, DisplayName: "Integration", Password: pw}))
	assert.ErrorIs(t, memberUsecase.Register(ctx, domain.RegisterRequest{Email: email, DisplayName: "Again", Password: pw}), ErrEmailExists)

	member, err := memberUsecase.FindMember(ctx, &domain.MemberQuery{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Integration", member.DisplayName)

	tok, err := memberUsecase.Login(ctx, email, pw, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	expired, err := memberUsecase.CheckSessionTimeout(ctx, tok)
	require.NoError(t, err)
	assert.False(t, expired)

	t.Run("reauthenticate", func(t *testing.T) {
		assert.NoError(t, memberUsecase.Reauthenticate(ctx, member.MemberID, pw))
		assert.ErrorIs(t, memberUsecase.Reauthenticate(ctx, member.MemberID, "wrong"), errprocess.ErrReauthFailed)
		assert.ErrorIs(t, memberUsecase.Reauthenticate(ctx, "nobody", pw), errprocess.ErrReauthFailed)
	})

	ids, err := memberUsecase.ListActiveMemberIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, member.MemberID)

	require.NoError(t, memberUsecase.Logout(ctx, tok))
	expired, err = memberUsecase.CheckSessionTimeout(ctx, tok)
	require.NoError(t, err)
	assert.True(t, expired)
}
