package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/bingo-backend/internal/repository/storage"
)

const (
	containerTTL    = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "7-alpine"
)

// Suite is a throwaway redis for repository tests.
type Suite struct {
	*testing.T
	Logger *slog.Logger

	Addr    string
	Storage *redis.Client
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}

	// hard kill if the test binary dies before cleanup
	_ = resource.Expire(containerTTL)

	addr := resource.GetHostPort(redisPort)
	pool.MaxWait = maxWaitDuration

	var client *redis.Client
	if err = pool.Retry(func() error {
		var connErr error
		client, connErr = storage.New(ctx, addr)
		return connErr
	}); err != nil {
		if purgeErr := pool.Purge(resource); purgeErr != nil {
			t.Logf("could not purge redis container: %v", purgeErr)
		}

		t.Fatalf("could not connect to redis at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		if closeErr := client.Close(); closeErr != nil {
			t.Logf("could not close redis client: %v", closeErr)
		}

		if purgeErr := pool.Purge(resource); purgeErr != nil {
			t.Errorf("could not purge redis container: %v", purgeErr)
		}
	})

	return ctx, &Suite{
		T:       t,
		Logger:  logger,
		Addr:    addr,
		Storage: client,
	}
}
