package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/config"
)

func TestNewRedis_DisabledWithoutAddr(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.Nil(t, r.Client)
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}
