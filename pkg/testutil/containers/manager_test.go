//go:build integration

package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOr(t *testing.T) {
	t.Setenv("IDSCORE_TEST_REDIS_IMAGE", "")
	assert.Equal(t, defaultRedisImage, envOr("IDSCORE_TEST_REDIS_IMAGE", defaultRedisImage))

	t.Setenv("IDSCORE_TEST_REDIS_IMAGE", "redis:7.4")
	assert.Equal(t, "redis:7.4", envOr("IDSCORE_TEST_REDIS_IMAGE", defaultRedisImage))
}
