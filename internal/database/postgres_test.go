package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonlit/gallery/internal/config"
)

func TestPoolConfig(t *testing.T) {
	pc, err := poolConfig(config.PostgresConfig{
		DSN:             "postgres://u:p@localhost:5432/gallery?sslmode=disable",
		MaxOpen:         12,
		MaxIdle:         3,
		ConnMaxLifetime: 10 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, 10*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])

	pc, err = poolConfig(config.PostgresConfig{DSN: "postgres://u:p@localhost/gallery?application_name=custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", pc.ConnConfig.RuntimeParams["application_name"])

	_, err = poolConfig(config.PostgresConfig{})
	assert.Error(t, err)
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS photos")
	assert.Contains(t, schema, "UNIQUE (user_id, device_id)")
}
