package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "9090")

	cfg, err := LoadAndValidateConfig((*config.Config).Validate)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)

	_, err = LoadAndValidateConfig(func(*config.Config) error { return errors.New("nope") })
	assert.EqualError(t, err, "nope")
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	res, err := OpenBackend(ctx, log.Discard(), &config.Config{DataBackend: "json", DataFile: filepath.Join(t.TempDir(), "data.json")})
	require.NoError(t, err)
	require.NoError(t, res.Ready(ctx))
	require.NoError(t, res.Close())

	_, err = OpenBackend(ctx, log.Discard(), &config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = OpenBackend(ctx, log.Discard(), &config.Config{DataBackend: "json"})
	assert.Error(t, err)
}

func TestSignalContextFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SignalContext(parent, log.Discard())
	defer stop()

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestSetupLoggerLevel(t *testing.T) {
	logger := SetupLogger("error")
	assert.False(t, logger.Enabled(context.Background(), -4))
	assert.True(t, logger.Enabled(context.Background(), 8))
}
