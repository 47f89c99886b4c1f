package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storyarc/internal/config"
	"github.com/jwebster45206/storyarc/pkg/story"
)

func testConfig(t *testing.T, redisURL string) *config.Config {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("REDIS_URL", redisURL)
	t.Setenv("THEMES_DIR", t.TempDir())
	cfg, err := config.Parse()
	require.NoError(t, err)
	return cfg
}

func TestBuild_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, "redis://"+mr.Addr())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := Build(context.Background(), cfg, log, true)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Queue)
	assert.NotNil(t, a.Broadcaster)
	assert.NotNil(t, a.Redis())

	st, node, err := a.Orchestrator.StartStory(context.Background(), story.CreationParams{CharacterName: "Ana", Setting: "academy"})
	require.NoError(t, err)
	assert.Equal(t, node.ID, st.CurrentNodeID)
}

func TestBuild_WithoutRedis(t *testing.T) {
	cfg := testConfig(t, "redis://127.0.0.1:1")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := Build(context.Background(), cfg, log, false)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Queue)
	assert.Nil(t, a.Broadcaster)
	assert.Nil(t, a.Redis())

	_, err = Build(context.Background(), cfg, log, true)
	assert.Error(t, err)
}
