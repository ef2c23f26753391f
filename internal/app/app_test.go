package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/config"
	"github.com/hupe1980/tagfind/graph"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, set map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	for k, val := range set {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger, err = NewLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	_, err = NewLogger(config.LogConfig{Level: "chatty"}, &buf)
	assert.Error(t, err)
}

func TestOpenBackend_Drivers(t *testing.T) {
	ctx := context.Background()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	tests := []struct {
		name string
		set  map[string]any
	}{
		{"memory", map[string]any{"backend.driver": "memory"}},
		{"badger", map[string]any{"backend.driver": "badger", "backend.badger.in_memory": true}},
		{"s3", map[string]any{"backend.driver": "s3", "backend.s3.bucket": "tags", "backend.s3.region": "us-east-1", "backend.s3.endpoint": "http://localhost:4566", "backend.s3.use_path_style": true}},
		{"minio", map[string]any{"backend.driver": "minio", "backend.minio.bucket": "tags"}},
		{"dynamodb", map[string]any{"backend.driver": "dynamodb", "backend.dynamodb.table": "vertices", "backend.dynamodb.region": "us-east-1"}},
		{"neo4j", map[string]any{"backend.driver": "neo4j", "backend.neo4j.database": "graph"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := OpenBackend(ctx, load(t, tt.set), nil)
			require.NoError(t, err)
			defer func() { assert.NoError(t, b.Close(ctx)) }()

			assert.Equal(t, tt.name, b.Driver)
			_, ok := b.Graph.(graph.Writer)
			assert.True(t, ok, "every driver accepts writes")
			_, ok = b.Graph.(graph.Universe)
			assert.True(t, ok, "every driver enumerates vertices")
		})
	}
}

func TestOpenBackend_Wrappers(t *testing.T) {
	ctx := context.Background()
	cfg := load(t, map[string]any{
		"backend.driver":           "badger",
		"backend.badger.in_memory": true,
		"limit.enabled":            true,
		"limit.max_in_flight":      2,
		"breaker.enabled":          true,
		"engine.empty_tags":        "match_all",
	})

	b, err := OpenBackend(ctx, cfg, tagfind.NoopLogger())
	require.NoError(t, err)
	defer b.Close(ctx)

	_, ok := b.Graph.(graph.WritableBackend)
	require.True(t, ok)

	metrics := &tagfind.BasicMetricsCollector{}
	store := tagfind.NewTagStore(b.Graph, EngineOptions(cfg.Engine, tagfind.NoopLogger(), metrics)...)
	require.NoError(t, store.Tag(ctx, "a", []tagfind.Tag{tagfind.MustTag("color", "red")}))
	require.NoError(t, store.Tag(ctx, "b", []tagfind.Tag{tagfind.MustTag("color", "blue")}))

	res, err := store.Find(ctx, []tagfind.Tag{tagfind.MustTag("color", "red")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Strings())

	all, err := store.Find(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, all.Strings())
	assert.Equal(t, int64(2), metrics.GetStats().FindCount)
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	cfg := load(t, nil)
	cfg.Backend.Driver = "cayley"
	_, err := OpenBackend(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown backend driver")
}

func TestEngineOptions(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackend(ctx, load(t, map[string]any{"breaker.enabled": true}), nil)
	require.NoError(t, err)

	_, err = tagfind.New(b.Graph, EngineOptions(config.EngineConfig{EmptyTags: config.EmptyTagsReject}, nil, nil)...).Find(ctx, nil)
	assert.ErrorIs(t, err, tagfind.ErrNoTags)

	res, err := tagfind.New(b.Graph, EngineOptions(config.EngineConfig{EmptyTags: config.EmptyTagsMatchAll}, nil, nil)...).Find(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
}
