package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")
}

func TestDetectProviderExplicit(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, "OpenAI")
	t.Setenv(EnvJinaAPIKey, "jina-key")

	// Explicit selection beats key detection.
	assert.Equal(t, ProviderOpenAI, DetectProvider())
}

func TestDetectProviderFromKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvJinaAPIKey, "jina-key")
	assert.Equal(t, ProviderJina, DetectProvider())

	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "openai-key")
	assert.Equal(t, ProviderOpenAI, DetectProvider())
}

func TestDetectProviderDefaultsToLocal(t *testing.T) {
	clearProviderEnv(t)
	assert.Equal(t, ProviderLocal, DetectProvider())
}

func TestNewLocal(t *testing.T) {
	p, err := New(Config{Provider: "local", Dimension: 32})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, 32, p.Dimension())
}

func TestNewJinaFromConfig(t *testing.T) {
	clearProviderEnv(t)

	p, err := New(Config{Provider: "jina", APIKey: "config-key"})
	require.NoError(t, err)
	assert.Equal(t, ProviderJina, p.Provider())
	assert.Equal(t, DefaultJinaModel, p.Model())
	assert.Equal(t, JinaDimension, p.Dimension())
}

func TestNewJinaMissingKey(t *testing.T) {
	clearProviderEnv(t)

	_, err := New(Config{Provider: "jina"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestNewFromEnvLocal(t *testing.T) {
	clearProviderEnv(t)

	p, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Provider())
}
