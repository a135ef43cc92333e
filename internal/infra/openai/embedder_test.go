package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewEmbedderDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}

func TestBatchEmbedRejectsInvalidInput(t *testing.T) {
	embedder := NewEmbedder("dummy-key")
	ctx := context.Background()

	_, err := embedder.BatchEmbed(ctx, nil)
	assert.True(t, fault.IsValidation(err))

	oversized := make([]string, maxBatchSize+1)
	_, err = embedder.BatchEmbed(ctx, oversized)
	assert.True(t, fault.IsValidation(err))
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}
