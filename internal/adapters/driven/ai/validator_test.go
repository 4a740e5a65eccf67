package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

func TestConfigValidator_UnconfiguredEmbeddingIsValid(t *testing.T) {
	v := NewConfigValidator()
	assert.NoError(t, v.ValidateEmbedding(context.Background(), &domain.EmbeddingSettings{}))
}

func TestConfigValidator_UnreachableInference(t *testing.T) {
	v := NewConfigValidator()
	settings := domain.DefaultInferenceSettings()
	settings.ServerURL = "http://127.0.0.1:1"
	settings.MaxRetries = 0

	err := v.ValidateInference(context.Background(), settings)
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
}
