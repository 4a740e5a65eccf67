package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedFileType", ErrUnsupportedFileType},
		{"ErrExtraction", ErrExtraction},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrEmbedding", ErrEmbedding},
		{"ErrToolExecution", ErrToolExecution},
		{"ErrUnknownTool", ErrUnknownTool},
		{"ErrStorage", ErrStorage},
		{"ErrInferenceUnavailable", ErrInferenceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestUnsupportedFileTypeError(t *testing.T) {
	var err error = &UnsupportedFileTypeError{MIMEType: "image/png"}

	assert.Contains(t, err.Error(), "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	wrapped := fmt.Errorf("adding file: %w", err)
	var typed *UnsupportedFileTypeError
	assert.True(t, errors.As(wrapped, &typed))
	assert.Equal(t, "image/png", typed.MIMEType)
}

func TestExtractionError(t *testing.T) {
	cause := errors.New("corrupt xref table")
	var err error = &ExtractionError{FileName: "report.pdf", Err: cause}

	assert.Equal(t, "extracting report.pdf: corrupt xref table", err.Error())
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnsupportedFileType)
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrEmbedding, ErrEmbeddingUnavailable))
	assert.False(t, errors.Is(ErrToolExecution, ErrUnknownTool))
}
