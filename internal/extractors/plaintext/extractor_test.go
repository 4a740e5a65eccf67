package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	types := New().SupportedMIMETypes()
	assert.Contains(t, types, domain.MIMETypePlainText)
	assert.Contains(t, types, domain.MIMETypeMarkdown)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"plain", []byte("The sky is blue."), "The sky is blue."},
		{"markdown kept verbatim", []byte("# Title\n\n* item"), "# Title\n\n* item"},
		{"byte order mark dropped", []byte("\xef\xbb\xbfhello"), "hello"},
		{"invalid utf-8 replaced", []byte("ab\xffcd"), "ab\uFFFDcd"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := New().Extract(context.Background(), &domain.RawFile{
				Name: "f.txt", MIMEType: domain.MIMETypePlainText, Content: tt.content,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestExtract_NilFile(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
