package pdf

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_PagesBeforeReady(t *testing.T) {
	p := NewParser()
	_, err := p.Pages(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, errNotReady)
}

func TestParser_ReadyOnce(t *testing.T) {
	p := NewParser()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Ready(context.Background()))
		}()
	}
	wg.Wait()
}

func TestParser_ReadyRecoversAfterCancelledCall(t *testing.T) {
	p := NewParser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.Ready(ctx), context.Canceled)
	_, err := p.Pages(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, errNotReady, "a failed call does not open the gate")

	require.NoError(t, p.Ready(context.Background()))
	assert.NoError(t, p.Ready(ctx), "once ready, later calls succeed")
}

func TestParser_MalformedInput(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Ready(context.Background()))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("hello world")},
		{"truncated header", []byte("%PDF-1.7\n1 0 obj\n<<")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := p.Pages(context.Background(), tt.data)
			assert.Error(t, err)
			assert.Nil(t, pages)
		})
	}
}
