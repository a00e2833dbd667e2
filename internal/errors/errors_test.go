package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	inner := NewModelTimeout("rewrite timed out", context.DeadlineExceeded)
	wrapped := fmt.Errorf("improve: %w", inner)
	outer := NewAIError(ErrCodeAIServiceFailed, "generation failed", inner)

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"direct", inner, ErrCodeModelTimeout, true},
		{"fmt wrapped", wrapped, ErrCodeModelTimeout, true},
		{"nested app error", outer, ErrCodeModelTimeout, true},
		{"outer code", outer, ErrCodeAIServiceFailed, true},
		{"other code", inner, ErrCodeRenderFailed, false},
		{"nil", nil, ErrCodeModelTimeout, false},
		{"plain error", fmt.Errorf("boom"), ErrCodeModelTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestAppErrorFormatting(t *testing.T) {
	err := NewUnsupportedFormat("image/png")
	assert.Equal(t, ErrCodeUnsupportedFormat, err.Code)
	assert.Equal(t, "image/png", err.Context["media_type"])
	assert.EqualError(t, err, "UNSUPPORTED_FORMAT: unsupported document format: image/png")

	caused := NewRenderFailed("pandoc failed", fmt.Errorf("exit status 1"))
	assert.EqualError(t, caused, "RENDER_FAILED: pandoc failed (caused by: exit status 1)")
	assert.Equal(t, ErrCodeRenderFailed, CodeOf(fmt.Errorf("x: %w", caused)))
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		_, err := New(level)
		require.NoError(t, err, "level %q", level)
	}
	_, err := New("verbose")
	assert.Error(t, err)
}
