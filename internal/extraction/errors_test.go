package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionError_Retryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindUnavailable, true},
		{KindServiceFailure, false},
		{KindInvalidShape, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &ExtractionError{Kind: tt.kind, Message: "x"}
			assert.Equal(t, tt.want, err.Retryable())
		})
	}
}

func TestExtractionError_Message(t *testing.T) {
	err := &ExtractionError{
		Kind:    KindInvalidShape,
		Message: "bad shape",
		Fields:  []string{"title", "modules"},
		Cause:   errors.New("boom"),
	}
	assert.Equal(t, "extraction failed (invalid_shape): bad shape [title, modules]: boom", err.Error())

	plain := &ExtractionError{Kind: KindServiceFailure, Message: "not a course"}
	assert.Equal(t, "extraction failed (service_failure): not a course", plain.Error())
}

func TestExtractionError_UnwrapAndAs(t *testing.T) {
	cause := context.DeadlineExceeded
	wrapped := fmt.Errorf("submit: %w", &ExtractionError{Kind: KindTimeout, Message: "slow", Cause: cause})

	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))

	ee, ok := AsExtractionError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, ee.Kind)

	_, ok = AsExtractionError(errors.New("other"))
	assert.False(t, ok)
}
