package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to UploadStatus
		allowed  bool
	}{
		{StatusParsing, StatusParsed, true},
		{StatusParsing, StatusError, true},
		{StatusParsed, StatusCreated, true},
		{StatusParsed, StatusParsed, true},
		{StatusError, StatusError, true},
		{StatusCreated, StatusCreated, true},

		{StatusParsed, StatusParsing, false},
		{StatusError, StatusParsed, false},
		{StatusCreated, StatusParsed, false},
		{StatusParsing, StatusCreated, false},
		{StatusError, StatusCreated, false},
		{StatusParsing, StatusParsing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestUploadStatus_Valid(t *testing.T) {
	for _, s := range []UploadStatus{StatusParsing, StatusParsed, StatusError, StatusCreated} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, UploadStatus("done").Valid())
	assert.False(t, UploadStatus("").Valid())
}

func TestUploadStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusParsing.IsTerminal())
	assert.False(t, StatusParsed.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
	assert.True(t, StatusCreated.IsTerminal())
}

func TestUploadStatus_AllowedFrom_ParsingIsInitialOnly(t *testing.T) {
	assert.Empty(t, StatusParsing.AllowedFrom())
}
