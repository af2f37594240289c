package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap("training_failed", "retrain failed", cause)

	require.True(t, IsCode(err, "training_failed"))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "retrain failed: boom", err.Error())
}

func TestCodeOfWrappedChain(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap("invalid_input", "bad payload", nil))
	require.Equal(t, "invalid_input", CodeOf(err))
	require.False(t, IsCode(err, "model_not_trained"))
	require.Equal(t, "", CodeOf(errors.New("plain")))
}
