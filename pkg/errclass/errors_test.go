package errclass_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
)

func TestSumerianError_Error(t *testing.T) {
	err := errclass.ErrAccessDenied.WithMessage("/etc/passwd is outside /proj")
	assert.Equal(t, "E_ACCESS_DENIED: /etc/passwd is outside /proj", err.Error())
}

func TestSumerianError_Error_WithoutMessage(t *testing.T) {
	assert.Equal(t, "E_NO_PROJECT", errclass.ErrNoProject.Error())
}

func TestSumerianError_Is(t *testing.T) {
	err := errclass.ErrAccessDenied.WithMessagef("denied %s", "x")
	require.True(t, errors.Is(err, errclass.ErrAccessDenied))
	require.False(t, errors.Is(err, errclass.ErrIOFailure))
}

func TestSumerianError_IsThroughWrap(t *testing.T) {
	err := fmt.Errorf("write: %w", errclass.ErrAccessDenied.WithMessage("nope"))
	assert.ErrorIs(t, err, errclass.ErrAccessDenied)
}

func TestIOError_MatchesClassAndCause(t *testing.T) {
	err := errclass.NewIOError("write", "/proj/a.txt", fs.ErrPermission)

	assert.ErrorIs(t, err, errclass.ErrIOFailure)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, errclass.ErrAccessDenied)
	assert.Contains(t, err.Error(), "write /proj/a.txt")
	assert.Contains(t, err.Error(), fs.ErrPermission.Error())
}
