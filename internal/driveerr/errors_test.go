package driveerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrNoSuchFile, "missing entry")
	require.Error(t, err)
	assert.Equal(t, "missing entry", err.Error())
	assert.Equal(t, ErrNoSuchFile, err.Code)
	assert.Empty(t, err.Path)
}

func TestNewPath(t *testing.T) {
	err := NewPath(ErrFileExists, "already there", "/a/b")
	assert.Equal(t, "already there: /a/b", err.Error())
}

func TestIs(t *testing.T) {
	t.Run("MatchesSameCode", func(t *testing.T) {
		err := New(ErrUnknown, "boom")
		assert.True(t, Is(err, ErrUnknown))
	})

	t.Run("RejectsDifferentCode", func(t *testing.T) {
		err := New(ErrUnknown, "boom")
		assert.False(t, Is(err, ErrNoSuchFile))
	})

	t.Run("RejectsNonDriveError", func(t *testing.T) {
		assert.False(t, Is(errors.New("plain"), ErrUnknown))
	})
}

func TestErrorCodeString(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrNoSuchFile:   "NoSuchFile",
		ErrFileExists:   "FileExists",
		ErrParsingError: "ParsingError",
		ErrUnknown:      "Unknown",
	}

	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
}
