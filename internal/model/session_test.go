package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("open")
	require.NoError(t, err)
	assert.Equal(t, SessionOpen, got)

	got, err = ParseStatus(" CLOSED ")
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, got)

	_, err = ParseStatus("pending")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSessionJoinableAt(t *testing.T) {
	deadline := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	open := Session{Status: SessionOpen, RegisterBy: deadline}

	assert.True(t, open.JoinableAt(deadline.Add(-time.Minute)))

	// The window is exclusive of the deadline itself.
	assert.False(t, open.JoinableAt(deadline))
	assert.False(t, open.JoinableAt(deadline.Add(time.Second)))

	closed := open
	closed.Status = SessionClosed
	assert.False(t, closed.JoinableAt(deadline.Add(-time.Hour)))

	deleted := open
	now := deadline.Add(-time.Hour)
	deleted.DeletedAt = &now
	assert.False(t, deleted.JoinableAt(now))
}
