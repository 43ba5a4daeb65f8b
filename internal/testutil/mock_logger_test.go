package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	logger := testutil.NewMockLogger()
	child := logger.Named("tcp").Named("conn").With(logging.String("remote", "127.0.0.1:4000"))

	child.Warn("slow client", logging.Int("bytes", 12))
	logger.Debug("root")

	msg, ok := logger.Find("warn", "slow client")
	require.True(t, ok)
	assert.Equal(t, "tcp.conn", msg.Logger)
	remote, ok := msg.Field("remote")
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:4000", remote)
	bytes, _ := msg.Field("bytes")
	assert.Equal(t, 12, bytes)
	assert.Len(t, logger.GetMessages(), 2)
}

func TestMockLogger_SetLevel(t *testing.T) {
	logger := testutil.NewMockLogger()
	child := logger.Named("x")

	assert.True(t, logger.SetLevel("WARN"))
	child.Info("dropped")
	child.Error("kept")
	assert.False(t, logger.HasMessage("info", "dropped"))
	assert.True(t, logger.HasMessage("error", "kept"))

	assert.False(t, logger.SetLevel("verbose"))
	assert.False(t, logger.SetLevel("fatal"))
}
