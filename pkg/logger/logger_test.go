package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_FallsBackToGlobal(t *testing.T) {
	ctx := context.Background()
	entry := GetLogger(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLogger_RoundTrip(t *testing.T) {
	base := logrus.New()
	entry := logrus.NewEntry(base).WithField("component", "pipeline")

	ctx := WithLogger(context.Background(), entry)
	got := GetLogger(ctx)

	require.NotNil(t, got)
	assert.Equal(t, base, got.Logger)
	assert.Equal(t, "pipeline", got.Data["component"])
}

func TestSetLogLevel(t *testing.T) {
	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	require.NoError(t, SetLogLevel("info"))
	assert.Equal(t, logrus.InfoLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("not-a-level"))
}

func TestSetLogFormat_JSON(t *testing.T) {
	defer SetLogFormat("fmt")

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogFormat("json")

	L.Info("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
