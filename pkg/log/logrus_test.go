package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFormatter(t *testing.T) {
	f := &SimpleFormatter{TimestampFormat: "2006/01/02 15:04:05"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "gain at bound",
		Data:    logrus.Fields{"b": 2, "a": "x"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2025/04/06 17:30:00 [WAR] gain at bound a=x b=2\n", string(out))
}

func TestWriterLoggerLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("info", &buf)

	l.Debugf("hidden %d", 1)
	l.WithField("kind", "GetMode").Infof("request done")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INF] request done kind=GetMode")
}

func TestWriterLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("loud", &buf)
	l.Infof("visible")
	l.Debugf("invisible")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestNewLogrusLoggerCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogrusLogger("info", dir)
	require.NoError(t, err)
	l.Infof("hello file")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
