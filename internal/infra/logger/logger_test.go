package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"quest_notifier/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&config.AppConfig{LogLevel: "debug", Environment: "production"}, &buf)

	Component(log, "deadline_scan").WithField("quest_id", "Q1").Info("hello")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &line))
	assert.Equal(t, "deadline_scan", line["component"])
	assert.Equal(t, "Q1", line["quest_id"])
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewWithOutput_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&config.AppConfig{LogLevel: "chatty", Environment: "development"}, &buf)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
}
