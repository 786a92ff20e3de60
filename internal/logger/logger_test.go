package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	log := New("debug", "json")
	assert.Equal(t, logrus.DebugLevel, log.Level)

	var buf bytes.Buffer
	log.Out = &buf
	log.WithField("product_id", 3).Info("cart operation rejected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cart operation rejected", entry["message"])
	assert.Equal(t, "info", entry["severity"])
	assert.Contains(t, entry, "timestamp")
	assert.EqualValues(t, 3, entry["product_id"])
}

func TestNew_Fallbacks(t *testing.T) {
	log := New("loud", "text")
	assert.Equal(t, logrus.InfoLevel, log.Level)
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}
