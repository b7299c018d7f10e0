package logging_test

import (
	"testing"

	"github.com/a-essam23/go-devicehub/pkg/logging"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logging.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, logging.LevelWarn, logging.ParseLevel("WARN"))
	assert.Equal(t, logging.LevelError, logging.ParseLevel(" error "))
	assert.Equal(t, logging.LevelInfo, logging.ParseLevel("chatty"))
	assert.Equal(t, logging.LevelInfo, logging.ParseLevel(""))
}
