package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRetryKey(t *testing.T) {
	assert.Equal(t, "retry:sub.register:evt-1", FormatRetryKey("sub.register", "evt-1"))
}
