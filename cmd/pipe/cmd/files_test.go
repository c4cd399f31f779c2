package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortID(t *testing.T) {
	full := strings.Repeat("ab", 32)
	assert.Equal(t, full[:12], shortID(full))
	assert.Equal(t, "short", shortID("short"), "identifiers shorter than the display width pass through")
	assert.Equal(t, "", shortID(""))
	assert.Equal(t, "exactly12chr", shortID("exactly12chr"))
}
