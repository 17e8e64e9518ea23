package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wxrelay/wxrelay/internal/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	s := version.String()
	assert.Contains(t, s, version.Version)
	assert.Contains(t, s, version.Commit)
	assert.Contains(t, s, version.BuildDate)
}
