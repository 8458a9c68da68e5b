package version

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMatchesVersionFile(t *testing.T) {
	data, err := os.ReadFile("VERSION")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(data)), Get())
}

func TestGetIsSemver(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^v\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`), Get())
	assert.Equal(t, Get(), strings.TrimSpace(Get()))
}
