package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCpuTemp(t *testing.T) {
	assert.Equal(t, float32(48.312), parseCpuTemp("48312\n"))
	assert.Equal(t, float32(52), parseCpuTemp("52"))
	assert.Equal(t, InvalidCpuTemp, parseCpuTemp("n/a"))
}

func TestReadCpuTemp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte("61000\n"), 0644))

	assert.Equal(t, float32(61), ReadCpuTemp(path))
	assert.True(t, IsCPUTempValid(ReadCpuTemp(path)))
	assert.Equal(t, InvalidCpuTemp, ReadCpuTemp(filepath.Join(t.TempDir(), "missing")))
	assert.False(t, IsCPUTempValid(InvalidCpuTemp))
}
