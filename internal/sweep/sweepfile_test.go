package sweep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSweepFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_Valid(t *testing.T) {
	path := writeSweepFile(t, `
name: fragmentation
scheme: falcon
runs: 10
fragment_sizes: [256, 512, 1024]
compressions: [zlib]
packet_loss: 0.05
base_port: 7777
note: nightly
`)

	f, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "fragmentation", f.Name)
	assert.Equal(t, "falcon", f.Scheme)
	assert.Equal(t, 10, f.Runs)
	assert.Equal(t, []int{256, 512, 1024}, f.FragmentSizes)
	assert.Equal(t, []string{"zlib"}, f.Compressions)
	assert.InDelta(t, 0.05, f.PacketLoss, 1e-9)
	require.NotNil(t, f.BasePort)
	assert.Equal(t, 7777, *f.BasePort)
	assert.Equal(t, "nightly", f.Note)
}

func TestLoadFile_UnknownFieldRejected(t *testing.T) {
	path := writeSweepFile(t, "fragment_size: [256]\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFile_Validation(t *testing.T) {
	cases := map[string]string{
		"bad scheme":        "scheme: rsa\n",
		"negative runs":     "runs: -1\n",
		"loss above range":  "packet_loss: 1.5\n",
		"zero fragment":     "fragment_sizes: [0]\n",
		"port out of range": "base_port: 70000\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeSweepFile(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid sweep file")
		})
	}
}
