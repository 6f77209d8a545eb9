package presets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	require.Equal(t, []string{"standalone", "testnet"}, Options())
	for _, name := range Options() {
		t.Run(name, func(t *testing.T) {
			conf, err := Get(name)
			require.NoError(t, err)
			require.Equal(t, name, conf.Network)
		})
	}
	_, err := Get("mainnet")
	require.ErrorContains(t, err, "doesn't exist")
	require.Panics(t, func() { register("testnet", testnet()) })
}
