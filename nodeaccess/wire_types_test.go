package nodeaccess

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-antientropy/codec"
)

func FuzzRequestConsistency(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var req Request
		fuzz.NewFromGoFuzz(data).Fuzz(&req)
		buf, err := codec.Encode(&req)
		require.NoError(t, err)
		var decoded Request
		require.NoError(t, codec.Decode(buf, &decoded))
		require.Equal(t, req, decoded)
	})
}

func FuzzHashResponseConsistency(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var resp HashResponse
		fuzz.NewFromGoFuzz(data).Fuzz(&resp)
		buf, err := codec.Encode(&resp)
		require.NoError(t, err)
		var decoded HashResponse
		require.NoError(t, codec.Decode(buf, &decoded))
		require.Equal(t, resp, decoded)
	})
}

func TestRequestTruncated(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for range 100 {
		var req Request
		f.Fuzz(&req)
		buf := codec.MustEncode(&req)
		var decoded Request
		require.Error(t, codec.Decode(buf[:len(buf)-1], &decoded))
	}
}
