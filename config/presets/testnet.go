package presets

import (
	"time"

	"github.com/spacemeshos/go-antientropy/config"
	"github.com/spacemeshos/go-antientropy/log"
)

func init() {
	register("testnet", testnet())
}

func testnet() config.Config {
	conf := config.DefaultConfig()
	conf.Network = "testnet"

	conf.P2P.LowPeers = 20
	conf.P2P.HighPeers = 80

	conf.Tree.RequestsPerInterval = 200
	conf.Tree.FetchTimeout = 10 * time.Second
	conf.Tree.WalkTimeout = 5 * time.Minute
	conf.Tree.ValueHashing = true

	conf.Logging.Encoder = log.JSONEncoder
	return conf
}
