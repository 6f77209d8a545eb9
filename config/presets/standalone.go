package presets

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spacemeshos/go-antientropy/config"
)

func init() {
	register("standalone", standalone())
}

// standalone runs a replica on loopback with data in the temp directory.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.Network = "standalone"
	conf.DataDirParent = filepath.Join(os.TempDir(), "antientropy")
	conf.FileLock = filepath.Join(conf.DataDirParent, "LOCK")

	conf.P2P.Listen = []string{"/ip4/127.0.0.1/tcp/7613"}
	conf.P2P.LowPeers = 2
	conf.P2P.HighPeers = 8
	conf.P2P.GracePeersShutdown = time.Second

	conf.Tree.FetchTimeout = time.Second
	conf.Tree.WalkTimeout = 10 * time.Second

	conf.Logging.Level = "debug"
	return conf
}
