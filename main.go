// go-antientropy is a key/value replica that finds divergent keys between
// replicas by comparing merkle trees over libp2p.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/go-antientropy/cmd"
	"github.com/spacemeshos/go-antientropy/cmd/replica"
)

var (
	version string
	commit  string
	branch  string
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := replica.GetCommand().Execute(); err != nil {
		code := replica.ExitCode(err)
		if code == 1 {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}
