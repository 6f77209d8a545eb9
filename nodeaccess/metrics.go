package nodeaccess

import (
	"github.com/spacemeshos/go-antientropy/metrics"
)

const subsystem = "nodeaccess"

var served = metrics.NewCounter(
	"served",
	subsystem,
	"tree reads served to peers",
	[]string{"kind", "result"},
)
