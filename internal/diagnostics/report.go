package diagnostics

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Report renders a run as a human-readable table: when it ran, the
// reference clock, and each sub-device's topology, parent, and
// propagation delay.
func Report(run Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "DC run %s (%s)\n", run.ID, humanize.Time(run.StartedAt))

	if run.HasReference {
		fmt.Fprintf(&b, "reference clock: configured address %#04x\n", run.ReferenceAddress)
	} else {
		b.WriteString("reference clock: none (no DC-capable sub-device)\n")
	}

	fmt.Fprintf(&b, "%-6s %-8s %-12s %-8s %s\n", "index", "addr", "topology", "parent", "propagation delay")
	for _, sd := range run.SubDevices {
		parent := "-"
		if sd.HasParent {
			parent = fmt.Sprintf("%d", sd.ParentIndex)
		}
		fmt.Fprintf(&b, "%-6d %#04x   %-12s %-8s %s ns\n",
			sd.Index, sd.ConfiguredAddress, sd.Topology, parent, humanize.Comma(int64(sd.PropagationDelayNS)))
	}

	return b.String()
}
