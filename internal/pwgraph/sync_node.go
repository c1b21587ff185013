package pwgraph

// MaxSyncIterations bounds synchronize_node/synchronize_ports (§4.G
// "Filter (local port)"): on exceeding it, the wait gives up silently
// and the caller proceeds with the port considered unavailable (§7).
const MaxSyncIterations = 100

// InvalidNodeID is the filter's "no node id yet" sentinel
// (UINT32_MAX in the reference implementation).
const InvalidNodeID = ^uint32(0)

// SynchronizeNode polls getNodeID (backed by pump, one loop iteration
// per call) until it returns something other than InvalidNodeID, or
// MaxSyncIterations is exhausted. ok is false on exhaustion.
func SynchronizeNode(getNodeID func() uint32, pump func()) (nodeID uint32, ok bool) {
	for i := 0; i < MaxSyncIterations; i++ {
		if id := getNodeID(); id != InvalidNodeID {
			return id, true
		}
		pump()
	}
	return InvalidNodeID, false
}

// SynchronizePorts polls g for nodeID's port counts to reach
// expectedInputs/expectedOutputs, bounded the same way. A caller whose
// filter always declares exactly one output port and zero inputs (the
// common midigo case) passes expectedInputs=0, expectedOutputs=1; a
// caller can instead derive these from its own declared topology
// rather than hardcoding them (§9 open question resolution).
func SynchronizePorts(g *Graph, nodeID uint32, expectedInputs, expectedOutputs int, pump func()) bool {
	matches := func() bool {
		total := NodeEntry{}
		for cat := PhysicalAudio; cat <= SoftwareMIDI; cat++ {
			if entry, ok := g.Node(cat, nodeID); ok {
				total.Inputs = append(total.Inputs, entry.Inputs...)
				total.Outputs = append(total.Outputs, entry.Outputs...)
			}
		}
		return len(total.Inputs) == expectedInputs && len(total.Outputs) == expectedOutputs
	}

	for i := 0; i < MaxSyncIterations; i++ {
		if matches() {
			return true
		}
		pump()
	}
	return false
}
