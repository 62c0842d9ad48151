package partitions

import (
	"fmt"
	"sort"
)

// NodeConnector manages the local node numbering of each partition. Each
// partition assembles into its own compact degree-of-freedom space, and the
// LocalToGlobalNode maps place those contributions into the global system.
type NodeConnector struct {
	NumPartitions int
	K             int // Total elements
	NumNodes      int // Total mesh nodes

	// Input connectivity
	EToV [][3]int // Element → mesh nodes
	EToP []int    // Element → partition mapping

	// Partition mappings
	NodesPerPartition []int         // Distinct nodes touched by each partition
	GlobalToLocalNode []map[int]int // [partition][globalNode] → localNode
	LocalToGlobalNode [][]int       // [partition][localNode] → globalNode

	// Nodes touched by more than one partition, ascending. These are the
	// points where partition contributions meet during the reduction.
	SharedNodes []int
}

// NewNodeConnector creates a node connector from element connectivity
func NewNodeConnector(numNodes int, EToV [][3]int, EToP []int) (*NodeConnector, error) {
	K := len(EToV)
	if K == 0 || numNodes <= 0 {
		return nil, fmt.Errorf("invalid dimensions: K=%d, NumNodes=%d", K, numNodes)
	}
	if len(EToP) != K {
		return nil, fmt.Errorf("EToP length %d does not match K=%d", len(EToP), K)
	}

	numPartitions := 0
	for k, p := range EToP {
		if p < 0 {
			return nil, fmt.Errorf("element %d has negative partition %d", k, p)
		}
		if p+1 > numPartitions {
			numPartitions = p + 1
		}
	}

	nc := &NodeConnector{
		NumPartitions: numPartitions,
		K:             K,
		NumNodes:      numNodes,
		EToV:          EToV,
		EToP:          EToP,
	}
	if err := nc.buildPartitionMappings(); err != nil {
		return nil, err
	}
	nc.findSharedNodes()
	return nc, nil
}

// buildPartitionMappings numbers the nodes of each partition in order of
// first appearance while walking its elements in ascending global order
func (nc *NodeConnector) buildPartitionMappings() error {
	nc.GlobalToLocalNode = make([]map[int]int, nc.NumPartitions)
	nc.LocalToGlobalNode = make([][]int, nc.NumPartitions)
	nc.NodesPerPartition = make([]int, nc.NumPartitions)
	for p := 0; p < nc.NumPartitions; p++ {
		nc.GlobalToLocalNode[p] = make(map[int]int)
	}

	for elem := 0; elem < nc.K; elem++ {
		p := nc.EToP[elem]
		for _, node := range nc.EToV[elem] {
			if node < 0 || node >= nc.NumNodes {
				return fmt.Errorf("element %d references node %d of %d", elem, node, nc.NumNodes)
			}
			if _, seen := nc.GlobalToLocalNode[p][node]; seen {
				continue
			}
			nc.GlobalToLocalNode[p][node] = len(nc.LocalToGlobalNode[p])
			nc.LocalToGlobalNode[p] = append(nc.LocalToGlobalNode[p], node)
		}
	}
	for p := range nc.LocalToGlobalNode {
		nc.NodesPerPartition[p] = len(nc.LocalToGlobalNode[p])
	}
	return nil
}

func (nc *NodeConnector) findSharedNodes() {
	touch := make([]int, nc.NumNodes)
	for p := 0; p < nc.NumPartitions; p++ {
		for _, node := range nc.LocalToGlobalNode[p] {
			touch[node]++
		}
	}
	nc.SharedNodes = nc.SharedNodes[:0]
	for node, n := range touch {
		if n > 1 {
			nc.SharedNodes = append(nc.SharedNodes, node)
		}
	}
	sort.Ints(nc.SharedNodes)
}

// LocalDOFs maps element nodes to the partition's local degrees of freedom
func (nc *NodeConnector) LocalDOFs(partition int, nodes [3]int) [6]int {
	g2l := nc.GlobalToLocalNode[partition]
	var dofs [6]int
	for i, node := range nodes {
		l := g2l[node]
		dofs[2*i] = 2 * l
		dofs[2*i+1] = 2*l + 1
	}
	return dofs
}

// GlobalDOF maps a local degree of freedom of a partition to the global one
func (nc *NodeConnector) GlobalDOF(partition, localDOF int) int {
	return 2*nc.LocalToGlobalNode[partition][localDOF/2] + localDOF%2
}

// Verify checks that the mappings are bijective and that every element node
// is reachable from its partition
func (nc *NodeConnector) Verify() error {
	for p := 0; p < nc.NumPartitions; p++ {
		if len(nc.GlobalToLocalNode[p]) != len(nc.LocalToGlobalNode[p]) {
			return fmt.Errorf("partition %d: %d global→local entries vs %d local→global",
				p, len(nc.GlobalToLocalNode[p]), len(nc.LocalToGlobalNode[p]))
		}
		for local, global := range nc.LocalToGlobalNode[p] {
			if back, ok := nc.GlobalToLocalNode[p][global]; !ok || back != local {
				return fmt.Errorf("partition %d: local node %d → global %d does not map back", p, local, global)
			}
		}
	}

	// Conservation: every (element, node) incidence is visible exactly once
	incidences := 0
	for elem := 0; elem < nc.K; elem++ {
		p := nc.EToP[elem]
		for _, node := range nc.EToV[elem] {
			if _, ok := nc.GlobalToLocalNode[p][node]; !ok {
				return fmt.Errorf("element %d node %d missing from partition %d", elem, node, p)
			}
			incidences++
		}
	}
	if incidences != 3*nc.K {
		return fmt.Errorf("incidence count %d != 3*K=%d", incidences, 3*nc.K)
	}
	return nil
}
