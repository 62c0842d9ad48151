package partitions

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/notargets/slopefem/geom"
)

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	// Mesh connectivity
	Mesh *MeshConnectivity

	// Partitioning parameters
	TargetPartitionSize int // Desired elements per partition
	Strategy            PartitionStrategy
}

// MeshConnectivity provides the mesh topology needed for partitioning
type MeshConnectivity struct {
	NumElements int
	EToV        [][3]int     // Element-to-vertex connectivity
	Centroids   []geom.Point // Required by SpaceFillingCurve
}

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	BlockPartition    PartitionStrategy = iota // Consecutive elements
	RoundRobin                                 // Distribute cyclically
	SpaceFillingCurve                          // Morton order of element centroids
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round-robin"
	case SpaceFillingCurve:
		return "space-filling"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy accepts the names String produces.
func ParseStrategy(name string) (PartitionStrategy, error) {
	for _, s := range []PartitionStrategy{BlockPartition, RoundRobin, SpaceFillingCurve} {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown partition strategy %q", name)
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil || pb.Mesh.NumElements < 1 {
		return nil, fmt.Errorf("partition builder needs at least one element")
	}
	if pb.TargetPartitionSize < 1 {
		return nil, fmt.Errorf("target partition size %d must be positive", pb.TargetPartitionSize)
	}
	if pb.Strategy == SpaceFillingCurve && len(pb.Mesh.Centroids) != pb.Mesh.NumElements {
		return nil, fmt.Errorf("space-filling partitioning needs %d centroids, got %d",
			pb.Mesh.NumElements, len(pb.Mesh.Centroids))
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the elements
	eToP := pb.partitionElements(numPartitions)

	// Create partition structures
	partitions := pb.createPartitions(eToP, numPartitions)

	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateNumPartitions determines the partition count from the target size
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

// partitionElements assigns elements to partitions
func (pb *PartitionBuilder) partitionElements(numPartitions int) []int {
	eToP := make([]int, pb.Mesh.NumElements)
	elementsPerPartition := int(math.Ceil(float64(pb.Mesh.NumElements) / float64(numPartitions)))

	switch pb.Strategy {
	case RoundRobin:
		for i := 0; i < pb.Mesh.NumElements; i++ {
			eToP[i] = i % numPartitions
		}

	case SpaceFillingCurve:
		// Consecutive runs along the Morton curve keep partitions compact,
		// which keeps the shared node count low
		order := mortonOrder(pb.Mesh.Centroids)
		for rank, elem := range order {
			eToP[elem] = min(rank/elementsPerPartition, numPartitions-1)
		}

	default:
		for i := 0; i < pb.Mesh.NumElements; i++ {
			eToP[i] = min(i/elementsPerPartition, numPartitions-1)
		}
	}

	return eToP
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Elements: make([]int, 0)}
	}

	// Elements are visited in ascending order, so each list stays sorted
	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}

	return partitions
}

// mortonOrder returns element indices sorted by the Z-order code of their
// centroid on a 2^16 x 2^16 lattice laid over the centroid bounding box with
// equal spacing in x and y. Ties keep index order.
func mortonOrder(centroids []geom.Point) []int {
	const levels = 1 << 16
	b := geom.BoundsOf(centroids)
	span := math.Max(b.Width(), b.Height())
	quant := func(v, lo float64) uint32 {
		if span <= 0 {
			return 0
		}
		q := (v - lo) / span * (levels - 1)
		return uint32(math.Max(0, math.Min(levels-1, math.Round(q))))
	}
	codes := make([]uint64, len(centroids))
	for i, c := range centroids {
		codes[i] = interleave(quant(c.X, b.Min.X)) | interleave(quant(c.Y, b.Min.Y))<<1
	}
	order := make([]int, len(centroids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return codes[order[a]] < codes[order[b]] })
	return order
}

// interleave spreads the low 16 bits of v onto the even bit positions
func interleave(v uint32) uint64 {
	x := uint64(v & 0xFFFF)
	x = (x | x<<8) & 0x00FF00FF
	x = (x | x<<4) & 0x0F0F0F0F
	x = (x | x<<2) & 0x33333333
	x = (x | x<<1) & 0x55555555
	return x
}
