package partitions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/notargets/slopefem/geom"
)

// stripMesh returns n triangles in a horizontal strip, two per unit cell
func stripMesh(n int) *MeshConnectivity {
	mc := &MeshConnectivity{NumElements: n}
	for k := 0; k < n; k++ {
		cell := k / 2
		lower, upper := cell, cell+n/2+1
		if k%2 == 0 {
			mc.EToV = append(mc.EToV, [3]int{lower, lower + 1, upper + 1})
		} else {
			mc.EToV = append(mc.EToV, [3]int{lower, upper + 1, upper})
		}
		mc.Centroids = append(mc.Centroids, geom.Point{X: float64(cell) + 0.5, Y: float64(k%2) * 0.3})
	}
	return mc
}

func TestBuildPartitions(t *testing.T) {
	for _, strategy := range []PartitionStrategy{BlockPartition, RoundRobin, SpaceFillingCurve} {
		t.Run(strategy.String(), func(t *testing.T) {
			pb := &PartitionBuilder{
				Mesh:                stripMesh(10),
				TargetPartitionSize: 4,
				Strategy:            strategy,
			}
			layout, err := pb.BuildPartitions()
			if err != nil {
				t.Fatalf("BuildPartitions failed: %v", err)
			}
			if layout.NumPartitions != 3 {
				t.Errorf("Expected 3 partitions, got %d", layout.NumPartitions)
			}
			if layout.KpartMax != 4 {
				t.Errorf("Expected KpartMax 4, got %d", layout.KpartMax)
			}

			seen := make([]bool, 10)
			for _, p := range layout.Partitions {
				if p.NumElements == 0 {
					t.Errorf("Partition %d is empty", p.ID)
				}
				for i, k := range p.Elements {
					if seen[k] {
						t.Errorf("Element %d assigned twice", k)
					}
					seen[k] = true
					if i > 0 && p.Elements[i-1] >= k {
						t.Errorf("Partition %d elements not ascending: %v", p.ID, p.Elements)
					}
				}
			}
			for k, ok := range seen {
				if !ok {
					t.Errorf("Element %d not assigned", k)
				}
			}

			stats := layout.PartitionStatistics()
			if stats.MaxElements != 4 || stats.MinElements < 2 {
				t.Errorf("Unexpected stats %+v", stats)
			}
		})
	}
}

func TestBlockPartitionAssignment(t *testing.T) {
	pb := &PartitionBuilder{Mesh: stripMesh(10), TargetPartitionSize: 4}
	layout, err := pb.BuildPartitions()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2}
	for k, p := range want {
		if layout.GetPartition(k) != p {
			t.Errorf("Element %d: expected partition %d, got %d", k, p, layout.GetPartition(k))
		}
	}
	if layout.GetPartition(-1) != -1 || layout.GetPartition(10) != -1 {
		t.Errorf("Out of range elements should map to -1")
	}
}

func TestSpaceFillingCurveLocality(t *testing.T) {
	// Elements listed in a scrambled order along the strip: a good curve
	// ordering puts spatial neighbors in the same partition regardless
	mc := stripMesh(16)
	perm := []int{7, 2, 13, 0, 9, 4, 15, 11, 1, 6, 14, 3, 8, 12, 5, 10}
	scrambled := &MeshConnectivity{NumElements: 16}
	for _, k := range perm {
		scrambled.EToV = append(scrambled.EToV, mc.EToV[k])
		scrambled.Centroids = append(scrambled.Centroids, mc.Centroids[k])
	}
	pb := &PartitionBuilder{Mesh: scrambled, TargetPartitionSize: 8, Strategy: SpaceFillingCurve}
	layout, err := pb.BuildPartitions()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range layout.Partitions {
		lo, hi := 1e9, -1e9
		for _, k := range p.Elements {
			x := scrambled.Centroids[k].X
			lo, hi = min(lo, x), max(hi, x)
		}
		if hi-lo > 4 {
			t.Errorf("Partition %d spans x in [%g, %g], expected a compact run", p.ID, lo, hi)
		}
	}
}

func TestBuildPartitionsErrors(t *testing.T) {
	cases := map[string]*PartitionBuilder{
		"no mesh":      {TargetPartitionSize: 4},
		"zero target":  {Mesh: stripMesh(4)},
		"no centroids": {Mesh: &MeshConnectivity{NumElements: 4}, TargetPartitionSize: 2, Strategy: SpaceFillingCurve},
	}
	for name, pb := range cases {
		if _, err := pb.BuildPartitions(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestValidateLayout(t *testing.T) {
	layout := &PartitionLayout{
		Partitions: []Partition{
			{ID: 0, Elements: []int{0, 1}, NumElements: 2, MaxElements: 2},
			{ID: 1, Elements: []int{2}, NumElements: 1, MaxElements: 2},
		},
		KpartMax:      2,
		TotalElements: 3,
		NumPartitions: 2,
		EToP:          []int{0, 0, 1},
	}
	if err := layout.ValidateLayout(); err != nil {
		t.Fatalf("Valid layout rejected: %v", err)
	}
	layout.EToP[2] = 0
	if err := layout.ValidateLayout(); err == nil {
		t.Errorf("Expected EToP mismatch to be rejected")
	}
	layout.EToP[2] = 1
	layout.KpartMax = 3
	if err := layout.ValidateLayout(); err == nil {
		t.Errorf("Expected KpartMax mismatch to be rejected")
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []PartitionStrategy{BlockPartition, RoundRobin, SpaceFillingCurve} {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStrategy("metis"); err == nil {
		t.Errorf("Expected unknown strategy to fail")
	}
}

func TestForEach(t *testing.T) {
	pb := &PartitionBuilder{Mesh: stripMesh(20), TargetPartitionSize: 3}
	layout, err := pb.BuildPartitions()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("visits every partition once", func(t *testing.T) {
		visits := make([]int32, layout.NumPartitions)
		var total int64
		err := ForEach(context.Background(), layout, 3, func(p *Partition) error {
			atomic.AddInt32(&visits[p.ID], 1)
			atomic.AddInt64(&total, int64(p.NumElements))
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		for id, n := range visits {
			if n != 1 {
				t.Errorf("Partition %d visited %d times", id, n)
			}
		}
		if total != 20 {
			t.Errorf("Expected 20 elements processed, got %d", total)
		}
	})

	t.Run("lowest failing partition wins", func(t *testing.T) {
		errA, errB := errors.New("a"), errors.New("b")
		err := ForEach(context.Background(), layout, 1, func(p *Partition) error {
			switch p.ID {
			case 2:
				return errA
			case 5:
				return errB
			}
			return nil
		})
		if !errors.Is(err, errA) {
			t.Errorf("Expected error of partition 2, got %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := ForEach(ctx, layout, 2, func(p *Partition) error { return nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
