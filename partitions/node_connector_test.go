package partitions

import (
	"reflect"
	"testing"
)

func TestNodeConnector(t *testing.T) {
	// 2x1 cells, four triangles, nodes
	//   3 4 5
	//   0 1 2
	EToV := [][3]int{
		{0, 1, 4}, {0, 4, 3}, // cell 0
		{1, 2, 5}, {1, 5, 4}, // cell 1
	}
	EToP := []int{0, 0, 1, 1}
	nc, err := NewNodeConnector(6, EToV, EToP)
	if err != nil {
		t.Fatalf("NewNodeConnector failed: %v", err)
	}
	if err = nc.Verify(); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if nc.NumPartitions != 2 {
		t.Errorf("Expected 2 partitions, got %d", nc.NumPartitions)
	}
	if !reflect.DeepEqual(nc.LocalToGlobalNode[0], []int{0, 1, 4, 3}) {
		t.Errorf("Partition 0 local nodes %v", nc.LocalToGlobalNode[0])
	}
	if !reflect.DeepEqual(nc.LocalToGlobalNode[1], []int{1, 2, 5, 4}) {
		t.Errorf("Partition 1 local nodes %v", nc.LocalToGlobalNode[1])
	}
	if !reflect.DeepEqual(nc.SharedNodes, []int{1, 4}) {
		t.Errorf("Expected shared nodes [1 4], got %v", nc.SharedNodes)
	}

	dofs := nc.LocalDOFs(1, [3]int{1, 5, 4})
	if dofs != [6]int{0, 1, 4, 5, 6, 7} {
		t.Errorf("Unexpected local dofs %v", dofs)
	}
	for local, want := range []int{2, 3, 4, 5, 10, 11, 8, 9} {
		if got := nc.GlobalDOF(1, local); got != want {
			t.Errorf("GlobalDOF(1, %d) = %d, want %d", local, got, want)
		}
	}
}

func TestNodeConnectorErrors(t *testing.T) {
	if _, err := NewNodeConnector(3, nil, nil); err == nil {
		t.Errorf("Expected empty connectivity to fail")
	}
	if _, err := NewNodeConnector(3, [][3]int{{0, 1, 2}}, []int{0, 0}); err == nil {
		t.Errorf("Expected EToP length mismatch to fail")
	}
	if _, err := NewNodeConnector(3, [][3]int{{0, 1, 7}}, []int{0}); err == nil {
		t.Errorf("Expected out of range node to fail")
	}

	nc, err := NewNodeConnector(3, [][3]int{{0, 1, 2}}, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	delete(nc.GlobalToLocalNode[0], 2)
	if err = nc.Verify(); err == nil {
		t.Errorf("Expected Verify to catch a missing mapping")
	}
}
