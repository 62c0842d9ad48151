// Package post recovers element stresses and point displacements from a
// solved displacement field.
package post

import (
	"context"
	"fmt"

	"github.com/notargets/slopefem/element"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/model"
	"github.com/notargets/slopefem/partitions"
)

// Options controls how stress recovery is split across workers.
type Options struct {
	Workers       int
	PartitionSize int // 256 when < 1
	Strategy      partitions.PartitionStrategy
}

// Stresses returns one record per element of md, in element order.
// Degenerate elements keep a zero record with Valid false.
func Stresses(ctx context.Context, md *model.Model, u []float64, opts Options) ([]element.Stress, error) {
	if len(u) != md.NumDOF() {
		return nil, fmt.Errorf("displacement vector has %d entries for %d dofs", len(u), md.NumDOF())
	}
	size := opts.PartitionSize
	if size < 1 {
		size = 256
	}
	out := make([]element.Stress, len(md.Elements))
	if len(out) == 0 {
		return out, nil
	}

	conn := &partitions.MeshConnectivity{NumElements: len(md.Elements)}
	for k := range md.Elements {
		conn.EToV = append(conn.EToV, md.Elements[k].Nodes)
		p1, p2, p3 := md.Mesh.Corners(k)
		conn.Centroids = append(conn.Centroids, geom.Point{
			X: (p1.X + p2.X + p3.X) / 3,
			Y: (p1.Y + p2.Y + p3.Y) / 3,
		})
	}
	pb := &partitions.PartitionBuilder{Mesh: conn, TargetPartitionSize: size, Strategy: opts.Strategy}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, err
	}

	// each element index belongs to exactly one partition
	err = partitions.ForEach(ctx, layout, opts.Workers, func(p *partitions.Partition) error {
		var ue [element.NumDOF]float64
		for _, k := range p.Elements {
			el := &md.Elements[k]
			if el.Degenerate() {
				continue
			}
			for i, dof := range element.DOFs(el.Nodes) {
				ue[i] = u[dof]
			}
			m, D := md.Material(k)
			out[k] = el.CST.Stress(D, m.Nu, ue[:])
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VonMises extracts the equivalent stress of every record.
func VonMises(stresses []element.Stress) []float64 {
	vm := make([]float64, len(stresses))
	for k, s := range stresses {
		vm[k] = s.VonMises
	}
	return vm
}

// TargetDisplacement is the displacement reported for a named point: the
// displacement of the mesh node nearest to it.
type TargetDisplacement struct {
	Point    geom.Point `json:"point"`
	Node     int        `json:"node"`
	Location geom.Point `json:"location"`
	Distance float64    `json:"distance"`
	UX       float64    `json:"ux"`
	UY       float64    `json:"uy"`
}

// Targets resolves every target point to its nearest node. Ties go to the
// lowest node index.
func Targets(idx *geom.Index, nodes []geom.Point, u []float64, targets map[string]geom.Point) map[string]TargetDisplacement {
	out := make(map[string]TargetDisplacement, len(targets))
	for name, q := range targets {
		n, d := idx.Nearest(q)
		if n < 0 {
			continue
		}
		out[name] = TargetDisplacement{
			Point:    q,
			Node:     n,
			Location: nodes[n],
			Distance: d,
			UX:       u[2*n],
			UY:       u[2*n+1],
		}
	}
	return out
}
