package assembly

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/slopefem/element"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/model"
	"github.com/notargets/slopefem/partitions"
)

// Kernel computes element stiffness matrices. Implementations may be called
// from several goroutines at once.
type Kernel interface {
	Name() string
	// ElementStiffness returns ke for each listed element, in order. Every
	// listed element has a CST operator.
	ElementStiffness(ctx context.Context, md *model.Model, elems []int) ([]*mat.SymDense, error)
}

// CPUKernel evaluates Bt*D*B*area on the host.
type CPUKernel struct{}

func (CPUKernel) Name() string { return "cpu" }

func (CPUKernel) ElementStiffness(ctx context.Context, md *model.Model, elems []int) ([]*mat.SymDense, error) {
	out := make([]*mat.SymDense, len(elems))
	for i, k := range elems {
		_, D := md.Material(k)
		out[i] = md.Elements[k].CST.Stiffness(D)
	}
	return out, ctx.Err()
}

const DefaultPartitionSize = 256

// Assembler builds the global stiffness by partitioning the elements,
// assembling each partition into a local system under its own node
// numbering, and reducing the partitions into the global system in
// partition order.
type Assembler struct {
	Kernel        Kernel // CPUKernel when nil
	Workers       int    // runtime.NumCPU() when < 1
	PartitionSize int    // DefaultPartitionSize when < 1
	Strategy      partitions.PartitionStrategy
	Logger        log.FieldLogger
}

// Report describes one assembly.
type Report struct {
	Kernel      string
	Elements    int // assembled elements
	Skipped     int // degenerate elements
	Partitions  int
	SharedNodes int
	Imbalance   float64
	NNZ         int
	Elapsed     time.Duration
}

// Assemble returns an open Builder holding K for md so constraint terms can
// still be added before Finalize.
func (a *Assembler) Assemble(ctx context.Context, md *model.Model) (*Builder, Report, error) {
	start := time.Now()
	kernel := a.Kernel
	if kernel == nil {
		kernel = CPUKernel{}
	}
	size := a.PartitionSize
	if size < 1 {
		size = DefaultPartitionSize
	}

	var rep Report
	rep.Kernel = kernel.Name()

	// Only elements with an operator take part
	var active []int
	for k := range md.Elements {
		if md.Elements[k].Degenerate() {
			rep.Skipped++
			continue
		}
		active = append(active, k)
	}
	rep.Elements = len(active)
	if len(active) == 0 {
		return nil, rep, fmt.Errorf("no assemblable elements")
	}

	conn := &partitions.MeshConnectivity{NumElements: len(active)}
	for _, k := range active {
		conn.EToV = append(conn.EToV, md.Elements[k].Nodes)
		p1, p2, p3 := md.Mesh.Corners(k)
		conn.Centroids = append(conn.Centroids, geom.Point{
			X: (p1.X + p2.X + p3.X) / 3,
			Y: (p1.Y + p2.Y + p3.Y) / 3,
		})
	}
	pb := &partitions.PartitionBuilder{
		Mesh:                conn,
		TargetPartitionSize: size,
		Strategy:            a.Strategy,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, rep, err
	}
	nc, err := partitions.NewNodeConnector(md.NumNodes(), conn.EToV, layout.EToP)
	if err != nil {
		return nil, rep, err
	}
	if err = nc.Verify(); err != nil {
		return nil, rep, fmt.Errorf("node connector: %w", err)
	}
	rep.Partitions = layout.NumPartitions
	rep.SharedNodes = len(nc.SharedNodes)
	rep.Imbalance = layout.PartitionStatistics().Imbalance

	// Partition local assembly; each worker writes only locals[p.ID]
	locals := make([]*Builder, layout.NumPartitions)
	err = partitions.ForEach(ctx, layout, a.Workers, func(p *partitions.Partition) error {
		elems := make([]int, p.NumElements)
		for i, local := range p.Elements {
			elems[i] = active[local]
		}
		kes, err := kernel.ElementStiffness(ctx, md, elems)
		if err != nil {
			return fmt.Errorf("partition %d: %s kernel: %w", p.ID, kernel.Name(), err)
		}
		lb := NewBuilder(2 * nc.NodesPerPartition[p.ID])
		for i, k := range elems {
			dofs := nc.LocalDOFs(p.ID, md.Elements[k].Nodes)
			lb.AddElement(dofs[:], kes[i])
		}
		locals[p.ID] = lb
		return nil
	})
	if err != nil {
		return nil, rep, err
	}

	// Ordered reduction
	global := NewBuilder(md.NumDOF())
	for pid, lb := range locals {
		if err = ctx.Err(); err != nil {
			return nil, rep, err
		}
		lb.Entries(func(i, j int, v float64) {
			global.Add(nc.GlobalDOF(pid, i), nc.GlobalDOF(pid, j), v)
		})
	}
	rep.NNZ = global.NNZ()
	rep.Elapsed = time.Since(start)

	if a.Logger != nil {
		a.Logger.WithFields(log.Fields{
			"kernel":       rep.Kernel,
			"elements":     rep.Elements,
			"skipped":      rep.Skipped,
			"partitions":   rep.Partitions,
			"shared_nodes": rep.SharedNodes,
			"imbalance":    fmt.Sprintf("%.2f", rep.Imbalance),
			"nnz":          rep.NNZ,
			"elapsed":      rep.Elapsed,
		}).Info("stiffness assembled")
	}
	return global, rep, nil
}

// AssembleSequential accumulates every non-degenerate element straight into
// one builder in element order.
func AssembleSequential(md *model.Model) *Builder {
	b := NewBuilder(md.NumDOF())
	for k := range md.Elements {
		el := &md.Elements[k]
		if el.Degenerate() {
			continue
		}
		_, D := md.Material(k)
		dofs := element.DOFs(el.Nodes)
		b.AddElement(dofs[:], el.CST.Stiffness(D))
	}
	return b
}
