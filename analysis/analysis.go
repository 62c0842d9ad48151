// Package analysis runs the plane-strain pipeline: mesh generation, model
// ingestion, stiffness assembly, boundary conditions, the linear solve and
// stress recovery.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/boundary"
	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/element"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/mesh"
	"github.com/notargets/slopefem/model"
	"github.com/notargets/slopefem/partitions"
	"github.com/notargets/slopefem/post"
	"github.com/notargets/slopefem/solver"
)

// Options configures a run. The zero value meshes with the triangle program
// on the default switches and solves with the fixed penalty.
type Options struct {
	Mesh              mesh.Options
	Provider          mesh.Provider // TriangleCLI when nil
	GeometryTolerance float64       // geom.DefaultTolerance when 0
	Solver            solver.Settings

	Kernel        assembly.Kernel // CPUKernel when nil
	Workers       int
	PartitionSize int
	Strategy      partitions.PartitionStrategy

	Logger log.FieldLogger // logrus.StandardLogger() when nil
}

func DefaultOptions() Options {
	return Options{
		Mesh:              mesh.DefaultOptions(),
		GeometryTolerance: geom.DefaultTolerance,
		Solver:            solver.DefaultSettings(),
		PartitionSize:     assembly.DefaultPartitionSize,
	}
}

// Stats summarizes a run.
type Stats struct {
	Nodes       int           `json:"nodes"`
	Elements    int           `json:"elements"`
	Degenerate  int           `json:"degenerate"`
	DOFs        int           `json:"dofs"`
	Restrained  int           `json:"restrained"`
	LoadedNodes int           `json:"loaded_nodes"`
	TotalLoad   float64       `json:"total_load"`
	NNZ         int           `json:"nnz"`
	Partitions  int           `json:"partitions"`
	Kernel      string        `json:"kernel"`
	Method      string        `json:"method"`
	PivotRatio  float64       `json:"pivot_ratio"`
	Condition   float64       `json:"condition"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the output of one successful run. Nodes and Triangles are the
// winding-normalized mesh the other fields refer to.
type Result struct {
	Nodes         []geom.Point                       `json:"nodes"`
	Triangles     [][3]int                           `json:"triangles"`
	Displacements []float64                          `json:"displacements"` // ux, uy per node
	Stresses      []element.Stress                   `json:"stresses"`
	VonMises      []float64                          `json:"von_mises"`
	Targets       map[string]post.TargetDisplacement `json:"targets,omitempty"`
	Warnings      []diag.Warning                     `json:"warnings,omitempty"`
	Stats         Stats                              `json:"stats"`
}

// Node returns the displacement of node i.
func (r *Result) Node(i int) (ux, uy float64) {
	return r.Displacements[2*i], r.Displacements[2*i+1]
}

// MaxDisplacement returns the node with the largest displacement magnitude.
func (r *Result) MaxDisplacement() (node int, magnitude float64) {
	node = -1
	for i := range r.Nodes {
		ux, uy := r.Node(i)
		if m := math.Hypot(ux, uy); m > magnitude || node < 0 {
			node, magnitude = i, m
		}
	}
	return
}

// MaxVonMises returns the element with the largest von Mises stress, -1 when
// no element is valid.
func (r *Result) MaxVonMises() (elem int, value float64) {
	elem = -1
	for k, s := range r.Stresses {
		if s.Valid && (elem < 0 || s.VonMises > value) {
			elem, value = k, s.VonMises
		}
	}
	return
}

// Run executes the pipeline for p. On a fatal error no Result is returned.
func Run(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	provider := opts.Provider
	if provider == nil {
		provider = mesh.TriangleCLI{Logger: logger}
	}
	tol := opts.GeometryTolerance
	if tol == 0 {
		tol = geom.DefaultTolerance
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Solver.Validate(); err != nil {
		return nil, err
	}
	warn := diag.NewCollector(logger)

	// Mesh
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msh, err := provider.Triangulate(ctx, p.PSLG(), opts.Mesh)
	if err != nil {
		return nil, meshError(err)
	}
	if msh == nil || msh.NumElements() == 0 {
		return nil, fmt.Errorf("%w: provider returned no triangles", diag.ErrMeshing)
	}
	logger.WithFields(log.Fields{
		"nodes":    msh.NumNodes(),
		"elements": msh.NumElements(),
		"switches": opts.Mesh.Switches(),
	}).Info("mesh generated")

	// Ingest
	md, err := model.Build(msh, p.Materials, warn)
	if err != nil {
		return nil, err
	}

	// Assemble
	asm := &assembly.Assembler{
		Kernel:        opts.Kernel,
		Workers:       opts.Workers,
		PartitionSize: opts.PartitionSize,
		Strategy:      opts.Strategy,
		Logger:        logger,
	}
	b, arep, err := asm.Assemble(ctx, md)
	if err != nil {
		return nil, err
	}

	// Constraints and loads
	idx := geom.NewIndex(md.Mesh.Nodes, 4)
	segs := &boundary.Segments{Vertices: p.Vertices, Segments: p.Segments, Index: idx, Tol: tol}
	cons, err := boundary.ResolveConstraints(segs, p.Constraints, warn)
	if err != nil {
		return nil, err
	}
	if pv := opts.Solver.PenaltyValue(b.MaxElasticDiagonal()); pv > 0 {
		cons.ApplyPenalty(b, pv)
	}
	loads, err := boundary.LumpLoads(segs, md.Mesh.Nodes, p.Loads, warn)
	if err != nil {
		return nil, err
	}
	F := loads.Vector(md.NumDOF())
	logger.WithFields(log.Fields{
		"restrained_dofs": len(cons.DOFs),
		"loaded_nodes":    len(loads.Nodes),
		"total_load":      loads.Total(),
	}).Info("boundary conditions applied")

	// Solve
	K := b.Finalize()
	u, srep, err := solver.Solve(ctx, K, F, cons.DOFs, opts.Solver)
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"method":      srep.Method,
		"dofs":        srep.DOFs,
		"pivot_ratio": fmt.Sprintf("%.3g", srep.PivotRatio),
		"elapsed":     srep.Elapsed,
	}).Info("system solved")

	// Post-process
	stresses, err := post.Stresses(ctx, md, u, post.Options{
		Workers:       opts.Workers,
		PartitionSize: opts.PartitionSize,
		Strategy:      opts.Strategy,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Nodes:         md.Mesh.Nodes,
		Triangles:     md.Mesh.Triangles,
		Displacements: u,
		Stresses:      stresses,
		VonMises:      post.VonMises(stresses),
		Targets:       post.Targets(idx, md.Mesh.Nodes, u, p.Targets),
		Warnings:      warn.Warnings(),
		Stats: Stats{
			Nodes:       md.NumNodes(),
			Elements:    len(md.Elements),
			Degenerate:  md.NumDegenerate(),
			DOFs:        md.NumDOF(),
			Restrained:  len(cons.DOFs),
			LoadedNodes: len(loads.Nodes),
			TotalLoad:   loads.Total(),
			NNZ:         K.NNZ(),
			Partitions:  arep.Partitions,
			Kernel:      arep.Kernel,
			Method:      srep.Method.String(),
			PivotRatio:  srep.PivotRatio,
			Condition:   finite(srep.Condition),
		},
	}
	res.Stats.Elapsed = time.Since(start)
	logger.WithFields(log.Fields{
		"warnings": len(res.Warnings),
		"elapsed":  res.Stats.Elapsed,
	}).Info("analysis complete")
	return res, nil
}

func meshError(err error) error {
	switch {
	case errors.Is(err, diag.ErrMeshing), errors.Is(err, diag.ErrConfiguration),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", diag.ErrMeshing, err)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Summarize turns the outcome of Run into a success flag and a message for
// the user.
func Summarize(err error) (bool, string) {
	switch diag.Classify(err) {
	case diag.CodeOK:
		return true, "analysis completed"
	case diag.CodeCanceled:
		return false, "analysis canceled"
	}
	return false, fmt.Sprintf("analysis failed: %v", err)
}
