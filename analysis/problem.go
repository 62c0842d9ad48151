package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/notargets/slopefem/boundary"
	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/material"
	"github.com/notargets/slopefem/mesh"
)

// Problem is the complete input of one analysis. Segment ids in Constraints
// and Loads are indices into Segments. A Problem is never modified by Run.
type Problem struct {
	Vertices    []geom.Point          `json:"vertices"`
	Segments    [][2]int              `json:"segments"`
	Materials   *material.Table       `json:"materials"`
	Regions     []mesh.Region         `json:"regions,omitempty"`
	Constraints map[int]boundary.Kind `json:"constraints,omitempty"`
	Loads       map[int]float64       `json:"loads,omitempty"` // force per unit length, positive down
	Targets     map[string]geom.Point `json:"targets,omitempty"`
}

// Validate reports the first configuration error in p.
func (p *Problem) Validate() error {
	if len(p.Vertices) == 0 {
		return diag.Configurationf("problem has no vertices")
	}
	if len(p.Segments) == 0 {
		return diag.Configurationf("problem has no segments")
	}
	for i, v := range p.Vertices {
		if !v.IsFinite() {
			return diag.Configurationf("vertex %d %v is not finite", i, v)
		}
	}
	for i, s := range p.Segments {
		for _, v := range s {
			if v < 0 || v >= len(p.Vertices) {
				return diag.Configurationf("segment %d references vertex %d of %d", i, v, len(p.Vertices))
			}
		}
		if p.Vertices[s[0]] == p.Vertices[s[1]] {
			return diag.Configurationf("segment %d has zero length", i)
		}
	}
	if p.Materials.Len() == 0 {
		return diag.Configurationf("material table is empty")
	}
	for i, r := range p.Regions {
		if !r.Point.IsFinite() {
			return diag.Configurationf("region %d seed %v is not finite", i, r.Point)
		}
		if _, ok := p.Materials.ByID(r.MaterialID); !ok {
			return fmt.Errorf("region %d: %w", i, diag.MaterialNotFound(fmt.Sprint(r.MaterialID)))
		}
	}
	for id, kind := range p.Constraints {
		if id < 0 || id >= len(p.Segments) {
			return diag.Configurationf("constraint on segment %d of %d", id, len(p.Segments))
		}
		if !kind.Valid() {
			return diag.Configurationf("segment %d: invalid constraint kind %d", id, int(kind))
		}
	}
	for id, q := range p.Loads {
		if id < 0 || id >= len(p.Segments) {
			return diag.Configurationf("load on segment %d of %d", id, len(p.Segments))
		}
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return diag.Configurationf("segment %d: load %g is not finite", id, q)
		}
	}
	for name, pt := range p.Targets {
		if name == "" {
			return diag.Configurationf("target with empty name")
		}
		if !pt.IsFinite() {
			return diag.Configurationf("target %q %v is not finite", name, pt)
		}
	}
	return nil
}

// PSLG returns the mesh generator input of p.
func (p *Problem) PSLG() mesh.PSLG {
	return mesh.PSLG{Vertices: p.Vertices, Segments: p.Segments, Regions: p.Regions}
}

// DecodeProblem reads a JSON problem definition.
func DecodeProblem(r io.Reader) (*Problem, error) {
	var p Problem
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, diag.Configurationf("decode problem: %v", err)
	}
	return &p, nil
}

// ReadProblemFile decodes the JSON problem definition stored at path.
func ReadProblemFile(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.Configurationf("%v", err)
	}
	defer f.Close()
	return DecodeProblem(f)
}
