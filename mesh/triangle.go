package mesh

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/mesh/readers"
)

// TriangleCLI drives Shewchuk's triangle program through its file formats.
type TriangleCLI struct {
	Path    string // executable, "triangle" when empty
	WorkDir string // scratch directory parent, os.TempDir() when empty
	Keep    bool   // keep the scratch directory for inspection
	Logger  log.FieldLogger
}

func (tc TriangleCLI) Triangulate(ctx context.Context, g PSLG, opts Options) (*Mesh, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	exe := tc.Path
	if exe == "" {
		exe = "triangle"
	}
	dir, err := os.MkdirTemp(tc.WorkDir, "slopefem-mesh-")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch directory: %v", diag.ErrMeshing, err)
	}
	if !tc.Keep {
		defer os.RemoveAll(dir)
	}

	base := filepath.Join(dir, "domain")
	if err = writePoly(base+".poly", g); err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrMeshing, err)
	}

	// Q is forced so stdout carries only errors
	switches := opts
	switches.Quiet = true
	cmd := exec.CommandContext(ctx, exe, "-"+switches.Switches(), base+".poly")
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if tc.Logger != nil {
		tc.Logger.WithFields(log.Fields{
			"exe":      exe,
			"switches": switches.Switches(),
			"vertices": len(g.Vertices),
			"segments": len(g.Segments),
		}).Debug("running triangle")
	}
	if err = cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", diag.ErrMeshing, exe, err, bytes.TrimSpace(output.Bytes()))
	}
	m, err := ReadTriangleFiles(base+".1.node", base+".1.ele")
	if err != nil {
		return nil, err
	}
	if !opts.Attributes {
		m.Attributes = nil
	}
	return m, nil
}

func writePoly(path string, g PSLG) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	p := readers.Poly{Vertices: g.Vertices, Segments: g.Segments}
	for _, r := range g.Regions {
		maxArea := r.MaxArea
		if maxArea == 0 {
			maxArea = -1
		}
		p.Regions = append(p.Regions, readers.RegionSeed{
			Point:     r.Point,
			Attribute: float64(r.MaterialID),
			MaxArea:   maxArea,
		})
	}
	if err = readers.WritePoly(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTriangleFiles loads a mesh from a Triangle .node/.ele pair.
func ReadTriangleFiles(nodePath, elePath string) (*Mesh, error) {
	nf, err := os.Open(nodePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrMeshing, err)
	}
	defer nf.Close()
	nodes, err := readers.ReadNodes(nf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", diag.ErrMeshing, nodePath, err)
	}

	ef, err := os.Open(elePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrMeshing, err)
	}
	defer ef.Close()
	els, err := readers.ReadElements(ef, nodes.Base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", diag.ErrMeshing, elePath, err)
	}

	m := &Mesh{Nodes: nodes.Points, Triangles: els.Triangles}
	for _, a := range els.Attributes {
		if len(a) > 0 {
			m.Attributes = els.Attributes
			break
		}
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
