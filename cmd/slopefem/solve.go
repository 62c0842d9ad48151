package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/notargets/slopefem/analysis"
	"github.com/notargets/slopefem/mesh"
)

var errFailed = errors.New("analysis failed")

type solveFlags struct {
	node, ele string
	grid      string
	json      bool
}

func newSolveCmd(load loader) *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve <problem.json>",
		Short: "Run one analysis and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := load()
			if err != nil {
				return err
			}
			p, err := analysis.ReadProblemFile(args[0])
			if err != nil {
				return err
			}
			opts := c.AnalysisOptions(logger)
			if opts.Provider, err = f.provider(opts.Provider); err != nil {
				return err
			}
			kernel, release, err := elementKernel(c, logger)
			if err != nil {
				return err
			}
			defer release()
			opts.Kernel = kernel

			res, err := analysis.Run(cmd.Context(), p, opts)
			ok, msg := analysis.Summarize(err)
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
				return errFailed
			}
			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printSummary(cmd.OutOrStdout(), res)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.node, "node", "", "read the mesh nodes from a Triangle .node file")
	fl.StringVar(&f.ele, "ele", "", "read the mesh triangles from a Triangle .ele file")
	fl.StringVar(&f.grid, "grid", "", "mesh the bounding rectangle with an NXxNY structured grid")
	fl.BoolVar(&f.json, "json", false, "print the full result as JSON")
	return cmd
}

func (f solveFlags) provider(def mesh.Provider) (mesh.Provider, error) {
	switch {
	case f.grid != "" && (f.node != "" || f.ele != ""):
		return nil, fmt.Errorf("--grid cannot be combined with --node/--ele")
	case f.grid != "":
		nx, ny, err := parseGrid(f.grid)
		if err != nil {
			return nil, err
		}
		return mesh.Grid{NX: nx, NY: ny}, nil
	case f.node != "" || f.ele != "":
		if f.node == "" || f.ele == "" {
			return nil, fmt.Errorf("--node and --ele must be given together")
		}
		m, err := mesh.ReadTriangleFiles(f.node, f.ele)
		if err != nil {
			return nil, err
		}
		return mesh.Static{Mesh: m}, nil
	}
	return def, nil
}

func parseGrid(s string) (nx, ny int, err error) {
	var rest string
	n, _ := fmt.Sscanf(s+" end", "%dx%d %s", &nx, &ny, &rest)
	if n != 3 || rest != "end" || nx < 1 || ny < 1 {
		return 0, 0, fmt.Errorf("grid %q: want NXxNY with positive cell counts", s)
	}
	return nx, ny, nil
}

func printSummary(w io.Writer, res *analysis.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	st := res.Stats
	fmt.Fprintf(tw, "nodes\t%d\n", st.Nodes)
	fmt.Fprintf(tw, "elements\t%d (%d degenerate)\n", st.Elements, st.Degenerate)
	fmt.Fprintf(tw, "dofs\t%d (%d restrained)\n", st.DOFs, st.Restrained)
	fmt.Fprintf(tw, "loaded nodes\t%d (total %g)\n", st.LoadedNodes, st.TotalLoad)
	fmt.Fprintf(tw, "solver\t%s, pivot ratio %.3g\n", st.Method, st.PivotRatio)
	fmt.Fprintf(tw, "assembly\t%s, %d partitions, %d nonzeros\n", st.Kernel, st.Partitions, st.NNZ)
	if n, m := res.MaxDisplacement(); n >= 0 {
		p := res.Nodes[n]
		fmt.Fprintf(tw, "max displacement\t%.6g at node %d (%g, %g)\n", m, n, p.X, p.Y)
	}
	if k, v := res.MaxVonMises(); k >= 0 {
		fmt.Fprintf(tw, "max von Mises\t%.6g in element %d\n", v, k)
	}
	fmt.Fprintf(tw, "warnings\t%d\n", len(res.Warnings))
	fmt.Fprintf(tw, "elapsed\t%v\n", st.Elapsed)

	if len(res.Targets) > 0 {
		names := make([]string, 0, len(res.Targets))
		for name := range res.Targets {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(tw, "\ntarget\tnode\tdistance\tux\tuy\n")
		for _, name := range names {
			t := res.Targets[name]
			fmt.Fprintf(tw, "%s\t%d\t%.3g\t%.6g\t%.6g\n", name, t.Node, t.Distance, t.UX, t.UY)
		}
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(tw, "warning\t%s\n", warn.Message)
	}
	return tw.Flush()
}
