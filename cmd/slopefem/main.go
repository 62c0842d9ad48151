// Command slopefem runs plane-strain analyses of slope cross sections.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/slopefem/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "slopefem",
		Short: "Plane-strain finite element analysis of slope cross sections",
		Long: `Mesh a slope cross section with constant strain triangles, solve the
linear elastic plane-strain problem and report displacements and stresses.

The problem is a JSON file with the outline vertices, the boundary segments,
materials, region seeds, constraints, distributed loads and target points.
Run settings come from an ini file, see conf/slopefem.ini.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "ini file with run settings")

	load := func() (*config.Config, *log.Logger, error) {
		c := config.Default()
		if configPath != "" {
			var err error
			if c, err = config.Load(configPath); err != nil {
				return nil, nil, err
			}
		}
		logger := log.New()
		logger.SetOutput(os.Stderr)
		c.ConfigureLogger(logger)
		return c, logger, nil
	}
	root.AddCommand(newSolveCmd(load), newServeCmd(load), newSwitchesCmd(load))
	return root
}

type loader func() (*config.Config, *log.Logger, error)

func newSwitchesCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "switches",
		Short: "Print the Triangle switch string of the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Mesh.Switches())
			return nil
		},
	}
}
