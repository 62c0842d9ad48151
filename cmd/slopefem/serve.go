package main

import (
	"github.com/spf13/cobra"

	"github.com/notargets/slopefem/server"
)

func newServeCmd(load loader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over a websocket on /ws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := load()
			if err != nil {
				return err
			}
			kernel, release, err := elementKernel(c, logger)
			if err != nil {
				return err
			}
			defer release()
			opts := c.AnalysisOptions(logger)
			opts.Kernel = kernel
			return server.NewServer(addr, opts).Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address")
	return cmd
}
