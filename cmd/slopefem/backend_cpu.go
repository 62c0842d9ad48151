//go:build !occa

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/config"
	"github.com/notargets/slopefem/diag"
)

func elementKernel(c *config.Config, logger log.FieldLogger) (assembly.Kernel, func(), error) {
	if c.Backend == config.BackendOCCA {
		return nil, nil, diag.Configurationf("backend %q needs a build with -tags occa", c.Backend)
	}
	return assembly.CPUKernel{}, func() {}, nil
}
