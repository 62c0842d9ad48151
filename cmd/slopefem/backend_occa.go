//go:build occa

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/notargets/slopefem/accel"
	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/config"
)

func elementKernel(c *config.Config, logger log.FieldLogger) (assembly.Kernel, func(), error) {
	if c.Backend != config.BackendOCCA {
		return assembly.CPUKernel{}, func() {}, nil
	}
	k, err := accel.NewKernel(c.Device, accel.DefaultBatch)
	if err != nil {
		return nil, nil, err
	}
	k.Logger = logger
	logger.WithField("kernel", k.Name()).Info("occa device opened")
	return k, k.Free, nil
}
