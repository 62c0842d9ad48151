// Package config reads slopefem run settings from an ini file.
package config

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/notargets/slopefem/analysis"
	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/mesh"
	"github.com/notargets/slopefem/partitions"
	"github.com/notargets/slopefem/solver"
)

const (
	BackendCPU  = "cpu"
	BackendOCCA = "occa"
)

// Config holds every setting of a run.
type Config struct {
	Mesh         mesh.Options
	TrianglePath string

	GeometryTolerance float64
	Solver            solver.Settings

	Workers       int
	PartitionSize int
	Strategy      partitions.PartitionStrategy
	Backend       string
	Device        string // OCCA device properties, JSON

	LogLevel  log.Level
	LogFormat string // text or json
}

func Default() *Config {
	return &Config{
		Mesh:              mesh.DefaultOptions(),
		TrianglePath:      "triangle",
		GeometryTolerance: geom.DefaultTolerance,
		Solver:            solver.DefaultSettings(),
		PartitionSize:     assembly.DefaultPartitionSize,
		Strategy:          partitions.SpaceFillingCurve,
		Backend:           BackendCPU,
		Device:            `{"mode": "Serial"}`,
		LogLevel:          log.InfoLevel,
		LogFormat:         "text",
	}
}

// Load reads the ini file at path. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, diag.Configurationf("read %s: %v", path, err)
	}
	return fromFile(file)
}

// Parse reads ini formatted data.
func Parse(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, diag.Configurationf("parse config: %v", err)
	}
	return fromFile(file)
}

type reader struct {
	file *ini.File
	err  error
}

func (r *reader) key(section, name string) *ini.Key {
	if r.err != nil {
		return nil
	}
	sec := r.file.Section(section)
	if !sec.HasKey(name) {
		return nil
	}
	return sec.Key(name)
}

func (r *reader) fail(section, name string, err error) {
	r.err = diag.Configurationf("[%s] %s: %v", section, name, err)
}

func (r *reader) floatKey(section, name string, def float64) float64 {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Float64()
	if err != nil {
		r.fail(section, name, err)
	}
	return v
}

func (r *reader) intKey(section, name string, def int) int {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Int()
	if err != nil {
		r.fail(section, name, err)
	}
	return v
}

func (r *reader) boolKey(section, name string, def bool) bool {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	v, err := k.Bool()
	if err != nil {
		r.fail(section, name, err)
	}
	return v
}

func (r *reader) stringKey(section, name, def string) string {
	k := r.key(section, name)
	if k == nil {
		return def
	}
	return strings.TrimSpace(k.String())
}

func fromFile(file *ini.File) (*Config, error) {
	c := Default()
	r := &reader{file: file}

	c.Mesh.ConformPSLG = r.boolKey("mesh", "conform", c.Mesh.ConformPSLG)
	c.Mesh.MinAngle = r.floatKey("mesh", "min_angle", c.Mesh.MinAngle)
	c.Mesh.MaxArea = r.floatKey("mesh", "max_area", c.Mesh.MaxArea)
	c.Mesh.Attributes = r.boolKey("mesh", "attributes", c.Mesh.Attributes)
	c.Mesh.Quiet = r.boolKey("mesh", "quiet", c.Mesh.Quiet)
	c.TrianglePath = r.stringKey("mesh", "triangle_path", c.TrianglePath)

	c.GeometryTolerance = r.floatKey("geometry", "tolerance", c.GeometryTolerance)

	method := r.stringKey("solver", "method", c.Solver.Method.String())
	c.Solver.Penalty = r.floatKey("solver", "penalty", c.Solver.Penalty)
	c.Solver.PenaltyScale = r.floatKey("solver", "penalty_scale", c.Solver.PenaltyScale)
	c.Solver.PivotTolerance = r.floatKey("solver", "pivot_tolerance", c.Solver.PivotTolerance)

	c.Workers = r.intKey("assembly", "workers", c.Workers)
	c.PartitionSize = r.intKey("assembly", "partition_size", c.PartitionSize)
	strategy := r.stringKey("assembly", "strategy", c.Strategy.String())
	c.Backend = strings.ToLower(r.stringKey("assembly", "backend", c.Backend))
	c.Device = r.stringKey("assembly", "device", c.Device)

	level := r.stringKey("log", "level", c.LogLevel.String())
	c.LogFormat = strings.ToLower(r.stringKey("log", "format", c.LogFormat))
	if r.err != nil {
		return nil, r.err
	}

	var err error
	if c.Solver.Method, err = solver.ParseMethod(method); err != nil {
		return nil, err
	}
	if c.Strategy, err = partitions.ParseStrategy(strategy); err != nil {
		return nil, diag.Configurationf("[assembly] strategy: %v", err)
	}
	if c.LogLevel, err = log.ParseLevel(level); err != nil {
		return nil, diag.Configurationf("[log] level: %v", err)
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.Mesh.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if !(c.GeometryTolerance > 0) {
		return diag.Configurationf("[geometry] tolerance %g must be positive", c.GeometryTolerance)
	}
	if c.Workers < 0 {
		return diag.Configurationf("[assembly] workers %d is negative", c.Workers)
	}
	if c.PartitionSize < 1 {
		return diag.Configurationf("[assembly] partition_size %d must be positive", c.PartitionSize)
	}
	switch c.Backend {
	case BackendCPU, BackendOCCA:
	default:
		return diag.Configurationf("[assembly] unknown backend %q", c.Backend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return diag.Configurationf("[log] unknown format %q", c.LogFormat)
	}
	return nil
}

// AnalysisOptions maps the configuration onto pipeline options. The element
// kernel is left to the caller, which knows the compiled backends.
func (c *Config) AnalysisOptions(logger log.FieldLogger) analysis.Options {
	return analysis.Options{
		Mesh:              c.Mesh,
		Provider:          mesh.TriangleCLI{Path: c.TrianglePath, Logger: logger},
		GeometryTolerance: c.GeometryTolerance,
		Solver:            c.Solver,
		Workers:           c.Workers,
		PartitionSize:     c.PartitionSize,
		Strategy:          c.Strategy,
		Logger:            logger,
	}
}

// ConfigureLogger applies the [log] settings to logger.
func (c *Config) ConfigureLogger(logger *log.Logger) {
	logger.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
