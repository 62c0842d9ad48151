package diag

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Kind identifies a non-fatal condition the pipeline recovered from.
type Kind string

const (
	GeometricDegeneracy Kind = "geometric_degeneracy"
	MaterialResolution  Kind = "material_resolution"
	WindingNormalized   Kind = "winding_normalized"
	UnmatchedSegment    Kind = "unmatched_segment"
)

// Warning is one entry of the diagnostics side channel. Element and Segment
// are -1 when they do not apply.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Element int    `json:"element"`
	Segment int    `json:"segment"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Element >= 0:
		return fmt.Sprintf("%s: element %d: %s", w.Kind, w.Element, w.Message)
	case w.Segment >= 0:
		return fmt.Sprintf("%s: segment %d: %s", w.Kind, w.Segment, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Collector accumulates warnings for a single run. It is owned by one
// goroutine; parallel stages report through their return values.
type Collector struct {
	Logger   log.FieldLogger
	warnings []Warning
}

// NewCollector returns a collector that also logs every warning to logger.
// A nil logger disables logging.
func NewCollector(logger log.FieldLogger) *Collector {
	return &Collector{Logger: logger}
}

// ElementWarning records a warning attached to a triangle.
func (c *Collector) ElementWarning(kind Kind, element int, format string, args ...any) {
	c.Add(Warning{Kind: kind, Element: element, Segment: -1, Message: fmt.Sprintf(format, args...)})
}

// SegmentWarning records a warning attached to a PSLG segment.
func (c *Collector) SegmentWarning(kind Kind, segment int, format string, args ...any) {
	c.Add(Warning{Kind: kind, Element: -1, Segment: segment, Message: fmt.Sprintf(format, args...)})
}

// Add records w. A nil collector discards it.
func (c *Collector) Add(w Warning) {
	if c == nil {
		return
	}
	c.warnings = append(c.warnings, w)
	if c.Logger != nil {
		c.Logger.WithFields(log.Fields{
			"kind":    w.Kind,
			"element": w.Element,
			"segment": w.Segment,
		}).Warn(w.Message)
	}
}

// Warnings returns a copy of the collected warnings in insertion order.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Count returns the number of warnings of the given kind.
func (c *Collector) Count(kind Kind) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, w := range c.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.warnings)
}
