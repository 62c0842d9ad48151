package mesh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notargets/slopefem/diag"
)

// Options are the mesh quality controls, expressed the way Triangle takes
// them on the command line.
type Options struct {
	ConformPSLG bool    // p: triangulate the PSLG, honoring segments
	MinAngle    float64 // q: minimum interior angle in degrees, 0 disables
	MaxArea     float64 // a: maximum triangle area, 0 disables
	Attributes  bool    // A: propagate region attributes to triangles
	Quiet       bool    // Q
}

// DefaultOptions matches the switch string "pq30a1A".
func DefaultOptions() Options {
	return Options{
		ConformPSLG: true,
		MinAngle:    30,
		MaxArea:     1,
		Attributes:  true,
	}
}

// Validate rejects quality bounds Triangle would not terminate with.
func (o Options) Validate() error {
	if o.MinAngle < 0 || o.MinAngle > 34 {
		return diag.Configurationf("minimum angle %g outside [0, 34] degrees", o.MinAngle)
	}
	if o.MaxArea < 0 {
		return diag.Configurationf("maximum area %g is negative", o.MaxArea)
	}
	return nil
}

// Switches renders o as a Triangle switch string, e.g. "pq30a10A".
func (o Options) Switches() string {
	var sb strings.Builder
	if o.ConformPSLG {
		sb.WriteString("p")
	}
	if o.MinAngle > 0 {
		sb.WriteString("q")
		sb.WriteString(strconv.FormatFloat(o.MinAngle, 'g', -1, 64))
	}
	if o.MaxArea > 0 {
		sb.WriteString("a")
		sb.WriteString(strconv.FormatFloat(o.MaxArea, 'g', -1, 64))
	}
	if o.Attributes {
		sb.WriteString("A")
	}
	if o.Quiet {
		sb.WriteString("Q")
	}
	return sb.String()
}

func (o Options) String() string { return o.Switches() }

// ParseSwitches reads a switch string of the form Switches produces. A leading
// '-' is accepted. A bare 'q' means Triangle's default of 20 degrees.
func ParseSwitches(s string) (Options, error) {
	var o Options
	s = strings.TrimPrefix(strings.TrimSpace(s), "-")
	for i := 0; i < len(s); {
		c := s[i]
		i++
		switch c {
		case 'p':
			o.ConformPSLG = true
		case 'A':
			o.Attributes = true
		case 'Q':
			o.Quiet = true
		case 'q', 'a':
			j := i
			for j < len(s) && (s[j] == '.' || s[j] == 'e' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			val := 0.0
			if j > i {
				v, err := strconv.ParseFloat(s[i:j], 64)
				if err != nil {
					return Options{}, diag.Configurationf("switch %c: %v", c, err)
				}
				val = v
			} else if c == 'q' {
				val = 20
			} else {
				return Options{}, diag.Configurationf("switch a needs an area")
			}
			if c == 'q' {
				o.MinAngle = val
			} else {
				o.MaxArea = val
			}
			i = j
		default:
			return Options{}, diag.Configurationf("unsupported switch %q in %q", string(c), s)
		}
	}
	return o, o.Validate()
}

// MustParseSwitches is ParseSwitches for constant switch strings.
func MustParseSwitches(s string) Options {
	o, err := ParseSwitches(s)
	if err != nil {
		panic(fmt.Sprintf("mesh switches %q: %v", s, err))
	}
	return o
}
