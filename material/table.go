package material

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/notargets/slopefem/diag"
)

// Table is a validated set of materials addressable by id and by name. It
// keeps insertion order; the first inserted material is the default for
// triangles that carry no region tag.
type Table struct {
	order  []Material
	byID   map[int]int
	byName map[string]int
}

func NewTable() *Table {
	return &Table{byID: make(map[int]int), byName: make(map[string]int)}
}

// NewTableFrom inserts materials in order and stops at the first invalid one.
func NewTableFrom(materials ...Material) (*Table, error) {
	t := NewTable()
	for _, m := range materials {
		if err := t.Add(m); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Add validates m and inserts it. Duplicate ids or names are rejected.
func (t *Table) Add(m Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, dup := t.byID[m.ID]; dup {
		return diag.Configurationf("duplicate material id %d", m.ID)
	}
	if _, dup := t.byName[m.Name]; dup {
		return diag.Configurationf("duplicate material name %q", m.Name)
	}
	t.byID[m.ID] = len(t.order)
	t.byName[m.Name] = len(t.order)
	t.order = append(t.order, m)
	return nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

func (t *Table) ByID(id int) (Material, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Material{}, false
	}
	return t.order[i], true
}

func (t *Table) ByName(name string) (Material, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Material{}, false
	}
	return t.order[i], true
}

// Default returns the first inserted material.
func (t *Table) Default() (Material, bool) {
	if t.Len() == 0 {
		return Material{}, false
	}
	return t.order[0], true
}

// Resolve turns a region tag into a material. Tags are material ids written
// as numbers, as a mesh generator emits region attributes; a tag that does not
// parse as an id is looked up by name.
func (t *Table) Resolve(tag string) (Material, error) {
	tag = strings.TrimSpace(tag)
	if f, err := strconv.ParseFloat(tag, 64); err == nil && f == float64(int(f)) {
		if m, ok := t.ByID(int(f)); ok {
			return m, nil
		}
		return Material{}, diag.MaterialNotFound(tag)
	}
	if m, ok := t.ByName(tag); ok {
		return m, nil
	}
	return Material{}, diag.MaterialNotFound(tag)
}

// Materials returns the materials in insertion order.
func (t *Table) Materials() []Material {
	if t == nil {
		return nil
	}
	out := make([]Material, len(t.order))
	copy(out, t.order)
	return out
}

// MarshalJSON encodes the table as an ordered array of materials.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Materials())
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var list []Material
	if err := json.Unmarshal(data, &list); err != nil {
		return diag.Configurationf("materials: %v", err)
	}
	tbl, err := NewTableFrom(list...)
	if err != nil {
		return err
	}
	*t = *tbl
	return nil
}
