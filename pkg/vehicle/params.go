package vehicle

// Param is one entry of the fake parameter table
type Param struct {
	ID    string
	Value float32
}

// ParamTable is the read-only parameter set reported to ground stations
type ParamTable struct {
	params []Param
	index  map[string]int
}

// Parameters a ground station commonly inspects on an ArduCopter quad
var defaultParams = []Param{
	{"SYSID_THISMAV", 1},
	{"SYSID_MYGCS", 255},
	{"FRAME_CLASS", 1},
	{"FRAME_TYPE", 1},
	{"ARMING_CHECK", 1},
	{"BATT_CAPACITY", 5200},
	{"BATT_MONITOR", 4},
	{"FENCE_ENABLE", 0},
	{"FS_THR_ENABLE", 1},
	{"GPS_TYPE", 1},
	{"RTL_ALT", 1500},
	{"WPNAV_SPEED", 500},
	{"PILOT_SPEED_UP", 250},
	{"FLTMODE1", 0},
	{"FLTMODE2", 5},
	{"FLTMODE3", 6},
}

// NewParamTable builds a table from params. A nil or empty slice yields the
// default table.
func NewParamTable(params []Param) *ParamTable {
	if len(params) == 0 {
		params = defaultParams
	}
	t := &ParamTable{
		params: make([]Param, len(params)),
		index:  make(map[string]int, len(params)),
	}
	copy(t.params, params)
	for i, p := range t.params {
		t.index[p.ID] = i
	}
	return t
}

// Len returns the number of parameters
func (t *ParamTable) Len() int {
	return len(t.params)
}

// At returns the parameter at index i
func (t *ParamTable) At(i int) (Param, bool) {
	if i < 0 || i >= len(t.params) {
		return Param{}, false
	}
	return t.params[i], true
}

// Lookup finds a parameter by name and returns it with its index
func (t *ParamTable) Lookup(id string) (Param, int, bool) {
	i, ok := t.index[id]
	if !ok {
		return Param{}, -1, false
	}
	return t.params[i], i, true
}

// All returns a copy of every parameter in index order
func (t *ParamTable) All() []Param {
	out := make([]Param, len(t.params))
	copy(out, t.params)
	return out
}
