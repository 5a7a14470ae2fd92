package models

// ValueUpdate is the PUT body for register and field writes.
type ValueUpdate struct {
	Value *int `json:"value"`
}

// RegisterValue is one register of the device.
type RegisterValue struct {
	Reg   int `json:"reg"`
	Value int `json:"value"`
}

// FieldValue describes a named bitfield and its current value.
type FieldValue struct {
	Name  string `json:"name"`
	Reg   int    `json:"reg"`
	Mask  int    `json:"mask"`
	Shift int    `json:"shift"`
	Token string `json:"token"` // 24-bit datasheet form, hex
	Value int    `json:"value"`
}

// PresetInfo lists a preset in GET /api/presets.
type PresetInfo struct {
	Name    string `json:"name"`
	Builtin bool   `json:"builtin"`
}

// Faults is the protection status of the device.
type Faults struct {
	OverTemp    bool `json:"over_temp"`
	OverCurrent bool `json:"over_current"`
}
