// Package models defines the JSON data structures of the ampctl daemon:
// the state snapshot served by the API, operator configuration and request bodies.
package models

import "github.com/micro-nova/ampctl/internal/d4np2"

// State is the amplifier snapshot returned by GET /api and pushed over SSE.
type State struct {
	Speaker    string `json:"speaker"`   // "on" | "off"
	Headphone  string `json:"headphone"` // "on" | "off"
	Receiver   bool   `json:"receiver"`  // receiver powered
	Registers  []int  `json:"registers"` // register shadow, index = register number
	LastPreset string `json:"last_preset,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Faults     Faults `json:"faults"`
	Info       Info   `json:"info"`
}

// Info is the daemon information block.
type Info struct {
	Version string `json:"version"`
	Mock    bool   `json:"mock"`
}

// NewState builds a snapshot from an amplifier status.
func NewState(st d4np2.Status) State {
	regs := make([]int, len(st.Registers))
	for i, b := range st.Registers {
		regs[i] = int(b)
	}
	return State{
		Speaker:   st.Speaker.String(),
		Headphone: st.Headphone.String(),
		Receiver:  st.Receiver,
		Registers: regs,
	}
}

// DeepCopy returns a copy of s that shares no memory with it.
func (s State) DeepCopy() State {
	next := s
	next.Registers = append([]int(nil), s.Registers...)
	return next
}
