package d4np2

import "sort"

// Field names a bitfield inside one of the device registers.
type Field struct {
	Reg   uint8 // register number (0-20)
	Mask  uint8 // bits occupied by the field, already shifted
	Shift uint8 // position of the field's least significant bit
}

// Encode builds a Field from its register number, mask and shift.
func Encode(reg, mask, shift uint8) Field {
	return Field{Reg: reg, Mask: mask, Shift: shift}
}

// Decode returns the register number, mask and shift of f.
func (f Field) Decode() (reg, mask, shift uint8) {
	return f.Reg, f.Mask, f.Shift
}

// Token packs f into the datasheet's 24-bit form:
// bits [23:16] register, [15:8] mask, [7:0] shift.
func (f Field) Token() uint32 {
	return uint32(f.Reg)<<16 | uint32(f.Mask)<<8 | uint32(f.Shift)
}

// FieldFromToken unpacks a 24-bit datasheet token. Bits above 23 are ignored.
func FieldFromToken(tok uint32) Field {
	return Field{
		Reg:   uint8(tok >> 16),
		Mask:  uint8(tok >> 8),
		Shift: uint8(tok),
	}
}

// Extract returns the value of f held in register byte b.
func (f Field) Extract(b byte) byte {
	return (b & f.Mask) >> f.Shift
}

// Insert returns b with f replaced by v. Bits of v outside the field are dropped.
func (f Field) Insert(b, v byte) byte {
	return (b &^ f.Mask) | ((v << f.Shift) & f.Mask)
}

// Width returns the largest value f can hold.
func (f Field) Width() byte {
	return f.Mask >> f.Shift
}

// Named fields from the D-4NP2 register map.
var (
	// #0 common power
	PDPC = Encode(0, 0x01, 0) // chip-level power down
	PDP  = Encode(0, 0x02, 1) // block-level power down

	// #2 headphone supply
	PDCHP = Encode(2, 0x01, 0) // charge pump power down
	PDREG = Encode(2, 0x04, 2) // regulator power down
	HIZHP = Encode(2, 0x08, 3) // headphone Hi-Z output

	// #3 speaker output / receiver
	HIZSPR = Encode(3, 0x04, 2)
	HIZSPL = Encode(3, 0x08, 3)
	PDREC  = Encode(3, 0x10, 4) // receiver power down
	PDSNT  = Encode(3, 0x80, 7) // shunt switch power down

	// #4, #5 speaker clip protection
	DPLT = Encode(4, 0x70, 4) // power limit
	DALC = Encode(4, 0x07, 0) // non-clip distortion
	DREL = Encode(5, 0x0C, 2) // release time
	DATT = Encode(5, 0x03, 0) // attack time

	// #7-#11 input gains
	MNX    = Encode(7, 0x1F, 0)
	ZCSMV  = Encode(7, 0x80, 7)
	SVLA   = Encode(8, 0x1F, 0)
	LATVA  = Encode(8, 0x20, 5)
	ZCSSVA = Encode(8, 0x80, 7)
	SVRA   = Encode(9, 0x1F, 0)
	SVLB   = Encode(10, 0x1F, 0)
	LATVB  = Encode(10, 0x20, 5)
	ZCSSVB = Encode(10, 0x80, 7)
	SVRB   = Encode(11, 0x1F, 0)

	// #12 headphone mixer
	HPLBMIX = Encode(12, 0x01, 0)
	HPLAMIX = Encode(12, 0x02, 1)
	HPLMMIX = Encode(12, 0x04, 2)
	MONOHP  = Encode(12, 0x08, 3)
	HPRBMIX = Encode(12, 0x10, 4)
	HPRAMIX = Encode(12, 0x20, 5)
	HPRMMIX = Encode(12, 0x40, 6)

	// #13 speaker mixer
	SPLBMIX = Encode(13, 0x01, 0)
	SPLAMIX = Encode(13, 0x02, 1)
	SPLMMIX = Encode(13, 0x04, 2)
	MONOSP  = Encode(13, 0x08, 3)
	SPRBMIX = Encode(13, 0x10, 4)
	SPRAMIX = Encode(13, 0x20, 5)
	SPRMMIX = Encode(13, 0x40, 6)
	SWAPSP  = Encode(13, 0x80, 7)

	// #14 speaker volume
	MNA    = Encode(14, 0x1F, 0)
	SVOLSP = Encode(14, 0x40, 6)
	ZCSSPA = Encode(14, 0x80, 7)

	// #15, #16 headphone volume
	SALA   = Encode(15, 0x1F, 0)
	LATHP  = Encode(15, 0x20, 5)
	SVOLHP = Encode(15, 0x40, 6)
	ZCSHPA = Encode(15, 0x80, 7)
	SARA   = Encode(16, 0x1F, 0)

	// #17 protection status
	OTPERR = Encode(17, 0x40, 6)
	OCPERR = Encode(17, 0x80, 7)
)

var fieldsByName = map[string]Field{
	"PDPC": PDPC, "PDP": PDP,
	"PD_CHP": PDCHP, "PD_REG": PDREG, "HIZ_HP": HIZHP,
	"HIZ_SPR": HIZSPR, "HIZ_SPL": HIZSPL, "PD_REC": PDREC, "PD_SNT": PDSNT,
	"DPLT": DPLT, "DALC": DALC, "DREL": DREL, "DATT": DATT,
	"MNX": MNX, "ZCS_MV": ZCSMV,
	"SVLA": SVLA, "LAT_VA": LATVA, "ZCS_SVA": ZCSSVA, "SVRA": SVRA,
	"SVLB": SVLB, "LAT_VB": LATVB, "ZCS_SVB": ZCSSVB, "SVRB": SVRB,
	"HPL_BMIX": HPLBMIX, "HPL_AMIX": HPLAMIX, "HPL_MMIX": HPLMMIX, "MONO_HP": MONOHP,
	"HPR_BMIX": HPRBMIX, "HPR_AMIX": HPRAMIX, "HPR_MMIX": HPRMMIX,
	"SPL_BMIX": SPLBMIX, "SPL_AMIX": SPLAMIX, "SPL_MMIX": SPLMMIX, "MONO_SP": MONOSP,
	"SPR_BMIX": SPRBMIX, "SPR_AMIX": SPRAMIX, "SPR_MMIX": SPRMMIX, "SWAP_SP": SWAPSP,
	"MNA": MNA, "SVOL_SP": SVOLSP, "ZCS_SPA": ZCSSPA,
	"SALA": SALA, "LAT_HP": LATHP, "SVOL_HP": SVOLHP, "ZCS_HPA": ZCSHPA, "SARA": SARA,
	"OTP_ERR": OTPERR, "OCP_ERR": OCPERR,
}

// FieldByName looks up a field by its datasheet name (e.g. "PD_REC").
func FieldByName(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// FieldNames returns all datasheet field names in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(fieldsByName))
	for n := range fieldsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
