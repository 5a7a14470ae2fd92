// Package d4np2 drives the D-4NP2 (YDA160) audio power amplifier: a software
// shadow of its register file, bit- and byte-level register access, and the
// power sequencer that brings the receiver, speaker and headphone outputs up
// and down without audible pops.
package d4np2

import (
	"context"
	"time"
)

// Register numbers.
const (
	RegPower       uint8 = 0  // PDPC, PDP
	RegHPSupply    uint8 = 2  // PD_CHP, PD_REG, HIZ_HP
	RegSpeakerOut  uint8 = 3  // HIZ_SPR/L, PD_REC, PD_SNT
	RegClipLimit   uint8 = 4  // DPLT, DALC
	RegClipTiming  uint8 = 5  // DREL, DATT
	RegMinGain     uint8 = 7  // MNX, ZCS_MV
	RegLine1GainL  uint8 = 8  // SVLA, LAT_VA, ZCS_SVA
	RegLine1GainR  uint8 = 9  // SVRA
	RegLine2GainL  uint8 = 10 // SVLB, LAT_VB, ZCS_SVB
	RegLine2GainR  uint8 = 11 // SVRB
	RegHPMixer     uint8 = 12
	RegSpeakerMix  uint8 = 13
	RegSpeakerVol  uint8 = 14 // MNA, SVOL_SP, ZCS_SPA
	RegHPVolLeft   uint8 = 15 // SALA, LAT_HP, SVOL_HP, ZCS_HPA
	RegHPVolRight  uint8 = 16 // SARA
	RegProtection  uint8 = 17 // OTP_ERR, OCP_ERR (read only)
	NumRegisters         = 21
	inputGainCount       = 5 // registers #7-#11
)

// Register access bounds. Writes at or above MaxWriteRegister and reads at or
// above MaxReadRegister are rejected without touching the bus.
const (
	MaxWriteRegister uint8 = 19
	MaxReadRegister  uint8 = 20
)

// Timing requirements from the datasheet.
const (
	ChargePumpWakeTime = 500 * time.Microsecond
	VrefChargeTime     = 6 * time.Millisecond
)

// MaxVolume is the largest gain/volume code for any 5-bit level field.
const MaxVolume uint8 = 0x1F

// volumeMask covers the level bits of the gain and volume registers.
const volumeMask byte = 0x1F

// gainControlMask covers the non-level bits (ZCS, LAT) of the gain registers.
const gainControlMask byte = 0xE0

// Shadow mirrors the device register file.
type Shadow [NumRegisters]byte

// DefaultShadow holds the register values the device reports after reset.
var DefaultShadow = Shadow{
	0x03,
	0x07, 0x07, 0x93, 0x00, 0x0D,
	0x00, 0x80, 0x80, 0x00, 0x80,
	0x00, 0x00, 0x00, 0x40, 0x40,
	0x00, 0x00, 0x00, 0x00, 0x00,
}

// Transport is the single-byte register bus the device sits on.
// Implementations are blocking and need not be reentrant.
type Transport interface {
	Write(ctx context.Context, reg uint8, val byte) error
	Read(ctx context.Context, reg uint8) (byte, error)
}

// Clock provides the fixed settling waits of the power sequence.
type Clock interface {
	Sleep(d time.Duration)
}

type sleepClock struct{}

func (sleepClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
