package d4np2

import (
	"errors"
	"fmt"
)

// VolumeMode selects how the device applies volume changes.
type VolumeMode uint8

const (
	VolumeDirect    VolumeMode = iota // immediate change
	VolumeZeroCross                   // mute/change at signal zero crossings
	VolumeSoftRamp                    // stepped ramp, SoftVolumeStep per code
)

func (m VolumeMode) String() string {
	switch m {
	case VolumeDirect:
		return "direct"
	case VolumeZeroCross:
		return "zero-cross"
	case VolumeSoftRamp:
		return "soft-ramp"
	default:
		return fmt.Sprintf("VolumeMode(%d)", uint8(m))
	}
}

// flags returns the ZCS and SVOL bits for m. At most one is set.
func (m VolumeMode) flags() (zcs, svol byte) {
	switch m {
	case VolumeZeroCross:
		return 1, 0
	case VolumeSoftRamp:
		return 0, 1
	default:
		return 0, 0
	}
}

// ChannelMode selects stereo or mono output on a path.
type ChannelMode uint8

const (
	Stereo ChannelMode = iota
	Mono
)

// ClipMode selects the speaker protection scheme.
type ClipMode uint8

const (
	PowerLimit ClipMode = iota
	NonClip
)

// Mixer enables the three input channels on an output path.
type Mixer struct {
	Min   bool `json:"min"`
	Line1 bool `json:"line1"`
	Line2 bool `json:"line2"`
}

// Any reports whether at least one input is mixed in.
func (m Mixer) Any() bool { return m.Min || m.Line1 || m.Line2 }

// ClipProtection configures the speaker non-clip / power-limit circuit.
type ClipProtection struct {
	Mode        ClipMode `json:"mode"`
	PowerLimit  uint8    `json:"power_limit"` // DPLT, 0-7
	Distortion  uint8    `json:"distortion"`  // DALC, 0-7
	ReleaseTime uint8    `json:"release"`     // DREL, 0-3
	AttackTime  uint8    `json:"attack"`      // DATT, 0-3
}

// PathSettings configures one output path.
type PathSettings struct {
	Channel ChannelMode `json:"channel"`
	VolMode VolumeMode  `json:"vol_mode"`
	Mixer   Mixer       `json:"mixer"`
	Volume  uint8       `json:"volume"` // 0-31, 0 powers the path off
}

// SettingInfo is one power-on request. It is consumed by a single PowerOn call.
type SettingInfo struct {
	InputVolMode VolumeMode `json:"input_vol_mode"` // only VolumeZeroCross has an effect
	MinGain      uint8      `json:"min_gain"`
	Line1Gain    uint8      `json:"line1_gain"`
	Line2Gain    uint8      `json:"line2_gain"`

	Headphone PathSettings `json:"headphone"`

	Speaker     PathSettings   `json:"speaker"`
	SpeakerSwap bool           `json:"speaker_swap"`
	Clip        ClipProtection `json:"clip"`

	// ReceiverSwitch powers the receiver down when true.
	ReceiverSwitch bool `json:"receiver_switch"`
}

// Validate checks every field against its register width.
func (s SettingInfo) Validate() error {
	var errs []error
	level := func(name string, v uint8) {
		if v > MaxVolume {
			errs = append(errs, fmt.Errorf("%s %d out of range 0-%d", name, v, MaxVolume))
		}
	}
	limit := func(name string, v, hi uint8) {
		if v > hi {
			errs = append(errs, fmt.Errorf("%s %d out of range 0-%d", name, v, hi))
		}
	}
	level("min_gain", s.MinGain)
	level("line1_gain", s.Line1Gain)
	level("line2_gain", s.Line2Gain)
	level("headphone.volume", s.Headphone.Volume)
	level("speaker.volume", s.Speaker.Volume)
	limit("input_vol_mode", uint8(s.InputVolMode), uint8(VolumeSoftRamp))
	limit("headphone.vol_mode", uint8(s.Headphone.VolMode), uint8(VolumeSoftRamp))
	limit("speaker.vol_mode", uint8(s.Speaker.VolMode), uint8(VolumeSoftRamp))
	limit("headphone.channel", uint8(s.Headphone.Channel), uint8(Mono))
	limit("speaker.channel", uint8(s.Speaker.Channel), uint8(Mono))
	limit("clip.mode", uint8(s.Clip.Mode), uint8(NonClip))
	limit("clip.power_limit", s.Clip.PowerLimit, DPLT.Width())
	limit("clip.distortion", s.Clip.Distortion, DALC.Width())
	limit("clip.release", s.Clip.ReleaseTime, DREL.Width())
	limit("clip.attack", s.Clip.AttackTime, DATT.Width())
	return errors.Join(errs...)
}

// inputsSilent reports whether every input gain is zero.
func (s SettingInfo) inputsSilent() bool {
	return s.MinGain == 0 && s.Line1Gain == 0 && s.Line2Gain == 0
}

func bit(b bool) byte {
	if b {
		return 1
	}
	return 0
}
