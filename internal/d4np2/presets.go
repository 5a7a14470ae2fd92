package d4np2

import (
	"context"
	"fmt"
	"sort"
)

// Preset names accepted by ApplyPreset.
const (
	PresetSpeaker        = "speaker"
	PresetHeadset        = "headset"
	PresetSpeakerHeadset = "speaker_headset"
	PresetOff            = "off"
)

// baseSetting is shared by every preset: zero-cross input gain, soft-ramp
// stereo outputs, non-clip protection, receiver powered down, Line1 routed
// to both outputs.
func baseSetting() SettingInfo {
	path := PathSettings{
		Channel: Stereo,
		VolMode: VolumeSoftRamp,
		Mixer:   Mixer{Line1: true},
	}
	return SettingInfo{
		InputVolMode: VolumeZeroCross,
		Line1Gain:    24,
		Headphone:    path,
		Speaker:      path,
		Clip: ClipProtection{
			Mode:        NonClip,
			Distortion:  4,
			ReleaseTime: 3,
			AttackTime:  1,
		},
		ReceiverSwitch: true,
	}
}

// SpeakerOnly plays through the speaker at full volume with the headphone off.
func SpeakerOnly() SettingInfo {
	s := baseSetting()
	s.Speaker.Volume = 31
	return s
}

// HeadsetOnly plays through the headphone with the speaker off.
func HeadsetOnly() SettingInfo {
	s := baseSetting()
	s.Headphone.Volume = 15
	return s
}

// SpeakerHeadset plays through both outputs at mid volume.
func SpeakerHeadset() SettingInfo {
	s := baseSetting()
	s.Speaker.Volume = 15
	s.Headphone.Volume = 15
	return s
}

var presets = map[string]func() SettingInfo{
	PresetSpeaker:        SpeakerOnly,
	PresetHeadset:        HeadsetOnly,
	PresetSpeakerHeadset: SpeakerHeadset,
}

// PresetByName returns the settings of a named power-on preset. PresetOff has
// no settings and is not returned.
func PresetByName(name string) (SettingInfo, bool) {
	fn, ok := presets[name]
	if !ok {
		return SettingInfo{}, false
	}
	return fn(), true
}

// PresetNames lists every name ApplyPreset accepts, PresetOff included.
func PresetNames() []string {
	names := make([]string, 0, len(presets)+1)
	for n := range presets {
		names = append(names, n)
	}
	names = append(names, PresetOff)
	sort.Strings(names)
	return names
}

// ApplyPreset powers the amplifier on with the named preset, or off for
// PresetOff.
func (a *Amplifier) ApplyPreset(ctx context.Context, name string) error {
	if name == PresetOff {
		return a.PowerOff(ctx)
	}
	info, ok := PresetByName(name)
	if !ok {
		return fmt.Errorf("d4np2: unknown preset %q", name)
	}
	return a.PowerOn(ctx, info)
}
