package d4np2

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// PathState is the power state of the speaker or headphone path.
type PathState uint8

const (
	PoweredOff PathState = iota
	PoweredOn
)

func (p PathState) String() string {
	if p == PoweredOn {
		return "on"
	}
	return "off"
}

// Amplifier owns the register shadow and output path states of one D-4NP2
// and sequences power transitions on it. PowerOn, PowerOff and the register
// accessors hold a single mutex for their full duration, waits included.
type Amplifier struct {
	mu        sync.Mutex
	regs      *RegisterMap
	clock     Clock
	speaker   PathState
	headphone PathState

	shuntSwitch  bool
	speakerHiZ   bool
	headphoneHiZ bool
	mapOpts      []MapOption
}

// Option configures an Amplifier.
type Option func(*Amplifier)

// WithClock replaces the real-time clock used for settling waits.
func WithClock(c Clock) Option {
	return func(a *Amplifier) { a.clock = c }
}

// WithShuntSwitch selects the PD_SNT level written when the receiver powers
// down: 0 (shunt switch in use) when true, 1 when false. Default true.
func WithShuntSwitch(on bool) Option {
	return func(a *Amplifier) { a.shuntSwitch = on }
}

// WithSpeakerHiZ drives the speaker outputs Hi-Z while powered on.
func WithSpeakerHiZ(on bool) Option {
	return func(a *Amplifier) { a.speakerHiZ = on }
}

// WithHeadphoneHiZ drives the headphone output Hi-Z while powered on.
func WithHeadphoneHiZ(on bool) Option {
	return func(a *Amplifier) { a.headphoneHiZ = on }
}

// WithMapOptions passes options through to the underlying RegisterMap.
func WithMapOptions(opts ...MapOption) Option {
	return func(a *Amplifier) { a.mapOpts = append(a.mapOpts, opts...) }
}

// New creates an Amplifier on transport t. Both paths start powered off and
// the shadow starts from DefaultShadow.
func New(t Transport, opts ...Option) *Amplifier {
	a := &Amplifier{
		clock:       sleepClock{},
		shuntSwitch: true,
	}
	for _, o := range opts {
		o(a)
	}
	a.regs = NewRegisterMap(t, a.mapOpts...)
	return a
}

// Policy is the board wiring an Amplifier is configured for.
type Policy struct {
	ShuntSwitch  bool
	SpeakerHiZ   bool
	HeadphoneHiZ bool
	Batch        BatchPolicy
}

// SetPolicy changes the board policy. It takes effect from the next
// sequence and waits for a running one to finish.
func (a *Amplifier) SetPolicy(p Policy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shuntSwitch = p.ShuntSwitch
	a.speakerHiZ = p.SpeakerHiZ
	a.headphoneHiZ = p.HeadphoneHiZ
	a.regs.SetBatchPolicy(p.Batch)
}

// sequence collects the register failures of one PowerOn/PowerOff call.
// Failures do not stop the sequence.
type sequence struct {
	ctx  context.Context
	a    *Amplifier
	regs *RegisterMap
	errs []error
}

// begin detaches the sequence from ctx cancellation: once started, a power
// sequence always runs to completion so path states match the registers.
// Context values are kept.
func (a *Amplifier) begin(ctx context.Context) *sequence {
	return &sequence{ctx: context.WithoutCancel(ctx), a: a, regs: a.regs}
}

func (s *sequence) check(err error) {
	if err != nil {
		s.errs = append(s.errs, err)
	}
}

func (s *sequence) err() error { return errors.Join(s.errs...) }

func (s *sequence) wait(d time.Duration) {
	if d > 0 {
		s.a.clock.Sleep(d)
	}
}

func (s *sequence) setField(f Field, v byte) { s.check(s.regs.WriteField(s.ctx, f, v)) }

type fieldValue struct {
	f Field
	v byte
}

func set(f Field, v byte) fieldValue { return fieldValue{f, v} }

// compose builds a register byte from field values, starting from zero.
func compose(fvs ...fieldValue) byte {
	var b byte
	for _, fv := range fvs {
		b = fv.f.Insert(b, fv.v)
	}
	return b
}

// PowerOn brings the common, input and output blocks up according to info.
// Register failures are reported and returned joined; the sequence itself
// runs to completion.
func (a *Amplifier) PowerOn(ctx context.Context, info SettingInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.begin(ctx)
	s.powerOnCommon()
	if s.regs.Cached(RegPower)&(PDPC.Mask|PDP.Mask) != 0 {
		slog.Warn("d4np2: common block did not power up, halting power-on",
			"reg0", s.regs.Cached(RegPower))
		return s.err()
	}
	s.powerOnInput(&info)
	s.powerOnOutput(&info)
	slog.Debug("d4np2: power on complete",
		"speaker", a.speaker, "headphone", a.headphone,
		"receiver_switch", info.ReceiverSwitch)
	return s.err()
}

// PowerOff tears the device down: outputs, then inputs, then the common block.
func (a *Amplifier) PowerOff(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.begin(ctx)
	s.powerOffOutput()
	s.powerOffInput()
	s.powerOffCommon()
	slog.Debug("d4np2: power off complete")
	return s.err()
}

func (s *sequence) powerOnCommon() {
	if s.regs.CachedField(PDPC) == 1 {
		s.setField(PDPC, 0)
	}
	if s.regs.CachedField(PDP) == 1 {
		s.setField(PDP, 0)
	}
}

func (s *sequence) powerOffCommon() {
	if s.regs.CachedField(PDP) == 0 {
		s.setField(PDP, 1)
	}
	s.setField(PDPC, 1)
}

// gainChange decides what a change of an input channel's gain from current
// to target requires: whether the channel must be removed from both mixers,
// and whether the outputs must be powered off before the gain is written.
func gainChange(target, current uint8) (mute, outputOff bool) {
	switch {
	case target == current:
		return target == 0, false
	case target == 0:
		return true, true
	case current == 0:
		// a channel coming up from zero: outputs off, routing kept
		return false, true
	case target < current:
		// A downward change on a live channel powers the outputs off around
		// the gain write but keeps the channel routed, so the requested
		// mixer survives the change.
		return false, true
	default:
		return false, false
	}
}

func (s *sequence) powerOnInput(info *SettingInfo) {
	channels := []struct {
		name   string
		target uint8
		gain   Field
		sp, hp *bool
	}{
		{"min", info.MinGain, MNX, &info.Speaker.Mixer.Min, &info.Headphone.Mixer.Min},
		{"line1", info.Line1Gain, SVLA, &info.Speaker.Mixer.Line1, &info.Headphone.Mixer.Line1},
		{"line2", info.Line2Gain, SVLB, &info.Speaker.Mixer.Line2, &info.Headphone.Mixer.Line2},
	}
	outputOff := false
	for _, ch := range channels {
		mute, off := gainChange(ch.target, s.regs.CachedField(ch.gain))
		if mute {
			*ch.sp, *ch.hp = false, false
		}
		if off {
			slog.Debug("d4np2: input gain change needs outputs off", "channel", ch.name)
			outputOff = true
		}
	}
	if outputOff {
		s.powerOffOutput()
	}

	zcs, _ := info.InputVolMode.flags()
	s.check(s.regs.WriteRegisters(s.ctx, RegMinGain, []byte{
		compose(set(ZCSMV, zcs), set(MNX, info.MinGain)),
		compose(set(ZCSSVA, zcs), set(LATVA, 1), set(SVLA, info.Line1Gain)),
		compose(set(SVRA, info.Line1Gain)),
		compose(set(ZCSSVB, zcs), set(LATVB, 1), set(SVLB, info.Line2Gain)),
		compose(set(SVRB, info.Line2Gain)),
	}))
	s.wait(VrefChargeTime)
}

// powerOffInput zeroes every input gain, keeping the ZCS and LAT bits.
func (s *sequence) powerOffInput() {
	vals := make([]byte, inputGainCount)
	for i := range vals {
		vals[i] = s.regs.Cached(RegMinGain+uint8(i)) & gainControlMask
	}
	s.check(s.regs.WriteRegisters(s.ctx, RegMinGain, vals))
}

func (s *sequence) powerOnOutput(info *SettingInfo) {
	receiverOff := s.regs.CachedField(PDREC) == 1
	if !info.ReceiverSwitch {
		if receiverOff {
			s.powerOnReceiver()
		}
	} else if !receiverOff {
		s.powerOffReceiver()
	}

	if info.Speaker.Volume == 0 || !info.Speaker.Mixer.Any() || info.inputsSilent() {
		s.powerOffSpeaker()
	} else {
		s.powerOnSpeaker(info)
	}

	if info.Headphone.Volume == 0 || !info.Headphone.Mixer.Any() || info.inputsSilent() {
		s.powerOffHeadphone()
	} else {
		s.powerOnHeadphone(info)
	}

	if s.a.speaker == PoweredOff && s.a.headphone == PoweredOff {
		s.powerOffInput()
		s.setField(PDP, 1)
	}
}

func (s *sequence) powerOffOutput() {
	if s.regs.CachedField(PDREC) == 0 {
		s.powerOffReceiver()
	}
	if s.a.speaker == PoweredOn {
		s.powerOffSpeaker()
	}
	if s.a.headphone == PoweredOn {
		s.powerOffHeadphone()
	}
}

func (s *sequence) powerOnReceiver() {
	s.setField(PDSNT, 1)
	s.setField(PDREC, 0)
}

func (s *sequence) powerOffReceiver() {
	s.setField(PDREC, 1)
	s.setField(PDSNT, bit(!s.a.shuntSwitch))
}

func speakerMixer(info *SettingInfo) byte {
	m := info.Speaker.Mixer
	return compose(
		set(SWAPSP, bit(info.SpeakerSwap)),
		set(SPRMMIX, bit(m.Min)), set(SPRAMIX, bit(m.Line1)), set(SPRBMIX, bit(m.Line2)),
		set(MONOSP, byte(info.Speaker.Channel)),
		set(SPLMMIX, bit(m.Min)), set(SPLAMIX, bit(m.Line1)), set(SPLBMIX, bit(m.Line2)),
	)
}

func headphoneMixer(info *SettingInfo) byte {
	m := info.Headphone.Mixer
	return compose(
		set(HPRMMIX, bit(m.Min)), set(HPRAMIX, bit(m.Line1)), set(HPRBMIX, bit(m.Line2)),
		set(MONOHP, byte(info.Headphone.Channel)),
		set(HPLMMIX, bit(m.Min)), set(HPLAMIX, bit(m.Line1)), set(HPLBMIX, bit(m.Line2)),
	)
}

func speakerVolume(vol, zcs, svol byte) byte {
	return compose(set(ZCSSPA, zcs), set(SVOLSP, svol), set(MNA, vol))
}

func (s *sequence) powerOnSpeaker(info *SettingInfo) {
	hiz := bit(s.a.speakerHiZ)
	out := compose(set(HIZSPL, hiz), set(HIZSPR, hiz)) | s.regs.Cached(RegSpeakerOut)&^(HIZSPL.Mask|HIZSPR.Mask)
	var limit byte
	if info.Clip.Mode == NonClip {
		limit = compose(set(DALC, info.Clip.Distortion))
	} else {
		limit = compose(set(DPLT, info.Clip.PowerLimit))
	}
	timing := compose(set(DREL, info.Clip.ReleaseTime), set(DATT, info.Clip.AttackTime))
	s.check(s.regs.WriteRegisters(s.ctx, RegSpeakerOut, []byte{out, limit, timing}))

	zcs, svol := info.Speaker.VolMode.flags()
	mixer := speakerMixer(info)
	prev := s.regs.CachedField(MNA)

	if s.a.speaker == PoweredOn && mixer != s.regs.Cached(RegSpeakerMix) {
		// mute before remixing a live output
		err := s.regs.WriteRegister(s.ctx, RegSpeakerVol, speakerVolume(0, zcs, svol))
		prev = s.rampTo(err, svol, prev, 0)
	}

	target := info.Speaker.Volume & volumeMask
	err := s.regs.WriteRegisters(s.ctx, RegSpeakerMix, []byte{mixer, speakerVolume(target, zcs, svol)})
	s.rampTo(err, svol, prev, target)
	s.a.speaker = PoweredOn
}

func (s *sequence) powerOffSpeaker() {
	prev := s.regs.CachedField(MNA)
	svol := s.regs.CachedField(SVOLSP)
	s.rampTo(s.regs.WriteField(s.ctx, MNA, 0), svol, prev, 0)
	s.check(s.regs.WriteRegister(s.ctx, RegSpeakerMix, s.regs.Cached(RegSpeakerMix)&SWAPSP.Mask))
	s.a.speaker = PoweredOff
}

func (s *sequence) setHeadphoneVolume(prev, target, zcs, svol byte) byte {
	err := s.regs.WriteRegisters(s.ctx, RegHPVolLeft, []byte{
		compose(set(ZCSHPA, zcs), set(SVOLHP, svol), set(LATHP, 1), set(SALA, target)),
		compose(set(SARA, target)),
	})
	return s.rampTo(err, svol, prev, target)
}

func (s *sequence) powerOnHeadphone(info *SettingInfo) {
	if s.regs.CachedField(PDREG) == 1 {
		s.setField(PDREG, 0)
	}
	if s.regs.CachedField(PDCHP) == 1 {
		supply := PDCHP.Insert(s.regs.Cached(RegHPSupply), 0)
		if s.a.headphoneHiZ {
			supply = HIZHP.Insert(supply, 1)
		}
		s.check(s.regs.WriteRegister(s.ctx, RegHPSupply, supply))
		s.wait(ChargePumpWakeTime)
	}

	zcs, svol := info.Headphone.VolMode.flags()
	mixer := headphoneMixer(info)
	prev := s.regs.CachedField(SALA)

	if s.a.headphone == PoweredOn && mixer != s.regs.Cached(RegHPMixer) {
		// mute before remixing a live output
		prev = s.setHeadphoneVolume(prev, 0, zcs, svol)
	}

	s.check(s.regs.WriteRegister(s.ctx, RegHPMixer, mixer))
	s.setHeadphoneVolume(prev, info.Headphone.Volume&volumeMask, zcs, svol)
	s.a.headphone = PoweredOn
}

func (s *sequence) powerOffHeadphone() {
	prev := s.regs.CachedField(SALA)
	svol := s.regs.CachedField(SVOLHP)
	err := s.regs.WriteRegisters(s.ctx, RegHPVolLeft, []byte{
		s.regs.Cached(RegHPVolLeft) & gainControlMask,
		s.regs.Cached(RegHPVolRight) & gainControlMask,
	})
	s.rampTo(err, svol, prev, 0)
	s.check(s.regs.WriteRegister(s.ctx, RegHPMixer, 0))
	s.setField(PDCHP, 1)
	s.setField(PDREG, 1)
	s.a.headphone = PoweredOff
}

// rampTo records err from a volume write and, in soft-volume mode, waits for
// the ramp from prev to target. It returns the volume now in effect.
func (s *sequence) rampTo(err error, svol, prev, target byte) byte {
	if err != nil {
		s.check(err)
		return prev
	}
	if svol == 1 {
		s.wait(RampDelay(prev, target))
	}
	return target
}

// Speaker returns the speaker path state.
func (a *Amplifier) Speaker() PathState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaker
}

// Headphone returns the headphone path state.
func (a *Amplifier) Headphone() PathState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.headphone
}

// Status is a consistent snapshot of the amplifier.
type Status struct {
	Speaker   PathState
	Headphone PathState
	Receiver  bool // receiver powered (PD_REC clear)
	Registers Shadow
}

// Status returns the path states and register shadow taken under one lock.
func (a *Amplifier) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		Speaker:   a.speaker,
		Headphone: a.headphone,
		Receiver:  a.regs.CachedField(PDREC) == 0,
		Registers: a.regs.Shadow(),
	}
}

// ReadRegister reads reg from the device, refreshing the shadow.
func (a *Amplifier) ReadRegister(ctx context.Context, reg uint8) (byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regs.ReadRegister(ctx, reg)
}

// WriteRegister writes reg on the device.
func (a *Amplifier) WriteRegister(ctx context.Context, reg uint8, v byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regs.WriteRegister(ctx, reg, v)
}

// ReadField reads field f from the device, refreshing the shadow.
func (a *Amplifier) ReadField(ctx context.Context, f Field) (byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regs.ReadField(ctx, f)
}

// WriteField writes field f on the device.
func (a *Amplifier) WriteField(ctx context.Context, f Field, v byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regs.WriteField(ctx, f, v)
}

// Faults reads the over-temperature and over-current flags.
func (a *Amplifier) Faults(ctx context.Context) (overTemp, overCurrent bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, err := a.regs.ReadRegister(ctx, RegProtection)
	if err != nil {
		return false, false, err
	}
	return OTPERR.Extract(b) == 1, OCPERR.Extract(b) == 1, nil
}
