package controller_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micro-nova/ampctl/internal/config"
	"github.com/micro-nova/ampctl/internal/controller"
	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/hardware"
	"github.com/micro-nova/ampctl/internal/models"
)

type fixture struct {
	ctrl  *controller.Controller
	mock  *hardware.Mock
	store *config.MemStore
	bus   *events.Bus
}

func newFixture(t *testing.T, cfg *models.Config) *fixture {
	t.Helper()
	f := &fixture{
		mock:  hardware.NewMock(),
		store: config.NewMemStore(),
		bus:   events.NewBus(),
	}
	if cfg != nil {
		require.NoError(t, f.store.Save(cfg))
	}
	ctrl, err := controller.New(f.mock, f.store, f.bus, "test",
		d4np2.WithClock(&hardware.RecordingClock{}))
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestInitialState(t *testing.T) {
	f := newFixture(t, nil)
	st := f.ctrl.State()
	require.Equal(t, "off", st.Speaker)
	require.Equal(t, "off", st.Headphone)
	require.False(t, st.Receiver)
	require.Len(t, st.Registers, d4np2.NumRegisters)
	require.Equal(t, "test", st.Info.Version)
	require.True(t, st.Info.Mock)
	require.Empty(t, f.mock.Log(), "construction does not touch the bus")
}

func TestPowerOnPublishes(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.bus.Subscribe("t")

	st, appErr := f.ctrl.PowerOn(context.Background(), d4np2.SpeakerOnly())
	require.Nil(t, appErr)
	require.Equal(t, "on", st.Speaker)

	ev := nextEvent(t, ch)
	require.Equal(t, events.KindPowerOn, ev.Kind)
	require.Equal(t, "on", ev.State.Speaker)
}

func TestPowerOnValidation(t *testing.T) {
	f := newFixture(t, nil)
	info := d4np2.SpeakerOnly()
	info.Speaker.Volume = 99

	_, appErr := f.ctrl.PowerOn(context.Background(), info)
	require.NotNil(t, appErr)
	require.Equal(t, 400, appErr.Status)
	require.Empty(t, f.mock.Log())
}

func TestPowerOnTransportFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.mock.FailWriteAt(14, true)

	st, appErr := f.ctrl.PowerOn(context.Background(), d4np2.SpeakerOnly())
	require.NotNil(t, appErr)
	require.Equal(t, 500, appErr.Status)
	require.Equal(t, "on", st.Speaker, "sequence runs to completion")
	require.Contains(t, st.LastError, "reg #14")
}

func TestPowerOff(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, appErr := f.ctrl.PowerOn(ctx, d4np2.SpeakerHeadset())
	require.Nil(t, appErr)

	st, appErr := f.ctrl.PowerOff(ctx)
	require.Nil(t, appErr)
	require.Equal(t, "off", st.Speaker)
	require.Equal(t, "off", st.Headphone)
	require.Equal(t, d4np2.PresetOff, st.LastPreset)
	require.Equal(t, 0x03, st.Registers[0])
}

func TestPresets(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Presets = []models.Preset{{Name: "quiet", Settings: d4np2.HeadsetOnly()}}
	f := newFixture(t, &cfg)

	list := f.ctrl.Presets()
	require.Len(t, list, 5)
	require.True(t, list[0].Builtin)
	require.Equal(t, models.PresetInfo{Name: "quiet"}, list[4])

	ctx := context.Background()
	st, appErr := f.ctrl.LoadPreset(ctx, "quiet")
	require.Nil(t, appErr)
	require.Equal(t, "on", st.Headphone)
	require.Equal(t, "quiet", st.LastPreset)

	st, appErr = f.ctrl.LoadPreset(ctx, d4np2.PresetSpeaker)
	require.Nil(t, appErr)
	require.Equal(t, "on", st.Speaker)
	require.Equal(t, "off", st.Headphone)

	_, appErr = f.ctrl.LoadPreset(ctx, "missing")
	require.NotNil(t, appErr)
	require.Equal(t, 404, appErr.Status)
}

func TestStartAppliesDefaultPreset(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.DefaultPreset = d4np2.PresetHeadset
	f := newFixture(t, &cfg)

	require.NoError(t, f.ctrl.Start(context.Background()))
	st := f.ctrl.State()
	require.Equal(t, "on", st.Headphone)
	require.Equal(t, d4np2.PresetHeadset, st.LastPreset)
}

func TestStartWithoutDefaultPreset(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Start(context.Background()))
	require.Empty(t, f.mock.Log())
}

func TestApplyConfig(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.bus.Subscribe("t")

	cfg := models.DefaultConfig()
	cfg.SpeakerHiZ = true
	f.ctrl.ApplyConfig(&cfg)
	require.Equal(t, events.KindConfig, nextEvent(t, ch).Kind)
	require.True(t, f.ctrl.Config().SpeakerHiZ)

	_, appErr := f.ctrl.PowerOn(context.Background(), d4np2.SpeakerOnly())
	require.Nil(t, appErr)
	require.Equal(t, byte(0x9F), f.mock.GetReg(3))
}

func TestRegisterAccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rv, appErr := f.ctrl.WriteRegister(ctx, 12, 0x44)
	require.Nil(t, appErr)
	require.Equal(t, models.RegisterValue{Reg: 12, Value: 0x44}, rv)
	require.Equal(t, byte(0x44), f.mock.GetReg(12))
	require.Equal(t, 0x44, f.ctrl.Registers()[12].Value)

	f.mock.SetReg(17, 0x40)
	rv, appErr = f.ctrl.ReadRegister(ctx, 17)
	require.Nil(t, appErr)
	require.Equal(t, 0x40, rv.Value)

	faults, appErr := f.ctrl.Faults(ctx)
	require.Nil(t, appErr)
	require.Equal(t, models.Faults{OverTemp: true}, faults)

	_, appErr = f.ctrl.WriteRegister(ctx, 19, 0)
	require.NotNil(t, appErr)
	require.Equal(t, 400, appErr.Status)

	_, appErr = f.ctrl.WriteRegister(ctx, 3, 256)
	require.Equal(t, 400, appErr.Status)

	_, appErr = f.ctrl.ReadRegister(ctx, 20)
	require.Equal(t, 400, appErr.Status)

	f.mock.FailReadAt(5, true)
	_, appErr = f.ctrl.ReadRegister(ctx, 5)
	require.Equal(t, 500, appErr.Status)
}

func TestFieldAccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	fields := f.ctrl.Fields()
	require.Len(t, fields, len(d4np2.FieldNames()))

	fv, appErr := f.ctrl.WriteField(ctx, "PD_REC", 0)
	require.Nil(t, appErr)
	require.Equal(t, 3, fv.Reg)
	require.Equal(t, "0x031004", fv.Token)
	require.Equal(t, byte(0x83), f.mock.GetReg(3))

	fv, appErr = f.ctrl.ReadField(ctx, "PD_SNT")
	require.Nil(t, appErr)
	require.Equal(t, 1, fv.Value)

	_, appErr = f.ctrl.WriteField(ctx, "DATT", 4)
	require.Equal(t, 400, appErr.Status)

	_, appErr = f.ctrl.ReadField(ctx, "BOGUS")
	require.Equal(t, 404, appErr.Status)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, appErr := f.ctrl.PowerOn(ctx, d4np2.SpeakerOnly())
	require.Nil(t, appErr)

	require.NoError(t, f.ctrl.Shutdown(ctx))
	require.Equal(t, "off", f.ctrl.State().Speaker)
}

func TestSuspendResume(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, appErr := f.ctrl.LoadPreset(ctx, d4np2.PresetHeadset)
	require.Nil(t, appErr)

	require.NoError(t, f.ctrl.Suspend(ctx))
	st := f.ctrl.State()
	require.Equal(t, "off", st.Headphone)
	require.Equal(t, d4np2.PresetOff, st.LastPreset)

	require.NoError(t, f.ctrl.Resume(ctx))
	st = f.ctrl.State()
	require.Equal(t, "on", st.Headphone)
	require.Equal(t, d4np2.PresetHeadset, st.LastPreset)

	// A second resume has nothing to restore.
	f.mock.ResetLog()
	require.NoError(t, f.ctrl.Resume(ctx))
	require.Empty(t, f.mock.Log())
}

func TestResumeWhileOff(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Suspend(ctx))
	f.mock.ResetLog()
	require.NoError(t, f.ctrl.Resume(ctx))
	require.Empty(t, f.mock.Log())
	require.Equal(t, "off", f.ctrl.State().Speaker)
}

func TestReportFaults(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.bus.Subscribe("t")

	f.ctrl.ReportFaults(models.Faults{OverCurrent: true})
	ev := nextEvent(t, ch)
	require.Equal(t, events.KindFault, ev.Kind)
	require.True(t, ev.State.Faults.OverCurrent)
	require.True(t, f.ctrl.State().Faults.OverCurrent)
}

func TestSavePreset(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.bus.Subscribe("t")

	info := d4np2.SpeakerOnly()
	info.Speaker.Volume = 20
	p, appErr := f.ctrl.SavePreset("patio", info)
	require.Nil(t, appErr)
	require.Equal(t, models.PresetInfo{Name: "patio"}, p)
	require.Equal(t, events.KindConfig, nextEvent(t, ch).Kind)

	saved, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, saved.Presets, 1)
	require.Equal(t, uint8(20), saved.Presets[0].Settings.Speaker.Volume)

	// Same name replaces.
	info.Speaker.Volume = 25
	_, appErr = f.ctrl.SavePreset("patio", info)
	require.Nil(t, appErr)
	cfg := f.ctrl.Config()
	require.Len(t, cfg.Presets, 1)
	require.Equal(t, uint8(25), cfg.Presets[0].Settings.Speaker.Volume)

	st, appErr := f.ctrl.LoadPreset(context.Background(), "patio")
	require.Nil(t, appErr)
	require.Equal(t, "patio", st.LastPreset)
	require.Equal(t, byte(0x59), f.mock.GetReg(14))
}

func TestSavePresetRejects(t *testing.T) {
	f := newFixture(t, nil)

	for _, name := range []string{"", d4np2.PresetSpeaker, d4np2.PresetOff} {
		_, appErr := f.ctrl.SavePreset(name, d4np2.SpeakerOnly())
		require.NotNil(t, appErr, name)
		require.Equal(t, 400, appErr.Status, name)
		require.Equal(t, "name", appErr.Field, name)
	}

	bad := d4np2.HeadsetOnly()
	bad.MinGain = 32
	_, appErr := f.ctrl.SavePreset("bad", bad)
	require.Equal(t, 400, appErr.Status)

	require.Empty(t, f.ctrl.Config().Presets)
}

func TestDeletePreset(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Presets = []models.Preset{
		{Name: "a", Settings: d4np2.HeadsetOnly()},
		{Name: "b", Settings: d4np2.SpeakerOnly()},
	}
	cfg.DefaultPreset = "a"
	f := newFixture(t, &cfg)

	require.Nil(t, f.ctrl.DeletePreset("a"))
	got := f.ctrl.Config()
	require.Len(t, got.Presets, 1)
	require.Equal(t, "b", got.Presets[0].Name)
	require.Empty(t, got.DefaultPreset)

	saved, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, saved.Presets, 1)

	require.Equal(t, 404, f.ctrl.DeletePreset("a").Status)
	require.Equal(t, 400, f.ctrl.DeletePreset(d4np2.PresetHeadset).Status)
}

func TestShutdownFlushesSavedPresets(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)
	ctrl, err := controller.New(hardware.NewMock(), store, events.NewBus(), "test",
		d4np2.WithClock(&hardware.RecordingClock{}))
	require.NoError(t, err)

	_, appErr := ctrl.SavePreset("night", d4np2.HeadsetOnly())
	require.Nil(t, appErr)
	require.NoError(t, ctrl.Shutdown(context.Background()))

	_, err = os.Stat(store.Path())
	require.NoError(t, err)
	loaded, err := config.NewJSONStore(dir).Load()
	require.NoError(t, err)
	require.Len(t, loaded.Presets, 1)
	require.Equal(t, "night", loaded.Presets[0].Name)
}
