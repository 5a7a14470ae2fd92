package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	c := models.DefaultConfig()
	require.True(t, c.Shunt())
	require.False(t, c.SpeakerHiZ)
	require.False(t, c.HeadphoneHiZ)
	require.Equal(t, "continue", c.BatchPolicy)
	require.Empty(t, c.APIKeys)
	require.Empty(t, c.DefaultPreset)
}

func TestConfigShunt(t *testing.T) {
	off := false
	c := models.Config{ShuntSwitch: &off}
	require.False(t, c.Shunt())
}

func TestConfigDeepCopy(t *testing.T) {
	on := true
	c := models.Config{
		ShuntSwitch: &on,
		APIKeys:     []string{"k1"},
		Presets:     []models.Preset{{Name: "loud", Settings: d4np2.SpeakerOnly()}},
	}
	cp := c.DeepCopy()
	*cp.ShuntSwitch = false
	cp.APIKeys[0] = "changed"
	cp.Presets[0].Name = "quiet"

	require.True(t, *c.ShuntSwitch)
	require.Equal(t, "k1", c.APIKeys[0])
	require.Equal(t, "loud", c.Presets[0].Name)

	p, ok := c.Preset("loud")
	require.True(t, ok)
	require.Equal(t, uint8(31), p.Settings.Speaker.Volume)
	_, ok = c.Preset("quiet")
	require.False(t, ok)
}

func TestNewState(t *testing.T) {
	st := models.NewState(d4np2.Status{
		Speaker:   d4np2.PoweredOn,
		Headphone: d4np2.PoweredOff,
		Registers: d4np2.DefaultShadow,
	})
	require.Equal(t, "on", st.Speaker)
	require.Equal(t, "off", st.Headphone)
	require.Len(t, st.Registers, d4np2.NumRegisters)
	require.Equal(t, 0x93, st.Registers[3])

	cp := st.DeepCopy()
	cp.Registers[3] = 0
	require.Equal(t, 0x93, st.Registers[3])
}

func TestStateJSON(t *testing.T) {
	st := models.NewState(d4np2.Status{Registers: d4np2.DefaultShadow})
	data, err := json.Marshal(st)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, "off", m["speaker"])
	require.Len(t, m["registers"], d4np2.NumRegisters)
	require.NotContains(t, m, "last_error")
}
