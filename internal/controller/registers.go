package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/models"
)

// Registers returns the register shadow without bus access.
func (c *Controller) Registers() []models.RegisterValue {
	shadow := c.amp.Status().Registers
	out := make([]models.RegisterValue, len(shadow))
	for i, b := range shadow {
		out[i] = models.RegisterValue{Reg: i, Value: int(b)}
	}
	return out
}

// ReadRegister reads a register from the device, refreshing the shadow.
func (c *Controller) ReadRegister(ctx context.Context, reg int) (models.RegisterValue, *models.AppError) {
	if reg < 0 || reg > 0xFF {
		return models.RegisterValue{}, models.ErrBadRequest(fmt.Sprintf("register %d out of range", reg))
	}
	b, err := c.amp.ReadRegister(ctx, uint8(reg))
	if err != nil {
		return models.RegisterValue{}, registerError(err)
	}
	c.publish(events.KindRegister)
	return models.RegisterValue{Reg: reg, Value: int(b)}, nil
}

// WriteRegister writes a whole register.
func (c *Controller) WriteRegister(ctx context.Context, reg, val int) (models.RegisterValue, *models.AppError) {
	if reg < 0 || reg > 0xFF {
		return models.RegisterValue{}, models.ErrBadRequest(fmt.Sprintf("register %d out of range", reg))
	}
	if val < 0 || val > 0xFF {
		return models.RegisterValue{}, models.ErrBadRequest(fmt.Sprintf("value %d out of range 0-255", val))
	}
	if err := c.amp.WriteRegister(ctx, uint8(reg), byte(val)); err != nil {
		return models.RegisterValue{}, registerError(err)
	}
	c.publish(events.KindRegister)
	return models.RegisterValue{Reg: reg, Value: val}, nil
}

// Fields describes every named field with its shadow value.
func (c *Controller) Fields() []models.FieldValue {
	shadow := c.amp.Status().Registers
	names := d4np2.FieldNames()
	out := make([]models.FieldValue, 0, len(names))
	for _, n := range names {
		f, _ := d4np2.FieldByName(n)
		out = append(out, fieldValue(n, f, f.Extract(shadow[f.Reg])))
	}
	return out
}

// ReadField reads a named field from the device.
func (c *Controller) ReadField(ctx context.Context, name string) (models.FieldValue, *models.AppError) {
	f, ok := d4np2.FieldByName(name)
	if !ok {
		return models.FieldValue{}, models.ErrNotFound(fmt.Sprintf("field %q not found", name))
	}
	v, err := c.amp.ReadField(ctx, f)
	if err != nil {
		return models.FieldValue{}, registerError(err)
	}
	c.publish(events.KindRegister)
	return fieldValue(name, f, v), nil
}

// WriteField writes a named field, read-modify-write from the shadow.
func (c *Controller) WriteField(ctx context.Context, name string, val int) (models.FieldValue, *models.AppError) {
	f, ok := d4np2.FieldByName(name)
	if !ok {
		return models.FieldValue{}, models.ErrNotFound(fmt.Sprintf("field %q not found", name))
	}
	if val < 0 || val > int(f.Width()) {
		return models.FieldValue{}, models.ErrBadRequest(fmt.Sprintf("value %d out of range 0-%d", val, f.Width()))
	}
	if err := c.amp.WriteField(ctx, f, byte(val)); err != nil {
		return models.FieldValue{}, registerError(err)
	}
	c.publish(events.KindRegister)
	return fieldValue(name, f, byte(val)), nil
}

// Faults reads the protection status register.
func (c *Controller) Faults(ctx context.Context) (models.Faults, *models.AppError) {
	otp, ocp, err := c.amp.Faults(ctx)
	if err != nil {
		return models.Faults{}, registerError(err)
	}
	return models.Faults{OverTemp: otp, OverCurrent: ocp}, nil
}

func fieldValue(name string, f d4np2.Field, v byte) models.FieldValue {
	return models.FieldValue{
		Name:  name,
		Reg:   int(f.Reg),
		Mask:  int(f.Mask),
		Shift: int(f.Shift),
		Token: fmt.Sprintf("0x%06X", f.Token()),
		Value: int(v),
	}
}

// registerError maps register access failures onto API errors.
func registerError(err error) *models.AppError {
	if errors.Is(err, d4np2.ErrOutOfRange) {
		return models.ErrBadRequest(err.Error())
	}
	return models.ErrInternal(err.Error())
}

// ReportFaults records a change of the protection flags and publishes it.
func (c *Controller) ReportFaults(f models.Faults) {
	c.mu.Lock()
	c.faults = f
	c.mu.Unlock()
	c.publish(events.KindFault)
}
