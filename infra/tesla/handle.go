package tesla

import (
	"context"
	"fmt"

	"github.com/mkrogh/nightcharge/core/model"
)

// Handle binds one vehicle on the account to the reconciler's control
// surface.
type Handle struct {
	c  *Client
	id int64
}

// FirstVehicle returns a handle for the account's first vehicle, the
// subject of this single-vehicle system.
func FirstVehicle(ctx context.Context, c *Client) (*Handle, error) {
	vehicles, err := c.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		return nil, fmt.Errorf("no vehicles on account")
	}
	v := vehicles[0]
	c.log.Infof("using vehicle %q (id %d, state %s)", v.DisplayName, v.ID, v.State)
	return &Handle{c: c, id: v.ID}, nil
}

// State returns a fresh snapshot. The charge limit is only read once
// the vehicle reports online; a sleeping car rejects data requests.
func (h *Handle) State(ctx context.Context) (model.VehicleState, error) {
	vehicles, err := h.c.Vehicles(ctx)
	if err != nil {
		return model.VehicleState{}, err
	}
	for _, v := range vehicles {
		if v.ID != h.id {
			continue
		}
		if !v.Online() {
			return model.VehicleState{}, nil
		}
		cs, err := h.c.ChargeState(ctx, h.id)
		if err != nil {
			return model.VehicleState{}, err
		}
		return model.VehicleState{Online: true, ChargeLimit: cs.ChargeLimitSoc}, nil
	}
	return model.VehicleState{}, fmt.Errorf("vehicle %d no longer on account", h.id)
}

// Wake issues a wake signal.
func (h *Handle) Wake(ctx context.Context) error {
	return h.c.Wake(ctx, h.id)
}

// SetChargeLimit applies the charge limit percentage.
func (h *Handle) SetChargeLimit(ctx context.Context, percent int) error {
	return h.c.SetChargeLimit(ctx, h.id, percent)
}

// Position returns the vehicle's current coordinates.
func (h *Handle) Position(ctx context.Context) (lat, long float64, err error) {
	ds, err := h.c.DriveState(ctx, h.id)
	if err != nil {
		return 0, 0, err
	}
	return ds.Latitude, ds.Longitude, nil
}
