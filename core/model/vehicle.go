package model

// VehicleState is a fresh snapshot of the vehicle's remote state. It is
// read from the vehicle API each run and never cached across runs.
type VehicleState struct {
	Online bool
	// ChargeLimit is the currently configured charge limit percentage
	// (0-100). Only meaningful while the vehicle is online.
	ChargeLimit int
}
