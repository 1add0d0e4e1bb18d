package telemetry

import "context"

// Provider fills the Input section of a frame from the robot's sensors and driver
// station at the start of each control cycle
type Provider interface {
	Read(ctx context.Context, in *Input) error
}
