package automation

import "errors"

var (
	// ErrUnitIO marks a failed page interaction on one tab or vendor.
	ErrUnitIO = errors.New("page interaction failed")

	// ErrAlreadyRunning is returned when the automation already has a run in flight.
	ErrAlreadyRunning = errors.New("automation already running")

	// ErrUnknownAutomation is returned for a name the runner has no automation for.
	ErrUnknownAutomation = errors.New("unknown automation")
)
