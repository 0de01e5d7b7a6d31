package models

import "errors"

// Error taxonomy shared by the orchestrator, the backends and the sensor layer.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrBusy            = errors.New("pump busy")
	ErrHardware        = errors.New("hardware error")
	ErrSensor          = errors.New("sensor error")
	ErrNotFound        = errors.New("not found")
)
