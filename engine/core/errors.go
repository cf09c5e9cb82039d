package core

import (
	"errors"
)

var (
	// ErrInvalidArgument is returned when a caller passes malformed input,
	// such as a zero-sized texture or a draw command without a shader.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidOperation is returned when an operation targets a resource
	// that was destroyed or never realised on the device.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrDevice wraps failures reported by the graphics backend.
	ErrDevice = errors.New("device error")
	// ErrSwapchainBooting is returned while the swapchain is being recreated.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")
)
