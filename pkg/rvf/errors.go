package rvf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid RVF magic")
	ErrUnsupportedMajor = errors.New("unsupported RVF major version")
	ErrCorruptFile      = errors.New("corrupt RVF file")

	// ErrBoolArray is returned by the image payload encoder for boolean
	// element types, which the image segment encoding does not support.
	// Callers that need to persist boolean arrays widen them to float first.
	ErrBoolArray = errors.New("image segment does not support bool elements")
)
