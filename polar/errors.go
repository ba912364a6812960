package polar

import "errors"

var (
	// ErrInvalidPixelFormat is generated when a frame is not in one of the
	// polarized pixel formats
	ErrInvalidPixelFormat = errors.New("invalid pixel format, not a polarized format")

	// ErrInvalidDimensions is generated when a frame has an odd or zero width or
	// height, or its buffer does not match its format and size
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrOutputModeUnsupported is generated for an unknown output mode
	ErrOutputModeUnsupported = errors.New("unsupported output image type")

	// ErrNumericDomain is generated if a derived value is NaN or infinite.
	// The epsilon in DoLP and the clamp on the LUT index keep it from firing
	// on any finite input.
	ErrNumericDomain = errors.New("value outside numeric domain")
)
