package service

import "errors"

var (
	ErrMissingImage         = errors.New("missing image")
	ErrImageTooLarge        = errors.New("image too large")
	ErrInvalidImageEncoding = errors.New("invalid image encoding")
	ErrMalformedDetection   = errors.New("malformed detection result")
	ErrUnsupportedImage     = errors.New("unsupported image format")
	ErrDetectionService     = errors.New("detection service error")
	ErrRelayFailed          = errors.New("relay failed")
)
