package util

import "errors"

var (
	ErrVideoNotFound    = errors.New("video not found")
	ErrDurationExceeded = errors.New("video duration exceeds configured ceiling")
	ErrUnsupportedMedia = errors.New("unsupported media format")
	ErrModelMismatch    = errors.New("query embedding model does not match indexed model")
	ErrIndexIncomplete  = errors.New("indexed vector count does not match chunk count")
)
