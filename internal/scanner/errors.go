package scanner

import "errors"

var (
	// ErrInvalidPattern is returned by New when an exclude glob does not compile
	ErrInvalidPattern = errors.New("invalid exclude pattern")

	// ErrExtractorPanic wraps a recovered panic from an extractor
	ErrExtractorPanic = errors.New("extractor panicked")
)
