package digest

import "errors"

var (
	// ErrUnknownAlgorithm indicates the requested hash algorithm is not supported.
	ErrUnknownAlgorithm = errors.New("digest: unknown hash algorithm")
)
