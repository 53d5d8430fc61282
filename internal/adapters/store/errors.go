package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrDecode = errors.New("decode stored value failed")
	ErrEncode = errors.New("encode value failed")
)
