package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrDecode        = errors.New("image decode failed")
	ErrNotRepository = errors.New("not a git repository")
	ErrNoRemote      = errors.New("no remote configured")
	ErrUnsupported   = errors.New("unsupported platform")
	ErrDuplicate     = errors.New("duplicate content")
	ErrBusy          = errors.New("already in flight")
)
