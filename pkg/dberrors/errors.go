package dberrors

import "errors"

var (
	ErrInvalidArgument = errors.New("journalclerk: invalid argument")
	ErrNotSupported    = errors.New("journalclerk: unsupported call")
	ErrWriteFailed     = errors.New("journalclerk: fatal write failure")
	ErrCorruptRecord   = errors.New("journalclerk: corrupt record")
)
