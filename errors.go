package sshconfig

import "errors"

var (
	// ErrNoHome indicates the user's home directory could not be resolved.
	ErrNoHome = errors.New("home directory not resolvable")
	// ErrInvalidPath indicates an explicitly given config path is unusable.
	ErrInvalidPath = errors.New("invalid config path")
	// ErrNotLoaded indicates an operation needs a loaded root config.
	ErrNotLoaded = errors.New("no config loaded")
	// ErrUnknownDocument indicates a path that is not part of the loaded graph.
	ErrUnknownDocument = errors.New("unknown document")
	// ErrHostNotFound indicates a host entry index out of range.
	ErrHostNotFound = errors.New("host entry not found")
	// ErrOptionNotFound indicates an option that is not present in a host entry.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidKey indicates an option key that can not be written.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidValue indicates an option value that can not be written.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidPattern indicates an empty or malformed host pattern list.
	ErrInvalidPattern = errors.New("invalid host pattern")
	// ErrCreateConfigDir indicates a config directory could not be created.
	ErrCreateConfigDir = errors.New("failed to create config directory")
	// ErrWriteConfig indicates a config file could not be written.
	ErrWriteConfig = errors.New("failed to write config")
)
