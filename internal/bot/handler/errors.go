package handler

import "errors"

var (
	// ErrCommandInvalid is returned when a command has no name or no run func.
	ErrCommandInvalid = errors.New("command needs a name and a run func")
	// ErrCommandExists is returned when a command name is registered twice.
	ErrCommandExists = errors.New("command already registered")
	// ErrComponentExists is returned when a component prefix is registered twice.
	ErrComponentExists = errors.New("component prefix already registered")
)
