package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if log.app_name was not configured.
	ErrAppNameIsEmpty = errors.New("config log.app_name can not be empty")

	// ErrServiceNameIsEmpty is returned if log.service_name was not configured.
	ErrServiceNameIsEmpty = errors.New("config log.service_name can not be empty")
)

// ErrorHandler reports failures of the log sinks themselves. Init installs
// it as zerolog's global error handler, so a full disk or an unwritable log
// directory still leaves a trace on stderr.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "zerolog: could not write event: %v\n", err)
}
