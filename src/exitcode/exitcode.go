// Package exitcode defines the process exit codes for build-env and a
// typed error that carries one. Every fatal condition maps to a stable
// small integer so CI systems can branch on the failure category.
package exitcode

import (
	"errors"
	"fmt"
)

// Exit code categories. 0 is success, 1 a generic failure.
const (
	Generic        = 1
	Privilege      = 2  // not running with the privileges daemon management needs
	NoDockerfile   = 3  // no Dockerfile at the build target path
	Multistage     = 4  // Dockerfile declares more than one FROM
	BadArch        = 5  // requested architecture not supported by the target
	NoVersion      = 6  // version could not be resolved from any source
	NoImage        = 7  // output image name could not be resolved
	BadBuildType   = 8  // build type outside the recognized enumeration
	DaemonTimeout  = 9  // daemon start/stop exceeded the wait budget
	BuildFailed    = 10
	TagFailed      = 11
	PushFailed     = 12
	GitRequired    = 13 // --git passed but the target is not a repository
	CloneFailed    = 14
	DirNotEmpty    = 15 // target directory not empty when cloning
)

// Error is a fatal condition with an associated process exit code.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New returns an *Error with the given code and formatted message.
func New(code int, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error with the given code whose message wraps err.
func Wrap(code int, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...) + ": " + err.Error()}
}

// From extracts the exit code from err, or Generic when err carries none.
func From(err error) int {
	if err == nil {
		return 0
	}
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return Generic
}
