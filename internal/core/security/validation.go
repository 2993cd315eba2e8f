package security

import (
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// shellMetachars flags arguments that would behave unexpectedly if the
// launcher ever constructs a shell command line from them; the launcher
// always execs argv directly, but a flagged argument is still a strong
// signal of a malformed launch request worth rejecting early.
var shellMetachars = regexp.MustCompile(`[;&|<>$` + "`" + `{}]`)

// ValidateArguments rejects debuggee argv entries containing shell
// metacharacters, a defense-in-depth check independent of the fact that
// the launcher never invokes a shell.
func ValidateArguments(args []string) error {
	for i, arg := range args {
		if shellMetachars.MatchString(arg) {
			return dapperr.New(dapperr.PreconditionFailed, "argument "+strconv.Itoa(i)+" contains disallowed characters")
		}
	}
	return nil
}

// ValidateProgramPath resolves program to an absolute, symlink-resolved
// path so the launcher and the adapter agree on exactly what is running.
func ValidateProgramPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", dapperr.New(dapperr.PreconditionFailed, "program path must be absolute")
	}
	cleaned := filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		// The path may not exist until the launcher creates it (rare for a
		// debuggee binary, common for a generated entry script).
		resolved = cleaned
	}
	return resolved, nil
}

// SanitizeError redacts an internal error before it reaches the DAP
// client; the full error is still expected to be logged by the caller.
func SanitizeError(err error, internal bool) error {
	if err == nil || internal {
		return err
	}
	return dapperr.New(dapperr.KindOf(err), "operation failed")
}
