package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Reason classifies a validation rejection.
type Reason string

const (
	ReasonNotWhitelisted   Reason = "not whitelisted"
	ReasonTooManyArgs      Reason = "too many arguments"
	ReasonDangerousPattern Reason = "dangerous pattern"
	ReasonAbsolutePath     Reason = "absolute paths forbidden"
	ReasonPathEscape       Reason = "path escapes working directory"
	ReasonInvalidPath      Reason = "invalid path"
)

// Rejection is returned by Validate when a command may not run.
type Rejection struct {
	Reason  Reason
	Command string

	// Arg is the offending argument, when one is to blame.
	Arg string

	// Token is the denied pattern for ReasonDangerousPattern.
	Token string

	// Max is the argument limit for ReasonTooManyArgs.
	Max int

	// Available lists the whitelist for ReasonNotWhitelisted.
	Available []string
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonNotWhitelisted:
		return fmt.Sprintf("command '%s' not whitelisted", r.Command)
	case ReasonTooManyArgs:
		return fmt.Sprintf("too many arguments for '%s' (max: %d)", r.Command, r.Max)
	case ReasonDangerousPattern:
		return fmt.Sprintf("dangerous pattern '%s' detected in argument: %s", r.Token, r.Arg)
	case ReasonAbsolutePath:
		return fmt.Sprintf("absolute paths forbidden: %s", r.Arg)
	case ReasonPathEscape:
		return fmt.Sprintf("path escapes working directory: %s", r.Arg)
	default:
		return fmt.Sprintf("%s: %s", r.Reason, r.Arg)
	}
}

// Plan is an accepted command. Argv[0] is the whitelisted executable.
type Plan struct {
	Command string
	Argv    []string
}

// pathFlags are arguments of filesystem-mutating commands that are not paths.
var pathFlags = map[string]bool{"-p": true, "-v": true}

// Validator decides whether a command may run. It holds no mutable state,
// so identical inputs always give identical answers.
type Validator struct {
	whitelist *Whitelist
	policy    ArgumentPolicy
	getwd     func() (string, error)
}

// Option configures a Validator.
type Option func(*Validator)

// WithPolicy replaces the default denylist.
func WithPolicy(p ArgumentPolicy) Option {
	return func(v *Validator) { v.policy = p }
}

// WithWorkDir sets the source of the directory paths must stay inside.
func WithWorkDir(getwd func() (string, error)) Option {
	return func(v *Validator) { v.getwd = getwd }
}

// NewValidator returns a validator over wl. A nil wl means DefaultWhitelist.
func NewValidator(wl *Whitelist, opts ...Option) *Validator {
	if wl == nil {
		wl = DefaultWhitelist()
	}
	v := &Validator{
		whitelist: wl,
		policy:    DefaultDenylist(runtime.GOOS),
		getwd:     os.Getwd,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Whitelist returns the validator's whitelist.
func (v *Validator) Whitelist() *Whitelist { return v.whitelist }

// Validate checks command and args. Checks run cheapest first and the first
// failure wins: whitelist, argument count, argument policy, then path
// checks for commands that touch the filesystem. Pattern checks come before
// path resolution so a ".." is refused before cleaning could hide it.
func (v *Validator) Validate(command string, args []string) (Plan, error) {
	spec, ok := v.whitelist.Lookup(command)
	if !ok {
		return Plan{}, &Rejection{Reason: ReasonNotWhitelisted, Command: command, Available: v.whitelist.Names()}
	}
	if len(args) > spec.MaxArgs {
		return Plan{}, &Rejection{Reason: ReasonTooManyArgs, Command: command, Max: spec.MaxArgs}
	}
	for _, arg := range args {
		if token, bad := v.policy.Inspect(arg); bad {
			return Plan{}, &Rejection{Reason: ReasonDangerousPattern, Command: command, Arg: arg, Token: token}
		}
	}
	if spec.MutatesFS {
		if err := v.checkPaths(command, args); err != nil {
			return Plan{}, err
		}
	}

	argv := make([]string, 0, len(args)+1)
	argv = append(argv, spec.Executable)
	argv = append(argv, args...)
	return Plan{Command: command, Argv: argv}, nil
}

func (v *Validator) checkPaths(command string, args []string) error {
	var cwd string
	for _, arg := range args {
		if pathFlags[arg] {
			continue
		}
		if isAbsolute(arg) {
			return &Rejection{Reason: ReasonAbsolutePath, Command: command, Arg: arg}
		}
		if cwd == "" {
			wd, err := v.getwd()
			if err != nil || wd == "" {
				return &Rejection{Reason: ReasonInvalidPath, Command: command, Arg: arg}
			}
			cwd = filepath.Clean(wd)
		}
		if !within(cwd, filepath.Join(cwd, arg)) {
			return &Rejection{Reason: ReasonPathEscape, Command: command, Arg: arg}
		}
	}
	return nil
}

// isAbsolute reports a leading path root or a drive letter, independent of
// the host OS.
func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	if len(p) >= 2 && p[1] == ':' {
		c := p[0] | 0x20
		return c >= 'a' && c <= 'z'
	}
	return false
}

// within reports whether target is base or below it. Comparison is by path
// element, so /work/proj2 is not inside /work/proj.
func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
