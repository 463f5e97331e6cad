package shell

import "strings"

// ArgumentPolicy decides whether one argument may reach a command.
// Inspect returns the offending token when the argument is refused.
type ArgumentPolicy interface {
	Inspect(arg string) (token string, dangerous bool)
}

// PolicyFunc adapts a function to ArgumentPolicy.
type PolicyFunc func(arg string) (string, bool)

// Inspect calls f.
func (f PolicyFunc) Inspect(arg string) (string, bool) { return f(arg) }

// DenylistPolicy refuses any argument containing one of its substrings.
// Patterns are tried in order and the first hit is reported.
type DenylistPolicy struct {
	patterns []string
}

// NewDenylistPolicy returns a policy over patterns.
func NewDenylistPolicy(patterns ...string) DenylistPolicy {
	return DenylistPolicy{patterns: append([]string(nil), patterns...)}
}

// DefaultDenylist returns the stock patterns for goos: traversal, chaining,
// piping, redirection, substitution, home expansion and the path separator
// that is foreign to the host.
func DefaultDenylist(goos string) DenylistPolicy {
	foreign := `\`
	if goos == "windows" {
		foreign = "/"
	}
	return NewDenylistPolicy("..", ";", "&&", "||", "|", ">", "<", "`", "$(", "${", "~/", foreign)
}

// Patterns returns the denied substrings in check order.
func (p DenylistPolicy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

// Inspect implements ArgumentPolicy.
func (p DenylistPolicy) Inspect(arg string) (string, bool) {
	for _, pat := range p.patterns {
		if strings.Contains(arg, pat) {
			return pat, true
		}
	}
	return "", false
}
