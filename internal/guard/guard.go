// Package guard decides whether a navigation may render, based on the
// session state and the path to menu title table.
package guard

import "fmt"

// Action is the outcome of an admission check.
type Action int

const (
	Allow Action = iota
	RedirectLogin
	RedirectDenied
	// Hold renders nothing; the user is already on the denied page.
	Hold
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDenied:
		return "redirect_denied"
	case Hold:
		return "hold"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// EmptyPermissions selects how a user without allowed menu names is treated.
type EmptyPermissions string

const (
	EmptyAllow EmptyPermissions = "allow"
	EmptyDeny  EmptyPermissions = "deny"
)

// Policy holds the guard's redirect targets and fail-open switch.
type Policy struct {
	LoginPath        string
	AccessDeniedPath string
	EmptyPermissions EmptyPermissions
}

// Decision is what the guard wants done with a navigation.
type Decision struct {
	Action   Action
	Location string
	// Menu is the matched title, empty when no route matched.
	Menu string
}

// Guard evaluates navigations against a Mapping.
type Guard struct {
	mapping *Mapping
	policy  Policy
}

// New builds a guard. Zero policy fields fall back to /login, /access-denied and allow.
func New(mapping *Mapping, policy Policy) *Guard {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	if policy.LoginPath == "" {
		policy.LoginPath = "/login"
	}
	if policy.AccessDeniedPath == "" {
		policy.AccessDeniedPath = "/access-denied"
	}
	if policy.EmptyPermissions == "" {
		policy.EmptyPermissions = EmptyAllow
	}
	return &Guard{mapping: mapping, policy: policy}
}

// Mapping returns the route table.
func (g *Guard) Mapping() *Mapping { return g.mapping }

// Policy returns the effective policy.
func (g *Guard) Policy() Policy { return g.policy }

// Decide admits or redirects a navigation to path. A nil allowed slice with
// authenticated set means the stored profile could not be read; that is
// treated like an empty permission list.
func (g *Guard) Decide(path string, authenticated bool, allowed []string) Decision {
	if !authenticated {
		return Decision{Action: RedirectLogin, Location: g.policy.LoginPath}
	}

	route, matched := g.mapping.Match(path)
	if !matched {
		return Decision{Action: Allow}
	}
	if len(allowed) == 0 {
		if g.policy.EmptyPermissions == EmptyDeny {
			return g.deny(path, route.Menu)
		}
		return Decision{Action: Allow, Menu: route.Menu}
	}
	for _, name := range allowed {
		if name == route.Menu {
			return Decision{Action: Allow, Menu: route.Menu}
		}
	}
	return g.deny(path, route.Menu)
}

func (g *Guard) deny(path, menu string) Decision {
	if path == g.policy.AccessDeniedPath {
		return Decision{Action: Hold, Menu: menu}
	}
	return Decision{Action: RedirectDenied, Location: g.policy.AccessDeniedPath, Menu: menu}
}
