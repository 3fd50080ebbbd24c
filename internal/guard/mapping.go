package guard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/admin-console/internal/domain"
)

// Route binds a path prefix to the backend menu title that grants it.
type Route struct {
	Path string `yaml:"path"`
	Menu string `yaml:"menu"`
}

// Mapping is the ordered route table. The first matching entry wins.
type Mapping struct {
	routes []Route
}

// DefaultRoutes are the screens of the console. Titles must match the backend
// menu names exactly.
var DefaultRoutes = []Route{
	{Path: "/", Menu: "Dashboard"},
	{Path: "/projects", Menu: "Projects"},
	{Path: "/inventory", Menu: "Inventory"},
	{Path: "/vendors", Menu: "Vendors"},
	{Path: "/bom", Menu: "Bill of Materials"},
	{Path: "/purchase-orders", Menu: "Purchase Orders"},
	{Path: "/users", Menu: "Users"},
	{Path: "/roles", Menu: "Roles"},
	{Path: "/reports", Menu: "Reports"},
}

type mappingFile struct {
	Routes []Route `yaml:"routes"`
}

// NewMapping validates routes and builds a mapping.
func NewMapping(routes []Route) (*Mapping, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("route mapping is empty")
	}
	seen := make(map[string]struct{}, len(routes))
	out := make([]Route, 0, len(routes))
	for i, r := range routes {
		r.Path = strings.TrimSpace(r.Path)
		r.Menu = strings.TrimSpace(r.Menu)
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %d: path %q must start with /", i, r.Path)
		}
		if len(r.Path) > 1 {
			r.Path = strings.TrimRight(r.Path, "/")
		}
		if r.Menu == "" {
			return nil, fmt.Errorf("route %d: path %q has no menu title", i, r.Path)
		}
		key := strings.ToLower(r.Path)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("route %d: duplicate path %q", i, r.Path)
		}
		for _, prev := range out {
			if prev.Path != "/" && hasPathPrefix(r.Path, prev.Path) {
				return nil, fmt.Errorf("route %d: path %q is shadowed by %q", i, r.Path, prev.Path)
			}
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return &Mapping{routes: out}, nil
}

// DefaultMapping returns the built-in table.
func DefaultMapping() *Mapping {
	m, err := NewMapping(DefaultRoutes)
	if err != nil {
		panic(err)
	}
	return m
}

// LoadMapping reads a YAML file of the form `routes: [{path, menu}]`. An empty
// path selects the default table.
func LoadMapping(path string) (*Mapping, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route mapping: %w", err)
	}
	var file mappingFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse route mapping: %w", err)
	}
	return NewMapping(file.Routes)
}

// Routes returns a copy of the table.
func (m *Mapping) Routes() []Route {
	out := make([]Route, len(m.routes))
	copy(out, m.routes)
	return out
}

// Match returns the first route matching path, ignoring case. The root entry
// matches only "/".
func (m *Mapping) Match(path string) (Route, bool) {
	if path == "" {
		path = "/"
	}
	for _, r := range m.routes {
		if r.Path == "/" {
			if path == "/" {
				return r, true
			}
			continue
		}
		if hasPathPrefix(path, r.Path) {
			return r, true
		}
	}
	return Route{}, false
}

// MissingTitles lists mapped titles the backend menu list does not contain.
func (m *Mapping) MissingTitles(menus []domain.Menu) []string {
	known := make(map[string]struct{}, len(menus))
	for _, menu := range menus {
		known[menu.MenuName] = struct{}{}
	}
	var missing []string
	for _, r := range m.routes {
		if _, ok := known[r.Menu]; !ok {
			missing = append(missing, r.Menu)
		}
	}
	return missing
}

// hasPathPrefix is a case-insensitive string prefix test, so "/projects"
// also covers "/Projects/7" and "/projects-archive".
func hasPathPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && strings.EqualFold(path[:len(prefix)], prefix)
}
