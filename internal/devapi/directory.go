package devapi

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spec-kit/admin-console/internal/auth"
	"github.com/spec-kit/admin-console/internal/domain"
)

// Account is a backend user.
type Account struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	Department   string
	Avatar       string
	PasswordHash string
}

// Seed is a plain-text account used to populate the directory.
type Seed struct {
	Account
	Password string
}

// DefaultMenus match the console's route table.
var DefaultMenus = []domain.Menu{
	{ID: 1, MenuName: "Dashboard"},
	{ID: 2, MenuName: "Projects"},
	{ID: 3, MenuName: "Inventory"},
	{ID: 4, MenuName: "Vendors"},
	{ID: 5, MenuName: "Bill of Materials"},
	{ID: 6, MenuName: "Purchase Orders"},
	{ID: 7, MenuName: "Users"},
	{ID: 8, MenuName: "Roles"},
	{ID: 9, MenuName: "Reports"},
}

// DefaultSeeds are the demo accounts. The guest role is unknown to the role
// list, so its holder gets no menu restrictions.
var DefaultSeeds = []Seed{
	{Account: Account{ID: 1, Name: "Avery Admin", Email: "admin@example.com", Role: "Admin", Department: "Head Office"}, Password: "admin123"},
	{Account: Account{ID: 7, Name: "Dana Builder", Email: "supervisor@example.com", Role: "Project Supervisor", Department: "Field Ops"}, Password: "build123"},
	{Account: Account{ID: 9, Name: "Gale Guest", Email: "guest@example.com", Role: "Guest"}, Password: "guest123"},
}

func defaultRoles() []domain.Role {
	full := make([]domain.RolePermission, 0, len(DefaultMenus))
	for _, m := range DefaultMenus {
		full = append(full, domain.RolePermission{MenuID: m.ID, CanCreate: true, CanView: true, CanUpdate: true, CanDelete: true})
	}
	return []domain.Role{
		{RoleID: 1, Name: "Admin", Description: "Full access", Permissions: full},
		{RoleID: 4, Name: "Project Supervisor", Description: "Site supervision", Permissions: []domain.RolePermission{
			{MenuID: 1, CanView: true},
			{MenuID: 2, CanView: true, CanUpdate: true},
			{MenuID: 3, CanView: false},
		}},
	}
}

// Directory is the in-memory data of the dev backend.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	menus    []domain.Menu
	roles    map[int64]domain.Role
	nextRole int64
}

// NewDirectory hashes seeds with bcrypt at cost and loads the default menus and roles.
func NewDirectory(seeds []Seed, cost int) (*Directory, error) {
	d := &Directory{
		accounts: make(map[string]Account, len(seeds)),
		menus:    slices.Clone(DefaultMenus),
		roles:    make(map[int64]domain.Role),
	}
	for _, s := range seeds {
		hash, err := auth.HashPassword(s.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", s.Email, err)
		}
		acc := s.Account
		acc.PasswordHash = hash
		d.accounts[strings.ToLower(acc.Email)] = acc
	}
	for _, r := range defaultRoles() {
		d.roles[r.RoleID] = r
		d.nextRole = max(d.nextRole, r.RoleID)
	}
	return d, nil
}

// Authenticate returns the account for email when password matches.
func (d *Directory) Authenticate(email, password string) (Account, bool) {
	d.mu.RLock()
	acc, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	d.mu.RUnlock()
	if !ok {
		return Account{}, false
	}
	if err := auth.ComparePassword(acc.PasswordHash, password); err != nil {
		return Account{}, false
	}
	return acc, true
}

// Menus returns every menu.
func (d *Directory) Menus() []domain.Menu {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.menus)
}

// Roles returns every role without permissions, ordered by id.
func (d *Directory) Roles() []domain.Role {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Role, 0, len(d.roles))
	for _, r := range d.roles {
		r.Permissions = nil
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Role) int { return int(a.RoleID - b.RoleID) })
	return out
}

// Role returns one role with its permissions.
func (d *Directory) Role(id int64) (domain.Role, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.roles[id]
	r.Permissions = slices.Clone(r.Permissions)
	return r, ok
}

// RoleByName finds a role case-insensitively.
func (d *Directory) RoleByName(name string) (domain.Role, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.roles {
		if strings.EqualFold(r.Name, name) {
			r.Permissions = slices.Clone(r.Permissions)
			return r, true
		}
	}
	return domain.Role{}, false
}

// CreateRole stores a new role.
func (d *Directory) CreateRole(in domain.RoleInput) domain.Role {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextRole++
	r := domain.Role{RoleID: d.nextRole, Name: in.Name, Description: in.Description, Permissions: slices.Clone(in.Permissions)}
	d.roles[r.RoleID] = r
	return r
}

// UpdateRole replaces an existing role.
func (d *Directory) UpdateRole(id int64, in domain.RoleInput) (domain.Role, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[id]; !ok {
		return domain.Role{}, false
	}
	r := domain.Role{RoleID: id, Name: in.Name, Description: in.Description, Permissions: slices.Clone(in.Permissions)}
	d.roles[id] = r
	return r, true
}

// DeleteRole removes a role.
func (d *Directory) DeleteRole(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[id]; !ok {
		return false
	}
	delete(d.roles, id)
	return true
}

// Allows reports whether role grants check on the named menu. Unknown roles grant nothing.
func (d *Directory) Allows(role, menu string, check func(domain.RolePermission) bool) bool {
	r, ok := d.RoleByName(role)
	if !ok {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var menuID int64
	for _, m := range d.menus {
		if m.MenuName == menu {
			menuID = m.ID
		}
	}
	for _, p := range r.Permissions {
		if p.MenuID == menuID && check(p) {
			return true
		}
	}
	return false
}
