// Package permission holds the catalog of known permission tokens and the
// seed definitions of the built-in system roles.
package permission

import (
	"fmt"
	"strings"
)

// Definition describes one permission token of the form resource:action.
type Definition struct {
	Name        string
	Description string
}

// Resource returns the part before the colon.
func (d Definition) Resource() string {
	resource, _, _ := strings.Cut(d.Name, ":")
	return resource
}

// Action returns the part after the colon.
func (d Definition) Action() string {
	_, action, _ := strings.Cut(d.Name, ":")
	return action
}

// SystemRole is the seed of a built-in role created at bootstrap.
type SystemRole struct {
	Name        string
	DisplayName string
	Description string
	Permissions []string
}

// Catalog is an immutable registry of permissions and system role seeds.
// Build it once and pass it to whatever needs it.
type Catalog struct {
	defs        map[string]Definition
	order       []string
	systemRoles []SystemRole
	systemIndex map[string]int
}

func NewCatalog(defs []Definition, systemRoles []SystemRole) (*Catalog, error) {
	c := &Catalog{
		defs:        make(map[string]Definition, len(defs)),
		order:       make([]string, 0, len(defs)),
		systemIndex: make(map[string]int, len(systemRoles)),
	}

	for _, d := range defs {
		resource, action, ok := strings.Cut(d.Name, ":")
		if !ok || resource == "" || action == "" || strings.Contains(action, ":") {
			return nil, fmt.Errorf("permission %q must have the form resource:action", d.Name)
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate permission %q", d.Name)
		}
		c.defs[d.Name] = d
		c.order = append(c.order, d.Name)
	}

	for _, r := range systemRoles {
		if r.Name == "" {
			return nil, fmt.Errorf("system role name is required")
		}
		if _, dup := c.systemIndex[r.Name]; dup {
			return nil, fmt.Errorf("duplicate system role %q", r.Name)
		}
		if unknown := c.Unknown(r.Permissions); len(unknown) > 0 {
			return nil, fmt.Errorf("system role %s references unknown permissions: %s", r.Name, strings.Join(unknown, ", "))
		}
		perms := Normalize(r.Permissions)
		c.systemIndex[r.Name] = len(c.systemRoles)
		c.systemRoles = append(c.systemRoles, SystemRole{
			Name:        r.Name,
			DisplayName: r.DisplayName,
			Description: r.Description,
			Permissions: perms,
		})
	}

	return c, nil
}

func (c *Catalog) IsKnownPermission(p string) bool {
	_, ok := c.defs[p]
	return ok
}

func (c *Catalog) Describe(p string) (string, bool) {
	d, ok := c.defs[p]
	return d.Description, ok
}

// Unknown returns the entries of perms that are not in the catalog.
func (c *Catalog) Unknown(perms []string) []string {
	var unknown []string
	for _, p := range perms {
		if !c.IsKnownPermission(p) {
			unknown = append(unknown, p)
		}
	}
	return unknown
}

// Permissions lists every permission name in declaration order.
func (c *Catalog) Permissions() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.defs[name])
	}
	return out
}

func (c *Catalog) SystemRoles() []SystemRole {
	out := make([]SystemRole, len(c.systemRoles))
	for i, r := range c.systemRoles {
		r.Permissions = append([]string(nil), r.Permissions...)
		out[i] = r
	}
	return out
}

func (c *Catalog) SystemRole(name string) (SystemRole, bool) {
	i, ok := c.systemIndex[name]
	if !ok {
		return SystemRole{}, false
	}
	r := c.systemRoles[i]
	r.Permissions = append([]string(nil), r.Permissions...)
	return r, true
}

func (c *Catalog) IsSystemRoleName(name string) bool {
	_, ok := c.systemIndex[name]
	return ok
}
