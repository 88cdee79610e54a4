package permission

const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleManager     = "MANAGER"
	RoleAgent       = "AGENT"
	RoleViewer      = "VIEWER"
)

var defaultDefinitions = []Definition{
	{"leads:create", "Create leads"},
	{"leads:read", "View leads"},
	{"leads:update", "Edit leads"},
	{"leads:delete", "Delete leads"},
	{"leads:export", "Export leads"},
	{"leads:import", "Import leads"},
	{"leads:assign", "Assign leads to agents"},

	{"contacts:create", "Create contacts"},
	{"contacts:read", "View contacts"},
	{"contacts:update", "Edit contacts"},
	{"contacts:delete", "Delete contacts"},
	{"contacts:export", "Export contacts"},

	{"deals:create", "Create deals"},
	{"deals:read", "View deals"},
	{"deals:update", "Edit deals"},
	{"deals:delete", "Delete deals"},

	{"tasks:create", "Create tasks"},
	{"tasks:read", "View tasks"},
	{"tasks:update", "Edit tasks"},
	{"tasks:delete", "Delete tasks"},

	{"activities:read", "View the activity feed"},

	{"reports:read", "View reports"},
	{"reports:export", "Export reports"},

	{"dashboard:read", "View the dashboard"},

	{"users:create", "Invite users"},
	{"users:read", "View users"},
	{"users:update", "Edit users"},
	{"users:delete", "Remove users"},

	{"roles:create", "Create custom roles"},
	{"roles:read", "View roles"},
	{"roles:update", "Edit custom roles"},
	{"roles:delete", "Delete custom roles"},
	{"roles:assign", "Assign and revoke roles"},

	{"tenants:create", "Create tenants"},
	{"tenants:read", "View tenant details"},
	{"tenants:update", "Edit tenants"},
	{"tenants:delete", "Delete tenants"},

	{"settings:read", "View tenant settings"},
	{"settings:update", "Edit tenant settings"},

	{"audit:read", "View the audit trail"},
}

// Default returns the built-in CRM catalog with its five system roles.
func Default() *Catalog {
	all := make([]string, 0, len(defaultDefinitions))
	for _, d := range defaultDefinitions {
		all = append(all, d.Name)
	}

	tenantAdmin := make([]string, 0, len(all))
	for _, p := range all {
		switch p {
		case "tenants:create", "tenants:update", "tenants:delete":
			continue
		}
		tenantAdmin = append(tenantAdmin, p)
	}

	c, err := NewCatalog(defaultDefinitions, []SystemRole{
		{
			Name:        RoleSuperAdmin,
			DisplayName: "Super Admin",
			Description: "Unrestricted access across all tenants",
			Permissions: all,
		},
		{
			Name:        RoleTenantAdmin,
			DisplayName: "Tenant Admin",
			Description: "Full access inside a tenant, no tenant lifecycle management",
			Permissions: tenantAdmin,
		},
		{
			Name:        RoleManager,
			DisplayName: "Manager",
			Description: "Runs a sales team: full pipeline access and reporting",
			Permissions: []string{
				"leads:create", "leads:read", "leads:update", "leads:delete",
				"leads:export", "leads:import", "leads:assign",
				"contacts:create", "contacts:read", "contacts:update", "contacts:delete", "contacts:export",
				"deals:create", "deals:read", "deals:update", "deals:delete",
				"tasks:create", "tasks:read", "tasks:update", "tasks:delete",
				"activities:read",
				"reports:read", "reports:export",
				"dashboard:read",
				"users:read",
				"roles:read",
			},
		},
		{
			Name:        RoleAgent,
			DisplayName: "Agent",
			Description: "Works leads, contacts, deals and tasks",
			Permissions: []string{
				"leads:create", "leads:read", "leads:update",
				"contacts:create", "contacts:read", "contacts:update",
				"deals:create", "deals:read", "deals:update",
				"tasks:create", "tasks:read", "tasks:update",
				"dashboard:read",
			},
		},
		{
			Name:        RoleViewer,
			DisplayName: "Viewer",
			Description: "Read-only access to the sales pipeline",
			Permissions: []string{
				"leads:read", "contacts:read", "deals:read", "tasks:read",
				"reports:read", "dashboard:read",
			},
		},
	})
	if err != nil {
		panic("permission: invalid default catalog: " + err.Error())
	}
	return c
}
