package rbac_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-engine/internal/rbac"
	"github.com/frahmantamala/rbac-engine/pkg/logger"
)

type roleTable map[string]*rbac.Role

func scopeKey(tenantID, name string) string {
	return tenantID + "/" + name
}

func (t roleTable) add(r *rbac.Role) {
	t[scopeKey(r.TenantID, r.Name)] = r
}

func (t roleTable) FindRoleByName(_ context.Context, name, tenantID string) (*rbac.Role, error) {
	return t[scopeKey(tenantID, name)], nil
}

func role(name, tenantID string, perms []string, inherits ...string) *rbac.Role {
	return &rbac.Role{
		ID:             name + "-" + tenantID,
		Name:           name,
		Type:           rbac.RoleTypeCustom,
		Permissions:    perms,
		InheritedRoles: inherits,
		TenantID:       tenantID,
		IsActive:       true,
	}
}

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		table    roleTable
		resolver *rbac.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		table = roleTable{}
		resolver = rbac.NewResolver(0, logger.Discard())

		agent := role("AGENT", "", []string{"leads:read", "leads:update"})
		agent.Type = rbac.RoleTypeSystem
		table.add(agent)
	})

	It("should union own and inherited permissions", func() {
		senior := role("SENIOR_AGENT", "t1", []string{"leads:export"}, "AGENT")
		table.add(senior)

		perms := resolver.ResolveEffectivePermissions(ctx, senior, table)
		Expect(perms.Sorted()).To(Equal([]string{"leads:export", "leads:read", "leads:update"}))
	})

	It("should terminate on cycles and count each role once", func() {
		x := role("X", "t1", []string{"deals:read"}, "Y")
		y := role("Y", "t1", []string{"deals:update"}, "X")
		table.add(x)
		table.add(y)

		Expect(resolver.ResolveEffectivePermissions(ctx, x, table).Sorted()).To(Equal([]string{"deals:read", "deals:update"}))
		Expect(resolver.ResolveEffectivePermissions(ctx, y, table).Sorted()).To(Equal([]string{"deals:read", "deals:update"}))
	})

	It("should handle self references", func() {
		self := role("SELF", "t1", []string{"tasks:read"}, "SELF")
		table.add(self)
		Expect(resolver.ResolveEffectivePermissions(ctx, self, table).Sorted()).To(Equal([]string{"tasks:read"}))
	})

	It("should skip dangling references", func() {
		r := role("R", "t1", []string{"tasks:read"}, "GHOST", "AGENT")
		Expect(resolver.ResolveEffectivePermissions(ctx, r, table).Sorted()).To(Equal([]string{"leads:read", "leads:update", "tasks:read"}))
	})

	It("should treat inactive roles as opaque", func() {
		middle := role("MIDDLE", "t1", []string{"deals:read"}, "AGENT")
		middle.IsActive = false
		table.add(middle)
		top := role("TOP", "t1", []string{"tasks:read"}, "MIDDLE")

		Expect(resolver.ResolveEffectivePermissions(ctx, top, table).Sorted()).To(Equal([]string{"tasks:read"}))
		Expect(resolver.ResolveEffectivePermissions(ctx, middle, table).Len()).To(Equal(0))
	})

	It("should prefer the tenant's role and never cross into another tenant", func() {
		table.add(role("SALES", "", []string{"reports:read"}))
		table.add(role("SALES", "t1", []string{"deals:read"}))
		table.add(role("PRIVATE", "t2", []string{"audit:read"}))

		r := role("R", "t1", nil, "SALES", "PRIVATE")
		Expect(resolver.ResolveEffectivePermissions(ctx, r, table).Sorted()).To(Equal([]string{"deals:read"}))
	})

	It("should resolve a global role's parents in the global scope", func() {
		table.add(role("BASE", "t1", []string{"audit:read"}))
		table.add(role("BASE", "", []string{"reports:read"}))
		global := role("GLOBAL", "", nil, "BASE")

		Expect(resolver.ResolveEffectivePermissions(ctx, global, table).Sorted()).To(Equal([]string{"reports:read"}))
	})

	It("should stop at the configured depth", func() {
		table.add(role("L3", "t1", []string{"c:c"}))
		table.add(role("L2", "t1", []string{"b:b"}, "L3"))
		table.add(role("L1", "t1", []string{"a:a"}, "L2"))
		root := role("ROOT", "t1", []string{"r:r"}, "L1")

		shallow := rbac.NewResolver(2, logger.Discard())
		Expect(shallow.ResolveEffectivePermissions(ctx, root, table).Sorted()).To(Equal([]string{"a:a", "b:b", "r:r"}))
		Expect(resolver.ResolveEffectivePermissions(ctx, root, table).Sorted()).To(Equal([]string{"a:a", "b:b", "c:c", "r:r"}))
	})

	It("should skip lookups that fail", func() {
		failing := rbac.RoleLookupFunc(func(context.Context, string, string) (*rbac.Role, error) {
			return nil, errors.New("store unavailable")
		})
		r := role("R", "t1", []string{"tasks:read"}, "AGENT")
		Expect(resolver.ResolveEffectivePermissions(ctx, r, failing).Sorted()).To(Equal([]string{"tasks:read"}))
	})

	It("should union several roles in one pass", func() {
		a := role("A", "t1", []string{"a:read"}, "AGENT")
		b := role("B", "t1", []string{"b:read"}, "AGENT")
		Expect(resolver.ResolveMany(ctx, []*rbac.Role{a, b}, table).Sorted()).To(Equal([]string{"a:read", "b:read", "leads:read", "leads:update"}))
	})

	It("should return an empty set for a nil role", func() {
		Expect(resolver.ResolveEffectivePermissions(ctx, nil, table).Len()).To(Equal(0))
	})
})
