package rbac_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-engine/internal/core/events"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

// MockRoleRepository keeps roles in memory and mimics the unique index on
// (tenant_id, name). hideNames makes GetByName miss, as if a concurrent
// insert landed between the check and the write.
type MockRoleRepository struct {
	roles      map[string]*rbacDatamodel.Role
	shouldFail bool
	failError  error
	hideNames  bool
}

func NewMockRoleRepository() *MockRoleRepository {
	return &MockRoleRepository{roles: make(map[string]*rbacDatamodel.Role)}
}

func (m *MockRoleRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockRoleRepository) Create(_ context.Context, role *rbacDatamodel.Role) error {
	if m.shouldFail {
		return m.failError
	}
	for _, r := range m.roles {
		if r.TenantID == role.TenantID && r.Name == role.Name {
			return rbac.ErrDuplicateKey
		}
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *MockRoleRepository) GetByID(_ context.Context, id string) (*rbacDatamodel.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	r, ok := m.roles[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockRoleRepository) GetByName(_ context.Context, name, tenantID string) (*rbacDatamodel.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	if m.hideNames {
		return nil, nil
	}
	for _, r := range m.roles {
		if r.TenantID == tenantID && r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRoleRepository) Search(_ context.Context, q rbac.RoleQuery) ([]*rbacDatamodel.Role, int64, error) {
	if m.shouldFail {
		return nil, 0, m.failError
	}
	var matched []*rbacDatamodel.Role
	for _, r := range m.roles {
		if q.TenantID != "" && r.TenantID != q.TenantID && r.TenantID != "" {
			continue
		}
		if q.Type != "" && r.Type != string(q.Type) {
			continue
		}
		if q.IsActive != nil && r.IsActive != *q.IsActive {
			continue
		}
		if q.Text != "" {
			text := strings.ToLower(q.Text)
			if !strings.Contains(strings.ToLower(r.Name), text) && !strings.Contains(strings.ToLower(r.DisplayName), text) {
				continue
			}
		}
		cp := *r
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []*rbacDatamodel.Role{}, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (m *MockRoleRepository) Update(_ context.Context, role *rbacDatamodel.Role) error {
	if m.shouldFail {
		return m.failError
	}
	for _, r := range m.roles {
		if r.ID != role.ID && r.TenantID == role.TenantID && r.Name == role.Name {
			return rbac.ErrDuplicateKey
		}
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *MockRoleRepository) Delete(_ context.Context, id string) error {
	if m.shouldFail {
		return m.failError
	}
	delete(m.roles, id)
	return nil
}

// AddRole inserts a fixture directly, bypassing the service.
func (m *MockRoleRepository) AddRole(role *rbac.Role) {
	m.roles[role.ID] = rbac.ToDataModel(role)
}

func (m *MockRoleRepository) Count() int {
	return len(m.roles)
}

// MockUserRoleRepository keeps assignments in memory. hideActive makes
// GetActive miss; staleReads makes it return revoked rows too, as a read that
// lost a race with a concurrent revoke would. afterList runs once a
// ListActiveByUser snapshot is taken, before it is returned.
type MockUserRoleRepository struct {
	rows       map[string]*rbacDatamodel.UserRole
	order      []string
	shouldFail bool
	failError  error
	hideActive bool
	staleReads bool
	afterList  func()
}

func NewMockUserRoleRepository() *MockUserRoleRepository {
	return &MockUserRoleRepository{rows: make(map[string]*rbacDatamodel.UserRole)}
}

func (m *MockUserRoleRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockUserRoleRepository) Create(_ context.Context, ur *rbacDatamodel.UserRole) error {
	if m.shouldFail {
		return m.failError
	}
	for _, r := range m.rows {
		if r.IsActive && r.UserID == ur.UserID && r.RoleID == ur.RoleID {
			return rbac.ErrDuplicateKey
		}
	}
	cp := *ur
	m.rows[ur.ID] = &cp
	m.order = append(m.order, ur.ID)
	return nil
}

func (m *MockUserRoleRepository) GetActive(_ context.Context, userID, roleID string) (*rbacDatamodel.UserRole, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	if m.hideActive {
		return nil, nil
	}
	for _, id := range m.order {
		r := m.rows[id]
		if (r.IsActive || m.staleReads) && r.UserID == userID && r.RoleID == roleID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockUserRoleRepository) ListActiveByUser(_ context.Context, userID, tenantID string) ([]*rbacDatamodel.UserRole, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*rbacDatamodel.UserRole
	for _, id := range m.order {
		r := m.rows[id]
		if !r.IsActive || r.UserID != userID {
			continue
		}
		if r.TenantID != tenantID && r.TenantID != rbac.GlobalTenant {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	if m.afterList != nil {
		m.afterList()
	}
	return out, nil
}

func (m *MockUserRoleRepository) Deactivate(_ context.Context, id string, rev rbac.Revocation) error {
	if m.shouldFail {
		return m.failError
	}
	r, ok := m.rows[id]
	if !ok || !r.IsActive {
		return rbac.ErrAssignmentNotFound
	}
	revoke(r, rev)
	return nil
}

func (m *MockUserRoleRepository) DeactivateByRole(_ context.Context, roleID string, rev rbac.Revocation) ([]*rbacDatamodel.UserRole, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*rbacDatamodel.UserRole
	for _, id := range m.order {
		r := m.rows[id]
		if r.IsActive && r.RoleID == roleID {
			revoke(r, rev)
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All returns every row, active or not, in insertion order.
func (m *MockUserRoleRepository) All() []*rbacDatamodel.UserRole {
	out := make([]*rbacDatamodel.UserRole, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}

func revoke(r *rbacDatamodel.UserRole, rev rbac.Revocation) {
	at := rev.RevokedAt
	r.IsActive = false
	r.RevokedAt = &at
	r.RevokedBy = rev.RevokedBy
	r.RevokeReason = rev.Reason
}

type MockDirectory struct {
	users map[string]bool
	err   error
}

func NewMockDirectory(userIDs ...string) *MockDirectory {
	d := &MockDirectory{users: make(map[string]bool)}
	for _, id := range userIDs {
		d.users[id] = true
	}
	return d
}

func (d *MockDirectory) Exists(_ context.Context, userID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.users[userID], nil
}

// RecordingPublisher captures published events and can be told to fail.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*events.AuditEvent
	err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ae, ok := event.(*events.AuditEvent); ok {
		p.events = append(p.events, ae)
	}
	return p.err
}

func (p *RecordingPublisher) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func (p *RecordingPublisher) Last() *events.AuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}
