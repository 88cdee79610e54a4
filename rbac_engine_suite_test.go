package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/rbac-engine/internal/audit"
	"github.com/frahmantamala/rbac-engine/internal/auth"
	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-engine/internal/core/events"
	"github.com/frahmantamala/rbac-engine/internal/permission"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
	rbacPostgres "github.com/frahmantamala/rbac-engine/internal/rbac/postgres"
	"github.com/frahmantamala/rbac-engine/internal/transport/rest"
	"github.com/frahmantamala/rbac-engine/internal/user"
	userPostgres "github.com/frahmantamala/rbac-engine/internal/user/postgres"
	"github.com/frahmantamala/rbac-engine/pkg/logger"
)

func TestRBACEngine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RBAC Engine Suite")
}

const auditDDL = `
CREATE TABLE audit_events (
    id          TEXT PRIMARY KEY,
    action      TEXT NOT NULL,
    actor_id    TEXT NOT NULL DEFAULT '',
    tenant_id   TEXT NOT NULL DEFAULT '',
    target_type TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    metadata    TEXT NOT NULL DEFAULT '{}',
    occurred_at TIMESTAMP NOT NULL
)`

type stack struct {
	bus     *events.EventBus
	audit   *audit.Store
	service *rbac.Service
	router  *chi.Mux
	tokens  *auth.JWTTokenManager
}

// newStack wires the engine the way the server does, over one in-memory
// sqlite database shared by gorm and sqlx.
func newStack() *stack {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	sdb, err := sqlx.Open("sqlite3", dsn)
	Expect(err).NotTo(HaveOccurred())
	sdb.SetMaxOpenConns(1)
	DeferCleanup(sdb.Close)

	gdb, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sdb.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(gdb.AutoMigrate(&rbacDatamodel.Role{}, &rbacDatamodel.UserRole{}, &userDatamodel.User{})).To(Succeed())
	Expect(gdb.Exec(`CREATE UNIQUE INDEX idx_user_roles_active ON user_roles (user_id, role_id) WHERE is_active`).Error).To(Succeed())
	_, err = sdb.Exec(auditDDL)
	Expect(err).NotTo(HaveOccurred())

	for _, id := range []string{"root", "agent-7", "senior-1"} {
		Expect(gdb.Create(&userDatamodel.User{ID: id, Email: id + "@example.com", Name: id, IsActive: true}).Error).To(Succeed())
	}

	lg := logger.Discard()
	s := &stack{
		bus:    events.NewEventBus(lg),
		audit:  audit.NewStore(sdb),
		tokens: auth.NewJWTTokenManager("e2e-secret-0123456789", time.Minute),
	}
	audit.NewEventHandler(s.audit, lg).RegisterEventHandlers(s.bus)
	DeferCleanup(s.bus.Wait)

	users := user.NewService(userPostgres.NewUserRepository(gdb), lg)
	s.service = rbac.NewService(
		rbacPostgres.NewRoleRepository(gdb),
		rbacPostgres.NewUserRoleRepository(gdb),
		permission.Default(),
		lg,
		rbac.WithEventPublisher(s.bus),
		rbac.WithCache(rbac.NewMemoryCache(time.Minute)),
		rbac.WithUserDirectory(users),
	)

	rbacHandler := rbac.NewHandler(s.service, lg)
	s.router = chi.NewRouter()
	rest.RegisterAllRoutes(s.router, rest.Routes{
		Health:          rest.NewHealthHandler(map[string]rest.HealthCheck{"database": sdb.PingContext}),
		Authenticate:    auth.NewMiddleware(s.tokens, lg).Authenticate,
		Guard:           auth.NewRBACAuthorization(s.service, lg),
		Authorize:       rbacHandler.Authorize,
		MyPermissions:   rbacHandler.GetMyPermissions,
		MyRoles:         rbacHandler.GetMyRoles,
		CurrentUser:     user.NewHandler(users, lg).GetCurrentUser,
		AuditEvents:     audit.NewHandler(s.audit, lg).ListEvents,
		AuditPermission: "audit:read",
	}, lg)
	return s
}

func (s *stack) get(path, userID, tenantID string) *httptest.ResponseRecorder {
	token, err := s.tokens.GenerateToken(userID, tenantID)
	Expect(err).NotTo(HaveOccurred())
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *stack) roleID(ctx context.Context, name, tenantID string) string {
	role, err := s.service.FindRoleByName(ctx, name, tenantID)
	Expect(err).NotTo(HaveOccurred())
	Expect(role).NotTo(BeNil(), "role %s in %q", name, tenantID)
	return role.ID
}

var _ = Describe("RBAC engine end to end", func() {
	var (
		ctx context.Context
		s   *stack
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStack()

		created, err := s.service.InitializeSystemRoles(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(Equal(5))
	})

	It("should bootstrap idempotently", func() {
		for i := 0; i < 2; i++ {
			created, err := s.service.InitializeSystemRoles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeZero())
		}
		res, err := s.service.SearchRoles(ctx, rbac.SearchFilter{Type: rbac.RoleTypeSystem}, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Total).To(BeEquivalentTo(5))
	})

	It("should grant a tenant role its own and inherited permissions", func() {
		senior, err := s.service.CreateRole(ctx, rbac.CreateRoleDTO{
			Name:           "SENIOR_AGENT",
			DisplayName:    "Senior Agent",
			Permissions:    []string{"leads:export"},
			InheritedRoles: []string{permission.RoleAgent},
		}, "acme", "root")
		Expect(err).NotTo(HaveOccurred())

		_, err = s.service.AssignRoleToUser(ctx, "senior-1", senior.ID, "acme", "root", "promotion")
		Expect(err).NotTo(HaveOccurred())

		agentSeed, _ := permission.Default().SystemRole(permission.RoleAgent)
		perms, err := s.service.GetUserPermissions(ctx, "senior-1", "acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(perms.Has("leads:export")).To(BeTrue())
		Expect(perms.Has("users:create")).To(BeFalse())
		Expect(perms.HasAll(agentSeed.Permissions...)).To(BeTrue())
		Expect(perms.Len()).To(Equal(len(agentSeed.Permissions) + 1))

		other, err := s.service.GetUserPermissions(ctx, "senior-1", "globex")
		Expect(err).NotTo(HaveOccurred())
		Expect(other.Len()).To(BeZero())

		rec := s.get("/api/v1/me/permissions", "senior-1", "acme")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var body rbac.PermissionsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Permissions).To(ContainElement("leads:export"))

		s.bus.Wait()
		records, err := s.audit.List(ctx, audit.Filter{TenantID: "acme"})
		Expect(err).NotTo(HaveOccurred())
		actions := make([]string, 0, len(records))
		for _, r := range records {
			actions = append(actions, r.Action)
		}
		Expect(actions).To(ConsistOf(events.EventTypeRoleCreated, events.EventTypeUserRoleAssigned))
	})

	It("should take permissions away on revocation", func() {
		agentID := s.roleID(ctx, permission.RoleAgent, rbac.GlobalTenant)
		_, err := s.service.AssignRoleToUser(ctx, "agent-7", agentID, "acme", "root", "")
		Expect(err).NotTo(HaveOccurred())

		ok, err := s.service.HasPermission(ctx, "agent-7", "acme", "leads:read")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		Expect(s.service.RevokeRoleFromUser(ctx, "agent-7", agentID, "root", "left the team")).To(Succeed())

		ok, err = s.service.HasPermission(ctx, "agent-7", "acme", "leads:read")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		roles, err := s.service.GetUserRoles(ctx, "agent-7", "acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(roles).To(BeEmpty())

		_, err = s.service.AssignRoleToUser(ctx, "agent-7", agentID, "acme", "root", "rehired")
		Expect(err).NotTo(HaveOccurred())

		s.bus.Wait()
		revoked, err := s.audit.List(ctx, audit.Filter{Action: events.EventTypeUserRoleRevoked})
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(HaveLen(1))
		Expect(revoked[0].Reason).To(Equal("left the team"))
	})

	It("should refuse users missing from the directory", func() {
		agentID := s.roleID(ctx, permission.RoleAgent, rbac.GlobalTenant)
		_, err := s.service.AssignRoleToUser(ctx, "ghost", agentID, "acme", "root", "")
		Expect(err).To(MatchError(rbac.ErrUserNotFound))
	})

	It("should guard the audit trail with audit:read", func() {
		agentID := s.roleID(ctx, permission.RoleAgent, rbac.GlobalTenant)
		adminID := s.roleID(ctx, permission.RoleTenantAdmin, rbac.GlobalTenant)
		_, err := s.service.AssignRoleToUser(ctx, "agent-7", agentID, "acme", "root", "")
		Expect(err).NotTo(HaveOccurred())
		_, err = s.service.AssignRoleToUser(ctx, "root", adminID, "acme", "root", "")
		Expect(err).NotTo(HaveOccurred())
		s.bus.Wait()

		Expect(s.get("/api/v1/audit", "agent-7", "acme").Code).To(Equal(http.StatusForbidden))

		rec := s.get("/api/v1/audit", "root", "acme")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var body audit.ListResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Records).To(HaveLen(2))
	})

	It("should report health", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
