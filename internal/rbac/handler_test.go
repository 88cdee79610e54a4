package rbac_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appErrors "github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/permission"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
	"github.com/frahmantamala/rbac-engine/pkg/logger"
)

var _ = Describe("Handler", func() {
	var (
		ctx     context.Context
		service *rbac.Service
		handler *rbac.Handler
	)

	roleID := func(name string) string {
		res, err := service.SearchRoles(ctx, rbac.SearchFilter{Query: name}, "")
		Expect(err).NotTo(HaveOccurred())
		for _, r := range res.Roles {
			if r.Name == name {
				return r.ID
			}
		}
		Fail("role " + name + " not found")
		return ""
	}

	do := func(method, path string, body interface{}, userID, tenantID string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if userID != "" {
			rctx := appErrors.ContextWithUserID(req.Context(), userID)
			rctx = appErrors.ContextWithTenantID(rctx, tenantID)
			req = req.WithContext(rctx)
		}
		rec := httptest.NewRecorder()
		switch path {
		case "/authorize":
			handler.Authorize(rec, req)
		case "/me/permissions":
			handler.GetMyPermissions(rec, req)
		case "/me/roles":
			handler.GetMyRoles(rec, req)
		}
		return rec
	}

	BeforeEach(func() {
		ctx = context.Background()
		service = rbac.NewService(NewMockRoleRepository(), NewMockUserRoleRepository(), permission.Default(), logger.Discard(),
			rbac.WithCache(rbac.NewMemoryCache(time.Minute)))
		_, err := service.InitializeSystemRoles(ctx)
		Expect(err).NotTo(HaveOccurred())
		handler = rbac.NewHandler(service, logger.Discard())

		_, err = service.AssignRoleToUser(ctx, "agent-1", roleID(permission.RoleAgent), "t1", "admin", "")
		Expect(err).NotTo(HaveOccurred())
		_, err = service.AssignRoleToUser(ctx, "admin-1", roleID(permission.RoleTenantAdmin), "t1", "admin", "")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Authorize", func() {
		It("should check the caller by default", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"permissions": []string{"leads:read", "leads:delete"},
			}, "agent-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var decision rbac.Decision
			Expect(json.Unmarshal(rec.Body.Bytes(), &decision)).To(Succeed())
			Expect(decision.Allowed).To(BeFalse())
			Expect(decision.Missing).To(Equal([]string{"leads:delete"}))
		})

		It("should honour any mode", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"permissions": []string{"leads:read", "leads:delete"},
				"mode":        "any",
			}, "agent-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var decision rbac.Decision
			Expect(json.Unmarshal(rec.Body.Bytes(), &decision)).To(Succeed())
			Expect(decision.Allowed).To(BeTrue())
		})

		It("should let an admin inspect another user", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"user_id":     "agent-1",
				"permissions": []string{"leads:read"},
			}, "admin-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should stop an agent from inspecting another user", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"user_id":     "admin-1",
				"permissions": []string{"leads:read"},
			}, "agent-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("should refuse cross-tenant checks from a tenant-bound caller", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"tenant_id":   "t2",
				"permissions": []string{"leads:read"},
			}, "admin-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("should reject an invalid body", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"permissions": []string{},
			}, "agent-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			rec = do(http.MethodPost, "/authorize", map[string]interface{}{
				"permissions": []string{"leads:read"},
				"mode":        "most",
			}, "agent-1", "t1")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should answer 401 without a caller", func() {
			rec := do(http.MethodPost, "/authorize", map[string]interface{}{
				"permissions": []string{"leads:read"},
			}, "", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	It("should list the caller's effective permissions", func() {
		rec := do(http.MethodGet, "/me/permissions", nil, "agent-1", "t1")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp rbac.PermissionsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		seed, _ := permission.Default().SystemRole(permission.RoleAgent)
		Expect(resp.Permissions).To(ConsistOf(seed.Permissions))
		Expect(resp.TenantID).To(Equal("t1"))
	})

	It("should list the caller's roles", func() {
		rec := do(http.MethodGet, "/me/roles", nil, "agent-1", "t1")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp rbac.RolesResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Roles).To(HaveLen(1))
		Expect(resp.Roles[0].Name).To(Equal(permission.RoleAgent))
	})

	It("should return an empty list for a user without roles", func() {
		rec := do(http.MethodGet, "/me/permissions", nil, "nobody", "t1")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp rbac.PermissionsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Permissions).To(BeEmpty())
	})
})
