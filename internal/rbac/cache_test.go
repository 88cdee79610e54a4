package rbac_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

var _ = Describe("MemoryCache", func() {
	var (
		ctx   context.Context
		cache *rbac.MemoryCache
	)

	fill := func(c *rbac.MemoryCache, userID, tenantID string, perms ...string) {
		_, version, ok, err := c.Get(ctx, userID, tenantID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(c.Set(ctx, userID, tenantID, version, perms)).To(Succeed())
	}

	hit := func(userID, tenantID string) bool {
		_, _, ok, err := cache.Get(ctx, userID, tenantID)
		Expect(err).NotTo(HaveOccurred())
		return ok
	}

	BeforeEach(func() {
		ctx = context.Background()
		cache = rbac.NewMemoryCache(time.Minute)
		fill(cache, "u1", "t1", "a:read")
		fill(cache, "u1", "t2", "b:read")
		fill(cache, "u1", "", "a:read", "b:read")
		fill(cache, "u2", "t1", "c:read")
	})

	It("should return what was stored", func() {
		perms, _, ok, err := cache.Get(ctx, "u1", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(perms).To(Equal([]string{"a:read"}))
	})

	It("should drop every entry of a user", func() {
		Expect(cache.InvalidateUser(ctx, "u1")).To(Succeed())
		Expect(hit("u1", "t1")).To(BeFalse())
		Expect(hit("u1", "")).To(BeFalse())
		Expect(hit("u2", "t1")).To(BeTrue())
	})

	It("should drop a tenant and the tenant-less views", func() {
		Expect(cache.InvalidateTenant(ctx, "t1")).To(Succeed())
		Expect(hit("u1", "t1")).To(BeFalse())
		Expect(hit("u2", "t1")).To(BeFalse())
		Expect(hit("u1", "")).To(BeFalse())
		Expect(hit("u1", "t2")).To(BeTrue())
	})

	It("should drop everything for the global scope", func() {
		Expect(cache.InvalidateTenant(ctx, rbac.GlobalTenant)).To(Succeed())
		Expect(hit("u1", "t2")).To(BeFalse())
		Expect(hit("u2", "t1")).To(BeFalse())
	})

	It("should expire entries", func() {
		short := rbac.NewMemoryCache(time.Nanosecond)
		fill(short, "u1", "t1", "a:read")
		time.Sleep(time.Millisecond)
		_, _, ok, err := short.Get(ctx, "u1", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	Describe("writes that lost a race with an invalidation", func() {
		It("should be dropped after a user invalidation", func() {
			_, version, ok, err := cache.Get(ctx, "u3", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			Expect(cache.InvalidateUser(ctx, "u3")).To(Succeed())
			Expect(cache.Set(ctx, "u3", "t1", version, []string{"a:read"})).To(Succeed())
			Expect(hit("u3", "t1")).To(BeFalse())
		})

		It("should be dropped after a tenant or global invalidation", func() {
			_, inTenant, _, _ := cache.Get(ctx, "u3", "t1")
			_, tenantless, _, _ := cache.Get(ctx, "u3", "")
			Expect(cache.InvalidateTenant(ctx, "t1")).To(Succeed())
			Expect(cache.Set(ctx, "u3", "t1", inTenant, []string{"a:read"})).To(Succeed())
			Expect(cache.Set(ctx, "u3", "", tenantless, []string{"a:read"})).To(Succeed())
			Expect(hit("u3", "t1")).To(BeFalse())
			Expect(hit("u3", "")).To(BeFalse())

			_, other, _, _ := cache.Get(ctx, "u3", "t2")
			Expect(cache.InvalidateTenant(ctx, rbac.GlobalTenant)).To(Succeed())
			Expect(cache.Set(ctx, "u3", "t2", other, []string{"a:read"})).To(Succeed())
			Expect(hit("u3", "t2")).To(BeFalse())
		})

		It("should keep writes unaffected by the invalidation", func() {
			_, version, _, _ := cache.Get(ctx, "u3", "t2")
			Expect(cache.InvalidateUser(ctx, "u4")).To(Succeed())
			Expect(cache.Set(ctx, "u3", "t2", version, []string{"a:read"})).To(Succeed())
			Expect(hit("u3", "t2")).To(BeTrue())
		})

		It("should never store without a version", func() {
			Expect(cache.Set(ctx, "u3", "t1", "", []string{"a:read"})).To(Succeed())
			Expect(hit("u3", "t1")).To(BeFalse())
		})
	})
})
