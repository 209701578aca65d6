package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

type contextKey string

const (
	tenantKey contextKey = "tenant"
	actorKey  contextKey = "actor"
)

// TenantHeader names the header carrying the tenant id.
const TenantHeader = "X-Tenant-ID"

// Actor headers. Roles are comma separated.
const (
	ActorIDHeader    = "X-Actor-ID"
	ActorRolesHeader = "X-Actor-Roles"
)

// WithTenant resolves the tenant from the request header and rejects
// requests for tenants the server does not serve.
func WithTenant(tenants map[string]pressroom.TenantContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(TenantHeader)
			if id == "" {
				http.Error(w, "missing "+TenantHeader+" header", http.StatusBadRequest)
				return
			}
			tenant, ok := tenants[id]
			if !ok {
				http.Error(w, "unknown tenant: "+id, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), tenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor parses the acting user from request headers. Requests
// without an actor id proceed with a zero actor; capability checks
// decide what it may do.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var actor pressroom.Actor
		if raw := r.Header.Get(ActorIDHeader); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid "+ActorIDHeader+" header", http.StatusBadRequest)
				return
			}
			actor.ID = id
		}
		if raw := r.Header.Get(ActorRolesHeader); raw != "" {
			for _, role := range strings.Split(raw, ",") {
				if role = strings.TrimSpace(role); role != "" {
					actor.Roles = append(actor.Roles, role)
				}
			}
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantFromContext returns the tenant resolved by WithTenant.
func TenantFromContext(ctx context.Context) (pressroom.TenantContext, bool) {
	tenant, ok := ctx.Value(tenantKey).(pressroom.TenantContext)
	return tenant, ok
}

// ActorFromContext returns the actor parsed by WithActor.
func ActorFromContext(ctx context.Context) pressroom.Actor {
	actor, _ := ctx.Value(actorKey).(pressroom.Actor)
	return actor
}
