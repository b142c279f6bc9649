package identity

import (
	"context"
	"errors"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
)

// Coordinator is the slice of the coordinator client the identity
// service depends on.
type Coordinator interface {
	ProbeToken(ctx context.Context, tenantID, token string) error
	FetchTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// Service authenticates inbound events against cached tenant identity,
// falling back to the coordinator on a miss.
type Service struct {
	cache *Cache
	coord Coordinator
}

func NewService(cache *Cache, coord Coordinator) *Service {
	return &Service{cache: cache, coord: coord}
}

// GetValidatedTenant authenticates presentedToken for tenantID and
// returns the tenant graph.
//
// Cache hit: the cached token record decides alone; matching either the
// current or the prior secret requires zero coordinator calls. Cache
// miss or mismatch: probe the token cheaply first, and only fetch the
// full tenant graph once the probe passes. Both caches are written
// through on the way out.
func (s *Service) GetValidatedTenant(ctx context.Context, tenantID, presentedToken string) (*models.Tenant, error) {
	if cached := s.cache.Token(tenantID); cached != nil {
		if !cached.Validate(presentedToken) {
			metrics.AuthFailures.WithLabelValues(tenantID).Inc()
			return nil, griderr.Authentication(tenantID)
		}
		if tenant := s.cache.Tenant(tenantID); tenant != nil {
			metrics.IdentityCacheHits.WithLabelValues("hit").Inc()
			return tenant, nil
		}
	}
	metrics.IdentityCacheHits.WithLabelValues("miss").Inc()

	if err := s.coord.ProbeToken(ctx, tenantID, presentedToken); err != nil {
		var authErr *griderr.MessageAuthenticationError
		if errors.As(err, &authErr) {
			metrics.AuthFailures.WithLabelValues(tenantID).Inc()
		}
		return nil, err
	}

	tenant, err := s.coord.FetchTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.cache.PutToken(tenantID, tenant.Token)
	s.cache.PutTenant(tenant)
	return tenant, nil
}
