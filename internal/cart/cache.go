package cart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/config"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
	"github.com/omarserrano/dishpatch-backend/pkg/metrics"
	redispkg "github.com/omarserrano/dishpatch-backend/pkg/redis"
)

// Mirror keeps JSON snapshots of carts in Redis with a TTL. It is strictly a
// read accelerator: misses, stale data, and Redis outages all fall back to
// the repository, and a snapshot is only written after the durable store has
// committed. Mutations never read from here.
type Mirror struct {
	kv    redispkg.KVStore
	ttl   config.CacheConfig
	logg  *logger.Logger
	stats *metrics.PipelineMetrics
}

// NewMirror builds the cache mirror. kv may be nil, in which case every
// lookup is a miss and refreshes are no-ops.
func NewMirror(kv redispkg.KVStore, cfg config.CacheConfig, logg *logger.Logger, stats *metrics.PipelineMetrics) *Mirror {
	return &Mirror{kv: kv, ttl: cfg, logg: logg, stats: stats}
}

// Get returns the cached snapshot if present and decodable. A corrupt entry
// is treated as a miss and evicted.
func (m *Mirror) Get(ctx context.Context, cartID uuid.UUID) (*models.Cart, bool) {
	if m == nil || m.kv == nil {
		return nil, false
	}
	raw, err := m.kv.Get(ctx, m.kv.CartKey(cartID.String()))
	if err != nil {
		if !errors.Is(err, redispkg.Nil) && m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "cart cache read failed")
		}
		m.stats.IncCartCacheMiss()
		return nil, false
	}

	var record models.Cart
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "cart cache entry corrupt, evicting")
		}
		m.Invalidate(ctx, cartID)
		m.stats.IncCartCacheMiss()
		return nil, false
	}

	m.stats.IncCartCacheHit()
	return &record, true
}

// Refresh overwrites the snapshot for a cart that has just been committed.
// Failures are logged and swallowed: the repository remains authoritative.
func (m *Mirror) Refresh(ctx context.Context, record *models.Cart) {
	if m == nil || m.kv == nil || record == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "cart cache snapshot marshal failed")
		}
		return
	}
	if err := m.kv.Set(ctx, m.kv.CartKey(record.ID.String()), payload, m.ttl.CartTTL); err != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "cart cache refresh failed")
		}
	}
}

// Invalidate drops the snapshot for a cart.
func (m *Mirror) Invalidate(ctx context.Context, cartID uuid.UUID) {
	if m == nil || m.kv == nil {
		return
	}
	if err := m.kv.Del(ctx, m.kv.CartKey(cartID.String())); err != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "cart cache invalidate failed")
		}
	}
}
