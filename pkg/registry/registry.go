// Package registry caches, per venue, the mapping from canonical asset to the venue's
// native pair id. A venue's listing is fetched at most once at a time and only a
// complete listing is ever stored.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"golang.org/x/sync/singleflight"

	"cryptoagg/pkg/market"
)

// Lister is the part of a venue adapter the registry needs.
type Lister interface {
	Name() string
	ListAssets(ctx context.Context) (map[market.Asset]string, error)
}

type Registry struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
	group singleflight.Group
}

// New returns a registry over store. A zero ttl keeps snapshots for the life of the
// store.
func New(store Store, ttl time.Duration, log *slog.Logger) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, ttl: ttl, log: log, now: time.Now}
}

// Pairs returns the venue's full asset map, populating it on first use.
func (r *Registry) Pairs(ctx context.Context, v Lister) (map[market.Asset]string, error) {
	name := v.Name()
	if snap, ok := r.cached(ctx, name); ok {
		return maps.Clone(snap.Pairs), nil
	}

	res, err, shared := r.group.Do(name, func() (any, error) {
		// a concurrent flight may have just stored it
		if snap, ok := r.cached(ctx, name); ok {
			return snap.Pairs, nil
		}
		pairs, err := v.ListAssets(ctx)
		if err != nil {
			var e *market.Error
			if !errors.As(err, &e) {
				err = market.FetchAssetsError(name, err)
			}
			return nil, err
		}

		snap := Snapshot{Pairs: pairs, FetchedAt: r.now()}
		if err := r.store.Put(ctx, name, snap, r.ttl); err != nil {
			r.log.Warn("registry store put failed", "venue", name, "error", err)
		}
		r.log.Info("asset listing loaded", "venue", name, "assets", len(pairs))
		return pairs, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug("asset listing shared", "venue", name)
	}
	return maps.Clone(res.(map[market.Asset]string)), nil
}

// Resolve maps asset to the venue's native pair id. ok is false when the venue does
// not list the asset.
func (r *Registry) Resolve(ctx context.Context, v Lister, asset market.Asset) (pair string, ok bool, err error) {
	pairs, err := r.Pairs(ctx, v)
	if err != nil {
		return "", false, err
	}
	pair, ok = pairs[asset]
	return pair, ok, nil
}

func (r *Registry) cached(ctx context.Context, venue string) (Snapshot, bool) {
	snap, ok, err := r.store.Get(ctx, venue)
	if err != nil {
		r.log.Warn("registry store get failed", "venue", venue, "error", err)
		return Snapshot{}, false
	}
	if !ok || snap.Pairs == nil {
		return Snapshot{}, false
	}
	if r.ttl > 0 && r.now().Sub(snap.FetchedAt) >= r.ttl {
		return Snapshot{}, false
	}
	return snap, true
}
