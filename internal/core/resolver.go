package core

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Probotsvip/PowerfulAPI/pkg/classify"
	"github.com/Probotsvip/PowerfulAPI/pkg/source"
)

// TitleAdapter is a source adapter that can additionally return just the
// cleaned title of its top hit, for use as a refined catalog query.
type TitleAdapter interface {
	source.Adapter
	SearchTitle(ctx context.Context, query string) (string, error)
}

// Resolver orchestrates the source adapters into one resolution pipeline:
// hybrid first (title search refines the query, catalog serves the stream),
// then a classifier-ordered fallback chain, then the generic last resort.
type Resolver struct {
	catalog  source.Adapter
	titles   TitleAdapter
	fallback source.Adapter
	logger   *zap.Logger
}

func NewResolver(catalog source.Adapter, titles TitleAdapter, fallback source.Adapter, logger *zap.Logger) *Resolver {
	return &Resolver{
		catalog:  catalog,
		titles:   titles,
		fallback: fallback,
		logger:   logger,
	}
}

// Resolve produces one canonical track for a query, or source.ErrNoMatch when
// every stage is exhausted. sourceHint pins a single adapter ("jiosaavn",
// "youtube", "generic"); empty, "auto" and "hybrid" run the full pipeline.
// Backend errors never abort the pipeline: each stage degrades to no-match.
func (r *Resolver) Resolve(ctx context.Context, query, sourceHint string) (*source.Track, error) {
	switch sourceHint {
	case "", "auto", "hybrid":
	case source.SaavnID:
		return r.require(r.try(ctx, r.catalog, query))
	case source.YouTubeID:
		return r.require(r.try(ctx, r.titles, query))
	case source.GenericID:
		return r.require(r.try(ctx, r.fallback, query))
	default:
		r.logger.Warn("Unknown source hint, running full pipeline",
			zap.String("hint", sourceHint))
	}

	// Hybrid stage: the title backend is accuracy-optimized (it finds songs
	// from lyric fragments), the catalog is quality-optimized. Chaining them
	// gets both.
	if title, err := r.titles.SearchTitle(ctx, query); err == nil && title != "" {
		if track := r.try(ctx, r.catalog, title); track != nil {
			return track, nil
		}
	} else if err != nil && !errors.Is(err, source.ErrNoMatch) {
		r.logger.Warn("Title search degraded",
			zap.String("query", query), zap.Error(err))
	}

	verdict := classify.Classify(query)
	first, second := source.Adapter(r.catalog), source.Adapter(r.titles)
	if verdict.IsLyricsLike {
		first, second = r.titles, r.catalog
	}

	if track := r.try(ctx, first, query); track != nil {
		return track, nil
	}
	if track := r.try(ctx, second, query); track != nil {
		return track, nil
	}
	if track := r.try(ctx, r.fallback, query); track != nil {
		return track, nil
	}

	return nil, source.ErrNoMatch
}

// Trending delegates to the adapter named by sourceHint, defaulting to the
// catalog backend.
func (r *Resolver) Trending(ctx context.Context, sourceHint string, limit int) ([]source.TrendingItem, error) {
	adapter := source.Adapter(r.catalog)
	switch sourceHint {
	case source.YouTubeID:
		adapter = r.titles
	case source.GenericID:
		adapter = r.fallback
	}
	return adapter.Trending(ctx, limit)
}

// try runs one adapter and folds any failure into a nil track. Transport
// errors are logged here, at the adapter boundary, and never propagate.
func (r *Resolver) try(ctx context.Context, adapter source.Adapter, query string) *source.Track {
	if adapter == nil {
		return nil
	}

	track, err := adapter.Resolve(ctx, query)
	if err != nil {
		if errors.Is(err, source.ErrNoMatch) {
			r.logger.Debug("Source had no match",
				zap.String("source", adapter.ID()),
				zap.String("query", query))
		} else {
			r.logger.Warn("Source degraded",
				zap.String("source", adapter.ID()),
				zap.String("query", query),
				zap.Error(err))
		}
		return nil
	}
	if track == nil || track.OriginURL == "" {
		return nil
	}
	return track
}

func (r *Resolver) require(track *source.Track) (*source.Track, error) {
	if track == nil {
		return nil, source.ErrNoMatch
	}
	return track, nil
}
