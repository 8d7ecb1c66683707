// Package strategy composes the hot and cold tiers per call site.
// It performs no I/O of its own: callers hand it closures for the tier
// operations and it runs them under the documented consistency
// semantics. Hot-tier failures inside the cache-tolerant strategies are
// swallowed and logged; cold-tier failures always propagate.
package strategy

import (
	"context"
	"time"

	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
)

// ReadStrategy determines the hot/cold access pattern for a read.
type ReadStrategy int

const (
	// CacheFirst consults the hot tier, falling back to cold on a miss
	// or transport error, refilling the hot tier best-effort.
	CacheFirst ReadStrategy = iota
	// ColdOnly skips the hot tier entirely.
	ColdOnly
	// HotOnly consults only the hot tier; a miss is a CacheMiss error.
	HotOnly
	// ReadThrough always reads cold and populates hot on success.
	ReadThrough
)

func (s ReadStrategy) String() string {
	switch s {
	case CacheFirst:
		return "cache_first"
	case ColdOnly:
		return "cold_only"
	case HotOnly:
		return "hot_only"
	case ReadThrough:
		return "read_through"
	default:
		return "unknown"
	}
}

// HotReadFn reads from the hot tier. ok=false is a miss, not an error.
type HotReadFn[T any] func(ctx context.Context) (T, bool, error)

// ColdReadFn reads from the cold tier. ok=false means the entity is absent.
type ColdReadFn[T any] func(ctx context.Context) (T, bool, error)

// PopulateFn refills the hot tier after a cold read.
type PopulateFn[T any] func(ctx context.Context, value T) error

// Read executes a read under the given strategy.
func Read[T any](ctx context.Context, s ReadStrategy, key string, hot HotReadFn[T], cold ColdReadFn[T], populate PopulateFn[T]) (T, bool, error) {
	log := logging.Default()
	log.LogStrategy("read", s.String(), key)

	var zero T
	switch s {
	case HotOnly:
		value, ok, err := hot(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			return zero, false, apperrors.CacheMiss(key)
		}
		return value, true, nil

	case ColdOnly:
		return cold(ctx)

	case ReadThrough:
		value, ok, err := cold(ctx)
		if err != nil || !ok {
			return zero, ok, err
		}
		if populate != nil {
			if popErr := populate(ctx, value); popErr != nil {
				log.WithError(popErr).WithFields(map[string]interface{}{"key": key}).
					Warn("Failed to populate hot tier")
			}
		}
		return value, true, nil

	default: // CacheFirst
		value, ok, err := hot(ctx)
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{"key": key}).
				Warn("Hot tier read failed; falling back to cold")
		} else if ok {
			return value, true, nil
		}

		value, ok, err = cold(ctx)
		if err != nil || !ok {
			return zero, ok, err
		}
		if populate != nil {
			if popErr := populate(ctx, value); popErr != nil {
				log.WithError(popErr).WithFields(map[string]interface{}{"key": key}).
					Warn("Failed to populate hot tier")
			}
		}
		return value, true, nil
	}
}

// ReadSimple executes a read with no populate hook.
func ReadSimple[T any](ctx context.Context, s ReadStrategy, key string, hot HotReadFn[T], cold ColdReadFn[T]) (T, bool, error) {
	return Read(ctx, s, key, hot, cold, nil)
}

// WriteStrategy determines the hot/cold write pattern.
type WriteStrategy int

const (
	// WriteThrough writes cold first, then hot best-effort.
	WriteThrough WriteStrategy = iota
	// WriteAround writes cold and invalidates the hot entry.
	WriteAround
	// WriteBack writes hot first (must succeed) and schedules the cold
	// write on a detached goroutine. A crash between the two loses the
	// cold write.
	WriteBack
	// WriteColdOnly writes cold and leaves hot untouched.
	WriteColdOnly
)

func (s WriteStrategy) String() string {
	switch s {
	case WriteThrough:
		return "write_through"
	case WriteAround:
		return "write_around"
	case WriteBack:
		return "write_back"
	case WriteColdOnly:
		return "cold_only"
	default:
		return "unknown"
	}
}

// writeBackTimeout bounds the detached cold write of a WriteBack.
const writeBackTimeout = 10 * time.Second

// Write executes a write under the given strategy.
func Write(ctx context.Context, s WriteStrategy, key string, hot func(ctx context.Context) error, cold func(ctx context.Context) error, invalidate func(ctx context.Context) error) error {
	log := logging.Default()
	log.LogStrategy("write", s.String(), key)

	switch s {
	case WriteAround:
		if err := cold(ctx); err != nil {
			return err
		}
		if invalidate != nil {
			if err := invalidate(ctx); err != nil {
				log.WithError(err).WithFields(map[string]interface{}{"key": key}).
					Warn("Failed to invalidate hot tier")
			}
		}
		return nil

	case WriteBack:
		if err := hot(ctx); err != nil {
			return err
		}
		go func() {
			detached, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
			defer cancel()
			if err := cold(detached); err != nil {
				log.WithError(err).WithFields(map[string]interface{}{"key": key}).
					Error("Write-back cold write failed")
			}
		}()
		return nil

	case WriteColdOnly:
		return cold(ctx)

	default: // WriteThrough
		if err := cold(ctx); err != nil {
			return err
		}
		if hot != nil {
			if err := hot(ctx); err != nil {
				log.WithError(err).WithFields(map[string]interface{}{"key": key}).
					Warn("Failed to write hot tier")
			}
		}
		return nil
	}
}

// WriteSimple executes a write with no invalidate hook.
func WriteSimple(ctx context.Context, s WriteStrategy, key string, hot func(ctx context.Context) error, cold func(ctx context.Context) error) error {
	return Write(ctx, s, key, hot, cold, nil)
}
