package audit

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// DefaultBatchSize is how many keys a scan processes before yielding.
const DefaultBatchSize = 50

// ErrTargetsUnsupported is returned by whole-repository plugins when called
// with a target list. It signals a programming error, not a runtime condition.
var ErrTargetsUnsupported = errors.New("plugin analyses whole-repository groupings and does not accept targets")

// Plugin detects one class of integrity violation.
type Plugin interface {
	// ID uniquely identifies the plugin in a Registry.
	ID() string

	// Title is a short human-readable name.
	Title() string

	// Run scans the repositories and returns findings. A nil or empty
	// targets list means "audit everything".
	Run(ctx context.Context, targets []string) ([]Finding, error)
}

// PluginError wraps an error returned by a plugin with its id.
type PluginError struct {
	PluginID string
	Err      error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.PluginID, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// RejectTargets returns a *PluginError wrapping ErrTargetsUnsupported when
// targets is non-empty.
func RejectTargets(pluginID string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}
	return &PluginError{PluginID: pluginID, Err: ErrTargetsUnsupported}
}

// IsTargetsUnsupported returns true if err is or wraps ErrTargetsUnsupported.
func IsTargetsUnsupported(err error) bool {
	return errors.Is(err, ErrTargetsUnsupported)
}

// ForEachBatch calls fn for every item, yielding the processor after each
// batch of size items. It returns ctx.Err() as soon as the context is done
// at a batch boundary; items already processed stay processed.
func ForEachBatch[T any](ctx context.Context, items []T, size int, fn func(T)) error {
	if size < 1 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		for _, item := range items[start:end] {
			fn(item)
		}
		runtime.Gosched()
	}
	return nil
}
