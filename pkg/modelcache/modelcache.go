// Package modelcache keeps a TTL-bounded snapshot of the backend's
// model list. It backs model-name normalisation, advisory capability
// warnings, and the model listing shown on upstream 404s.
package modelcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/weiche-dev/weiche/pkg/backend"
)

// Lister fetches the backend's model list.
type Lister interface {
	ListModels(ctx context.Context, bearer string) ([]backend.ModelEntry, error)
}

// Cache is a read-mostly model snapshot refreshed on a TTL. Refreshes
// happen on demand with the caller's bearer token since the proxy
// holds no credentials of its own.
type Cache struct {
	lister       Lister
	ttl          time.Duration
	defaultModel string
	aliases      map[string]string

	mu        sync.RWMutex
	models    []backend.ModelEntry
	fetchedAt time.Time

	now func() time.Time
}

// New creates a Cache. A zero ttl defaults to five minutes.
func New(lister Lister, ttl time.Duration, defaultModel string, aliases map[string]string) *Cache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		lister:       lister,
		ttl:          ttl,
		defaultModel: defaultModel,
		aliases:      aliases,
		now:          time.Now,
	}
}

// Models returns the cached model list, refreshing it first when the
// TTL has expired. A failed refresh falls back to the stale snapshot.
func (c *Cache) Models(ctx context.Context, bearer string) []backend.ModelEntry {
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
	models := c.models
	c.mu.RUnlock()

	if fresh {
		return models
	}

	fetched, err := c.lister.ListModels(ctx, bearer)
	if err != nil {
		slog.Warn("model list refresh failed, serving stale cache",
			"error", err, "cached", len(models))
		return models
	}

	c.mu.Lock()
	c.models = fetched
	c.fetchedAt = c.now()
	c.mu.Unlock()

	slog.Debug("model cache refreshed", "models", len(fetched))
	return fetched
}

// Normalize maps a requested model name through the alias table. An
// empty name falls back to the configured default.
func (c *Cache) Normalize(name string) string {
	if name == "" {
		return c.defaultModel
	}
	if mapped, ok := c.aliases[name]; ok {
		slog.Debug("model alias applied", "requested", name, "backend", mapped)
		return mapped
	}
	return name
}

// SupportsTools reports whether the named model advertises tool
// calling. known is false when the model is absent from the cache or
// the snapshot is empty; callers should treat unknown as capable.
func (c *Cache) SupportsTools(name string) (supported, known bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models {
		if m.ID != name {
			continue
		}
		if m.Capabilities == nil {
			return false, false
		}
		for _, cap := range m.Capabilities {
			if cap == "tools" || cap == "function_calling" {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

// FormatModelList builds the human-readable listing for a 404 failure
// event: up to 20 models with pricing annotations where available.
func FormatModelList(requestedModel string, models []backend.ModelEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Model '%s' not found.\n\n", requestedModel)

	if len(models) == 0 {
		b.WriteString("No models available from backend.\n")
		return b.String()
	}

	b.WriteString("Available models:\n\n")
	for i, m := range models {
		if i == 20 {
			break
		}
		var price string
		switch {
		case m.InputPriceUSD != nil && m.OutputPriceUSD != nil:
			price = fmt.Sprintf(" (input $%.4f/1K, output $%.4f/1K)", *m.InputPriceUSD, *m.OutputPriceUSD)
		case m.InputPriceUSD != nil:
			price = fmt.Sprintf(" (input $%.4f/1K)", *m.InputPriceUSD)
		case m.OutputPriceUSD != nil:
			price = fmt.Sprintf(" (output $%.4f/1K)", *m.OutputPriceUSD)
		}
		fmt.Fprintf(&b, "  • %s%s\n", m.ID, price)
	}

	if len(models) > 20 {
		fmt.Fprintf(&b, "\n...and %d more models.\n", len(models)-20)
	}
	return b.String()
}
