// pkg/registry/schema.go
package registry

import (
	"sort"
	"time"

	"smartport-assistant/internal/models"
)

// CapabilityCatalog is the JSON-serializable registry description consumed
// by the audit CLI and the health endpoint.
type CapabilityCatalog struct {
	GeneratedAt string         `json:"generatedAt"`
	Implemented int            `json:"implemented"`
	Planned     int            `json:"planned"`
	Entries     []CatalogEntry `json:"entries"`
}

// CatalogEntry describes one routable intent's implementation status.
// Status is "implemented", "planned" (no binding) or "defect" (binding with
// no callable).
type CatalogEntry struct {
	Intent      string `json:"intent"`
	HandlerName string `json:"handlerName,omitempty"`
	Status      string `json:"status"`
}

const (
	CatalogImplemented = "implemented"
	CatalogPlanned     = "planned"
	CatalogDefect      = "defect"
)

// Catalog describes every routable (non-meta) intent, registered or not, in
// sorted intent order.
func (r *Registry) Catalog() CapabilityCatalog {
	catalog := CapabilityCatalog{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	intents := make([]models.Intent, 0, len(models.AllIntents))
	for intent := range models.AllIntents {
		if !intent.IsMeta() {
			intents = append(intents, intent)
		}
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i] < intents[j] })

	for _, intent := range intents {
		entry := CatalogEntry{Intent: intent.String(), Status: CatalogPlanned}
		if binding, ok := r.entries[intent]; ok {
			entry.HandlerName = binding.Name
			if binding.Capability != nil {
				entry.Status = CatalogImplemented
				catalog.Implemented++
			} else {
				entry.Status = CatalogDefect
			}
		} else {
			catalog.Planned++
		}
		catalog.Entries = append(catalog.Entries, entry)
	}
	return catalog
}
