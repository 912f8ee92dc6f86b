// Package acquisition decides which resources are new and turns them into local artifacts.
package acquisition

import "github.com/aleister1102/resourcewatch/internal/models"

// NewResources returns the resources whose identity digest has not been sent yet, in input order.
func NewResources(resources []models.Resource, sent models.HashSet) []models.Resource {
	fresh := make([]models.Resource, 0, len(resources))
	for _, r := range resources {
		if sent.Has(r.Hash) {
			continue
		}
		fresh = append(fresh, r)
	}
	return fresh
}
