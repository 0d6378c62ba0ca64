package memorystore

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/open-rails/probekit/catalog"
	"github.com/open-rails/probekit/core"
)

// Catalog is an in-memory item catalog. IDs are assigned from a single
// counter, so they are strictly increasing within every partition.
type Catalog struct {
	mu     sync.Mutex
	nextID int64
	items  map[partition][]catalog.Item
}

type partition struct {
	subject string
	tier    core.Tier
}

// NewCatalog creates an empty in-memory catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[partition][]catalog.Item)}
}

// Ingest appends a new item to the (subject, tier) partition.
func (c *Catalog) Ingest(_ context.Context, subject string, tier core.Tier, label, payloadRef string) (*catalog.Item, error) {
	if strings.TrimSpace(payloadRef) == "" {
		return nil, fmt.Errorf("%w: empty payload reference", core.ErrInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	it := catalog.Item{
		ID:         c.nextID,
		Subject:    subject,
		Tier:       tier,
		Label:      label,
		PayloadRef: payloadRef,
		IngestedAt: time.Now(),
	}
	p := partition{subject, tier}
	c.items[p] = append(c.items[p], it)
	return &it, nil
}

// NextItem returns the first item with id > afterID, or ErrNotFound.
func (c *Catalog) NextItem(_ context.Context, subject string, tier core.Tier, afterID int64) (*catalog.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items[partition{subject, tier}] {
		if it.ID > afterID {
			out := it
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

// RandomItem returns a uniformly chosen item from the partition.
func (c *Catalog) RandomItem(_ context.Context, subject string, tier core.Tier) (*catalog.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items[partition{subject, tier}]
	if len(items) == 0 {
		return nil, core.ErrNotFound
	}
	out := items[rand.Intn(len(items))]
	return &out, nil
}
