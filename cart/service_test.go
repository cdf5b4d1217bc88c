package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tourmart/catalog"
	"tourmart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	items    []models.CartItem
	totals   map[string]int64
	countErr error

	inUnit bool
	writes []unitWrite
}

// unitWrite records one write and whether it happened inside a unit.
type unitWrite struct {
	op     string
	inUnit bool
}

func newMemStore() *memStore {
	return &memStore{totals: map[string]int64{}}
}

func (m *memStore) InUnit(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.inUnit = true
	m.mu.Unlock()
	err := fn(ctx)
	m.mu.Lock()
	m.inUnit = false
	m.mu.Unlock()
	return err
}

func (m *memStore) record(op string) {
	m.writes = append(m.writes, unitWrite{op: op, inUnit: m.inUnit})
}

func (m *memStore) AddOrIncrement(_ context.Context, item models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("addOrIncrement")
	for i, existing := range m.items {
		if existing.BuyerID == item.BuyerID && existing.ProductID == item.ProductID && existing.Option == item.Option {
			m.items[i].Quantity += item.Quantity
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

func (m *memStore) SetQuantity(_ context.Context, buyerID, productID, option string, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("setQuantity")
	for i, existing := range m.items {
		if existing.BuyerID == buyerID && existing.ProductID == productID && existing.Option == option {
			m.items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memStore) Delete(_ context.Context, buyerID, productID, option string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("delete")
	kept := m.items[:0]
	for _, existing := range m.items {
		if existing.BuyerID == buyerID && existing.ProductID == productID && existing.Option == option {
			continue
		}
		kept = append(kept, existing)
	}
	m.items = kept
	return nil
}

func (m *memStore) DeleteAll(_ context.Context, buyerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("deleteAll")
	kept := m.items[:0]
	for _, existing := range m.items {
		if existing.BuyerID != buyerID {
			kept = append(kept, existing)
		}
	}
	m.items = kept
	return nil
}

func (m *memStore) ListByBuyer(_ context.Context, buyerID string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CartItem
	for _, existing := range m.items {
		if existing.BuyerID == buyerID {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (m *memStore) FindByIDs(_ context.Context, buyerID string, itemIDs []string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []models.CartItem
	for _, existing := range m.items {
		if existing.BuyerID == buyerID && wanted[existing.ItemID] {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context, buyerID string) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, existing := range m.items {
		if existing.BuyerID == buyerID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SaveTotal(_ context.Context, buyerID string, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("saveTotal")
	m.totals[buyerID] = total
	return nil
}

func (m *memStore) Total(_ context.Context, buyerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[buyerID], nil
}

type memCatalog struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func newMemCatalog(products ...models.Product) *memCatalog {
	c := &memCatalog{products: map[string]models.Product{}}
	for _, p := range products {
		c.products[p.ProductID] = p
	}
	return c
}

func (c *memCatalog) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (c *memCatalog) put(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ProductID] = p
}

func tourProduct(id string, sale int64) models.Product {
	return models.Product{
		ProductID: id,
		SellerID:  "seller-1",
		Title:     "City Walking Tour",
		Status:    models.ProductOnSale,
		Prices: map[string]models.PriceTier{
			models.OptionStandard:  {OriginalPrice: sale + 500, SalePrice: sale},
			models.OptionWithGuide: {OriginalPrice: sale + 1500, SalePrice: sale + 1000},
		},
	}
}

func TestAddItemIncrementsExistingRow(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, newMemCatalog(tourProduct("p1", 1000)))
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 2))
	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 3))

	items, err := store.ListByBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].Quantity)
	assert.Equal(t, int64(1000), items[0].SalePrice)

	total, err := svc.Total(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total)
}

func TestAddItemKeepsOptionsSeparate(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, newMemCatalog(tourProduct("p1", 1000)))
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 1))
	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionWithGuide, 1))

	items, err := store.ListByBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	total, err := svc.Total(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newMemStore(), newMemCatalog(tourProduct("p1", 1000)))

	err := svc.AddItem(context.Background(), "buyer-1", "p1", models.OptionStandard, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = svc.AddItem(context.Background(), "buyer-1", "p1", models.OptionStandard, -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItemRejectsMissingOrDiscontinuedProduct(t *testing.T) {
	discontinued := tourProduct("p2", 1000)
	discontinued.Status = models.ProductDiscontinued
	svc := NewService(newMemStore(), newMemCatalog(discontinued))
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddItem(ctx, "buyer-1", "missing", models.OptionStandard, 1), ErrProductNotOnSale)
	assert.ErrorIs(t, svc.AddItem(ctx, "buyer-1", "p2", models.OptionStandard, 1), ErrProductNotOnSale)
}

func TestUpdateQuantityZeroRemovesRow(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, newMemCatalog(tourProduct("p1", 1000)))
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 2))
	require.NoError(t, svc.UpdateQuantity(ctx, "buyer-1", "p1", models.OptionStandard, 0))

	items, err := store.ListByBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	total, err := svc.Total(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpdateQuantityMissingRow(t *testing.T) {
	svc := NewService(newMemStore(), newMemCatalog(tourProduct("p1", 1000)))

	err := svc.UpdateQuantity(context.Background(), "buyer-1", "p1", models.OptionStandard, 3)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestTotalTracksMutationSequence(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, newMemCatalog(tourProduct("p1", 1000), tourProduct("p2", 2500)))
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 2))
	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p2", models.OptionStandard, 1))
	require.NoError(t, svc.UpdateQuantity(ctx, "buyer-1", "p1", models.OptionStandard, 4))
	require.NoError(t, svc.RemoveItem(ctx, "buyer-1", "p2", models.OptionStandard))

	total, err := svc.Total(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), total)

	require.NoError(t, svc.ClearCart(ctx, "buyer-1"))
	total, err = svc.Total(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListForDisplayExcludesUnavailableFromTotals(t *testing.T) {
	store := newMemStore()
	cat := newMemCatalog(tourProduct("p1", 1000), tourProduct("p2", 2000), tourProduct("p3", 3000))
	svc := NewService(store, cat)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 2))
	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p2", models.OptionStandard, 1))
	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p3", models.OptionStandard, 1))

	discontinued := tourProduct("p2", 2000)
	discontinued.Status = models.ProductDiscontinued
	cat.put(discontinued)

	// p3 vanishes from the catalog entirely.
	cat.mu.Lock()
	delete(cat.products, "p3")
	cat.mu.Unlock()

	view, err := svc.ListForDisplay(ctx, "buyer-1")
	require.NoError(t, err)

	// The vanished product's row is dropped; the discontinued one stays
	// visible but does not count.
	require.Len(t, view.Items, 2)
	assert.Equal(t, int64(2000), view.TotalPrice)
	assert.Equal(t, int64(2), view.TotalQuantity)

	for _, line := range view.Items {
		if line.ProductID == "p2" {
			assert.False(t, line.Available)
		} else {
			assert.True(t, line.Available)
		}
	}
}

func TestMutationAndTotalShareOneUnit(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, newMemCatalog(tourProduct("p1", 1000)))
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "buyer-1", "p1", models.OptionStandard, 2))
	require.NoError(t, svc.UpdateQuantity(ctx, "buyer-1", "p1", models.OptionStandard, 3))
	require.NoError(t, svc.RemoveItem(ctx, "buyer-1", "p1", models.OptionStandard))
	require.NoError(t, svc.ClearCart(ctx, "buyer-1"))

	// Every row write and every total save must land inside a unit, and
	// each unit holds exactly one row write followed by its total save.
	require.Len(t, store.writes, 8)
	for i, w := range store.writes {
		assert.True(t, w.inUnit, "write %d (%s) escaped the unit", i, w.op)
	}
	for i := 1; i < len(store.writes); i += 2 {
		assert.Equal(t, "saveTotal", store.writes[i].op)
	}
}

func TestItemCountDegradesToZero(t *testing.T) {
	store := newMemStore()
	store.countErr = errors.New("connection reset")
	svc := NewService(store, newMemCatalog())

	assert.Zero(t, svc.ItemCount(context.Background(), "buyer-degraded"))
}
