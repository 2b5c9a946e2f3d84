package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/config"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
	"github.com/omarserrano/dishpatch-backend/pkg/pricing"
	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

type memoryRepo struct {
	carts     map[uuid.UUID]*models.Cart
	conflicts int // number of Save calls to fail with ErrVersionConflict
	saveCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: map[uuid.UUID]*models.Cart{}}
}

func (m *memoryRepo) WithTx(tx *gorm.DB) CartRepository { return m }

func (m *memoryRepo) Create(_ context.Context, record *models.Cart) (*models.Cart, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = enums.CartStatusActive
	}
	if record.Version == 0 {
		record.Version = 1
	}
	m.carts[record.ID] = cloneCart(record)
	return cloneCart(record), nil
}

func (m *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Cart, error) {
	record, ok := m.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneCart(record), nil
}

func (m *memoryRepo) Save(_ context.Context, record *models.Cart) (*models.Cart, error) {
	m.saveCalls++
	if m.conflicts > 0 {
		m.conflicts--
		return nil, ErrVersionConflict
	}
	stored, ok := m.carts[record.ID]
	if !ok || stored.Version != record.Version || stored.Status != enums.CartStatusActive {
		return nil, ErrVersionConflict
	}
	next := cloneCart(record)
	next.Version = record.Version + 1
	for i := range next.Items {
		if next.Items[i].ID == uuid.Nil {
			next.Items[i].ID = uuid.New()
		}
		next.Items[i].CartID = next.ID
	}
	m.carts[record.ID] = cloneCart(next)
	return next, nil
}

func (m *memoryRepo) MarkConverted(_ context.Context, id uuid.UUID, version int64) error {
	stored, ok := m.carts[id]
	if !ok || stored.Version != version || stored.Status != enums.CartStatusActive {
		return ErrVersionConflict
	}
	stored.Status = enums.CartStatusConverted
	stored.Version = version + 1
	return nil
}

func cloneCart(record *models.Cart) *models.Cart {
	dup := *record
	dup.Items = make([]models.CartItem, len(record.Items))
	copy(dup.Items, record.Items)
	return &dup
}

type recordingCache struct {
	entries   map[uuid.UUID]*models.Cart
	refreshes int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[uuid.UUID]*models.Cart{}}
}

func (c *recordingCache) Get(_ context.Context, cartID uuid.UUID) (*models.Cart, bool) {
	record, ok := c.entries[cartID]
	return record, ok
}

func (c *recordingCache) Refresh(_ context.Context, record *models.Cart) {
	c.refreshes++
	c.entries[record.ID] = cloneCart(record)
}

func (c *recordingCache) Invalidate(_ context.Context, cartID uuid.UUID) {
	delete(c.entries, cartID)
}

type stubCatalog struct {
	items map[uuid.UUID]*models.MenuItem
}

func (s *stubCatalog) GetItem(_ context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}
	return item, nil
}

func testPricer() pricing.Policy {
	return pricing.NewFlatRatePolicy(config.PricingConfig{TaxRateBps: 800, DeliveryFeeCents: 299})
}

func newTestService(t *testing.T, repo CartRepository, cache CacheMirror, catalog *stubCatalog) Service {
	t.Helper()
	svc, err := NewService(repo, cache, catalog, testPricer())
	require.NoError(t, err)
	return svc
}

func menuFixture(restaurantID uuid.UUID, name string, price int64) *models.MenuItem {
	return &models.MenuItem{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         name,
		PriceCents:   price,
		Available:    true,
	}
}

func TestAddItemMergesSameItemAndOptions(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	restaurantID := uuid.New()
	dish := menuFixture(restaurantID, "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	opts := types.ItemOptions{"spice": "medium"}
	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 2, Options: opts})
	require.NoError(t, err)

	updated, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1, Options: types.ItemOptions{"spice": "medium"}})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	require.Equal(t, 3, updated.Items[0].Quantity)
	require.Equal(t, int64(3*1299), updated.Items[0].LineTotalCents)
}

func TestAddItemDifferentOptionsStaySeparate(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	restaurantID := uuid.New()
	dish := menuFixture(restaurantID, "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1, Options: types.ItemOptions{"spice": "mild"}})
	require.NoError(t, err)
	updated, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1, Options: types.ItemOptions{"spice": "hot"}})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
}

func TestAddItemRejectsSecondRestaurant(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	thai := menuFixture(uuid.New(), "Pad Thai", 1299)
	pizza := menuFixture(uuid.New(), "Margherita", 1499)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{
		thai.ID:  thai,
		pizza.ID: pizza,
	}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: thai.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: pizza.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)
}

func TestCreateCartWithInitialRestaurantBinding(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	thai := menuFixture(uuid.New(), "Pad Thai", 1299)
	pizza := menuFixture(uuid.New(), "Margherita", 1499)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{
		thai.ID:  thai,
		pizza.ID: pizza,
	}})
	ctx := context.Background()

	customerID := uuid.New()
	record, err := svc.CreateCart(ctx, CreateCartInput{
		CustomerID:   &customerID,
		RestaurantID: &thai.RestaurantID,
	})
	require.NoError(t, err)
	require.NotNil(t, record.RestaurantID)
	require.Equal(t, thai.RestaurantID, *record.RestaurantID)
	require.NotNil(t, record.CustomerID)
	require.Equal(t, customerID, *record.CustomerID)

	// The pre-bound restaurant arbitrates adds even before the first line.
	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: pizza.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)

	updated, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: thai.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
}

func TestMutationsRecomputeTotals(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	restaurantID := uuid.New()
	dish := menuFixture(restaurantID, "Pad Thai", 1299)
	side := menuFixture(restaurantID, "Spring Rolls", 599)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{
		dish.ID: dish,
		side.ID: side,
	}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1})
	require.NoError(t, err)
	updated, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: side.ID, Quantity: 1})
	require.NoError(t, err)

	// 1299 + 599 = 1898 subtotal, 8% tax = 152 (banker's rounding), 299 fee.
	require.Equal(t, int64(1898), updated.SubtotalCents)
	require.Equal(t, int64(152), updated.TaxCents)
	require.Equal(t, int64(299), updated.DeliveryFeeCents)
	require.Equal(t, int64(2349), updated.TotalCents)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	dish := menuFixture(uuid.New(), "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)
	withItem, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 2})
	require.NoError(t, err)

	updated, err := svc.UpdateItemQuantity(ctx, record.ID, withItem.Items[0].ID, 0)
	require.NoError(t, err)
	require.Empty(t, updated.Items)
	require.Zero(t, updated.TotalCents)
}

func TestUpdateQuantityNegativeRemovesLine(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	dish := menuFixture(uuid.New(), "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)
	withItem, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 2})
	require.NoError(t, err)

	updated, err := svc.UpdateItemQuantity(ctx, record.ID, withItem.Items[0].ID, -3)
	require.NoError(t, err)
	require.Empty(t, updated.Items)
	require.Zero(t, updated.TotalCents)
}

func TestRemoveUnknownItemReturnsNotFound(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, record.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestClearCartReleasesRestaurantBinding(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	thai := menuFixture(uuid.New(), "Pad Thai", 1299)
	pizza := menuFixture(uuid.New(), "Margherita", 1499)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{
		thai.ID:  thai,
		pizza.ID: pizza,
	}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: thai.ID, Quantity: 1})
	require.NoError(t, err)

	cleared, err := svc.ClearCart(ctx, record.ID)
	require.NoError(t, err)
	require.Empty(t, cleared.Items)
	require.Nil(t, cleared.RestaurantID)
	require.Zero(t, cleared.TotalCents)

	// After clearing, a different restaurant is allowed again.
	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: pizza.ID, Quantity: 1})
	require.NoError(t, err)
}

func TestMutateRetriesOnVersionConflict(t *testing.T) {
	repo := newMemoryRepo()
	repo.conflicts = 2
	cache := newRecordingCache()
	dish := menuFixture(uuid.New(), "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	updated, err := svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, 3, repo.saveCalls)
}

func TestMutateGivesUpAfterBoundedRetries(t *testing.T) {
	repo := newMemoryRepo()
	repo.conflicts = casRetries
	cache := newRecordingCache()
	dish := menuFixture(uuid.New(), "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAddItemToConvertedCartFails(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	dish := menuFixture(uuid.New(), "Pad Thai", 1299)
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{dish.ID: dish}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)
	require.NoError(t, repo.MarkConverted(ctx, record.ID, record.Version))

	_, err = svc.AddItem(ctx, record.ID, AddItemInput{MenuItemID: dish.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetCartReadsThroughCache(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{}})
	ctx := context.Background()

	record, err := svc.CreateCart(ctx, CreateCartInput{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.refreshes)

	// Hit: served from the mirror without touching the repo.
	cached, err := svc.GetCart(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, record.ID, cached.ID)
	require.Equal(t, 1, cache.refreshes)

	// Miss: falls back to the durable store and re-warms the mirror.
	cache.Invalidate(ctx, record.ID)
	fetched, err := svc.GetCart(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, record.ID, fetched.ID)
	require.Equal(t, 2, cache.refreshes)
}

func TestGetCartUnknownIDReturnsNotFound(t *testing.T) {
	repo := newMemoryRepo()
	cache := newRecordingCache()
	svc := newTestService(t, repo, cache, &stubCatalog{items: map[uuid.UUID]*models.MenuItem{}})

	_, err := svc.GetCart(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
