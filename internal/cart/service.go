package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/internal/menu"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
	"github.com/omarserrano/dishpatch-backend/pkg/pricing"
	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

// casRetries bounds how often a mutation reloads and reapplies after losing
// the optimistic-lock race.
const casRetries = 3

// CreateCartInput captures the payload for opening a cart. Both fields are
// optional: customer id supports guest flows, restaurant id pre-binds the
// cart so the first add does not have to establish the binding.
type CreateCartInput struct {
	CustomerID   *uuid.UUID
	RestaurantID *uuid.UUID
}

// AddItemInput captures the payload for adding a line to a cart.
type AddItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	Options    types.ItemOptions
}

type service struct {
	repo    CartRepository
	cache   CacheMirror
	catalog menu.ItemReader
	pricer  pricing.Policy
}

// NewService builds the cart mutation service.
func NewService(repo CartRepository, cache CacheMirror, catalog menu.ItemReader, pricer pricing.Policy) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache mirror required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("menu reader required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing policy required")
	}
	return &service{repo: repo, cache: cache, catalog: catalog, pricer: pricer}, nil
}

// CreateCart opens an empty cart, optionally pre-bound to a restaurant.
func (s *service) CreateCart(ctx context.Context, input CreateCartInput) (*models.Cart, error) {
	record, err := s.repo.Create(ctx, &models.Cart{
		CustomerID:   input.CustomerID,
		RestaurantID: input.RestaurantID,
		Status:       enums.CartStatusActive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	s.cache.Refresh(ctx, record)
	return record, nil
}

// GetCart serves reads through the cache mirror, falling back to the durable
// store on a miss and re-warming the mirror afterwards.
func (s *service) GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}
	record, err := s.loadCart(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Refresh(ctx, record)
	return record, nil
}

// AddItem appends or merges a line. The menu item is resolved at add time so
// the line carries a name and unit price snapshot; later catalog edits do not
// reprice lines already in the cart.
func (s *service) AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if input.MenuItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := s.catalog.GetItem(ctx, input.MenuItemID)
	if err != nil {
		return nil, err
	}
	optionsKey := input.Options.Canonical()

	return s.mutate(ctx, cartID, func(record *models.Cart) error {
		if record.RestaurantID == nil {
			restaurantID := item.RestaurantID
			record.RestaurantID = &restaurantID
		} else if *record.RestaurantID != item.RestaurantID {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from a different restaurant")
		}

		for i := range record.Items {
			line := &record.Items[i]
			if line.MenuItemID == input.MenuItemID && line.OptionsKey == optionsKey {
				line.Quantity += input.Quantity
				return nil
			}
		}

		record.Items = append(record.Items, models.CartItem{
			CartID:         record.ID,
			MenuItemID:     item.ID,
			Name:           item.Name,
			UnitPriceCents: item.PriceCents,
			Quantity:       input.Quantity,
			Options:        input.Options,
			OptionsKey:     optionsKey,
		})
		return nil
	})
}

// UpdateItemQuantity sets the quantity on an existing line. Zero or negative
// removes the line outright.
func (s *service) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, itemID)
	}
	return s.mutate(ctx, cartID, func(record *models.Cart) error {
		for i := range record.Items {
			if record.Items[i].ID == itemID {
				record.Items[i].Quantity = quantity
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	})
}

// RemoveItem drops a line from the cart.
func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, cartID, func(record *models.Cart) error {
		for i := range record.Items {
			if record.Items[i].ID == itemID {
				record.Items = append(record.Items[:i], record.Items[i+1:]...)
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	})
}

// ClearCart empties the cart and releases the restaurant binding so the next
// add can come from anywhere.
func (s *service) ClearCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, cartID, func(record *models.Cart) error {
		record.Items = nil
		record.RestaurantID = nil
		return nil
	})
}

// mutate runs the read-mutate-recompute-save cycle under optimistic locking.
// Every attempt reloads from the durable store; the cache is never consulted
// on the write path. The mirror is refreshed only after the save commits.
func (s *service) mutate(ctx context.Context, cartID uuid.UUID, apply func(record *models.Cart) error) (*models.Cart, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		record, err := s.loadCart(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if record.Status != enums.CartStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has already been converted to an order")
		}

		if err := apply(record); err != nil {
			return nil, err
		}
		recomputeLines(record)
		applyTotals(record, s.pricer.Compute(record.SubtotalCents))

		saved, err := s.repo.Save(ctx, record)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}

		s.cache.Refresh(ctx, saved)
		return saved, nil
	}
	return nil, lastErr
}

func (s *service) loadCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

func recomputeLines(record *models.Cart) {
	var subtotal int64
	for i := range record.Items {
		line := &record.Items[i]
		line.LineTotalCents = line.UnitPriceCents * int64(line.Quantity)
		subtotal += line.LineTotalCents
	}
	record.SubtotalCents = subtotal
}

func applyTotals(record *models.Cart, totals pricing.Totals) {
	record.SubtotalCents = totals.SubtotalCents
	record.TaxCents = totals.TaxCents
	record.DeliveryFeeCents = totals.DeliveryFeeCents
	record.TotalCents = totals.TotalCents
}
