package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/internal/cart"
	"github.com/omarserrano/dishpatch-backend/internal/orders"
	"github.com/omarserrano/dishpatch-backend/pkg/config"
	dbpkg "github.com/omarserrano/dishpatch-backend/pkg/db"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
	"github.com/omarserrano/dishpatch-backend/pkg/metrics"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox/payloads"
	redispkg "github.com/omarserrano/dishpatch-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PlaceOrderInput carries everything needed to turn a cart into an order.
type PlaceOrderInput struct {
	CartID              uuid.UUID
	CustomerID          *uuid.UUID
	DeliveryAddress     string
	SpecialInstructions string
}

// Result is the placement outcome. Replayed is true when the order was
// resolved from the idempotency ledger rather than created by this call.
type Result struct {
	Order    *models.Order
	Replayed bool
}

// Service turns carts into orders exactly once per idempotency token.
type Service interface {
	PlaceOrder(ctx context.Context, token string, input PlaceOrderInput) (*Result, error)
}

type service struct {
	carts     cart.CartRepository
	cartCache cart.CacheMirror
	orders    orders.OrderRepository
	ledger    LedgerRepository
	tx        txRunner
	emitter   eventEmitter
	kv        redispkg.KVStore
	ledgerCfg config.LedgerConfig
	logg      *logger.Logger
	stats     *metrics.PipelineMetrics
}

// NewService builds the placement orchestrator. kv may be nil; the token
// fast path then always falls through to the durable ledger.
func NewService(
	carts cart.CartRepository,
	cartCache cart.CacheMirror,
	orderRepo orders.OrderRepository,
	ledger LedgerRepository,
	tx txRunner,
	emitter eventEmitter,
	kv redispkg.KVStore,
	ledgerCfg config.LedgerConfig,
	logg *logger.Logger,
	stats *metrics.PipelineMetrics,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if cartCache == nil {
		return nil, fmt.Errorf("cart cache mirror required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("idempotency ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		carts:     carts,
		cartCache: cartCache,
		orders:    orderRepo,
		ledger:    ledger,
		tx:        tx,
		emitter:   emitter,
		kv:        kv,
		ledgerCfg: ledgerCfg,
		logg:      logg,
		stats:     stats,
	}, nil
}

// PlaceOrder creates the order, its ledger record, the cart conversion, and
// the outbox event in one transaction. A repeated token, sequential or
// concurrent, always resolves to the order the first claim produced.
func (s *service) PlaceOrder(ctx context.Context, token string, input PlaceOrderInput) (*Result, error) {
	started := time.Now()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency token is required")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}

	// Fast path: a token already resolved recently sits in Redis.
	if replay, err := s.replayFromTokenCache(ctx, token); err == nil && replay != nil {
		s.stats.IncPlacementReplay()
		return replay, nil
	}

	// Durable path: the ledger is the source of truth for claimed tokens.
	if replay, err := s.replayFromLedger(ctx, token); err != nil {
		return nil, err
	} else if replay != nil {
		s.stats.IncPlacementReplay()
		return replay, nil
	}

	record, err := s.loadCart(ctx, input.CartID)
	if err != nil {
		return nil, err
	}
	order, err := s.buildSnapshot(record, input)
	if err != nil {
		s.stats.IncPlacementFailure(failureReason(err))
		return nil, err
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.CreateTx(tx, order); err != nil {
			return err
		}
		if err := s.ledger.InsertTx(tx, models.IdempotencyKey{
			Token:     token,
			OrderID:   order.ID,
			ExpiresAt: time.Now().UTC().Add(s.ledgerCfg.RecordTTL),
		}); err != nil {
			return err
		}
		if err := s.carts.WithTx(tx).MarkConverted(ctx, record.ID, record.Version); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data:          placedPayload(order),
		})
	})
	if txErr != nil {
		// Lost the token race: surface the winner instead of an error.
		if dbpkg.IsUniqueViolation(txErr, TokenConstraint) {
			if replay, err := s.replayFromLedger(ctx, token); err == nil && replay != nil {
				s.stats.IncPlacementReplay()
				return replay, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "resolve winning placement")
		}
		if errors.Is(txErr, cart.ErrVersionConflict) {
			s.stats.IncPlacementFailure("cart_conflict")
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during placement, retry with current cart")
		}
		s.stats.IncPlacementFailure("transaction")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "place order")
	}

	// Post-commit, best effort: cache the token resolution and refresh the
	// converted cart snapshot. Neither can undo the order.
	s.cacheTokenResolution(ctx, token, order.ID)
	record.Status = enums.CartStatusConverted
	record.Version++
	s.cartCache.Refresh(ctx, record)

	s.stats.IncOrderPlaced()
	s.stats.ObservePlacementDuration(time.Since(started))
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithCartID(ctx, record.ID.String()), order.ID.String())
		s.logg.Info(logCtx, "order placed")
	}

	return &Result{Order: order}, nil
}

func (s *service) replayFromTokenCache(ctx context.Context, token string) (*Result, error) {
	if s.kv == nil {
		return nil, nil
	}
	raw, err := s.kv.Get(ctx, s.kv.PlacementTokenKey(token))
	if err != nil {
		return nil, err
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, Replayed: true}, nil
}

func (s *service) replayFromLedger(ctx context.Context, token string) (*Result, error) {
	claim, err := s.ledger.FindByToken(ctx, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup idempotency token")
	}
	if claim == nil {
		return nil, nil
	}
	order, err := s.orders.FindByID(ctx, claim.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for replayed token")
	}
	s.cacheTokenResolution(ctx, token, order.ID)
	return &Result{Order: order, Replayed: true}, nil
}

func (s *service) loadCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	record, err := s.carts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

// buildSnapshot freezes the cart into an order. Totals and prices are copied
// verbatim from the durable cart; nothing is repriced at placement time.
func (s *service) buildSnapshot(record *models.Cart, input PlaceOrderInput) (*models.Order, error) {
	if record.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has already been converted to an order")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot place an order from an empty cart")
	}
	if record.RestaurantID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is not bound to a restaurant")
	}

	customerID := record.CustomerID
	if customerID == nil {
		customerID = input.CustomerID
	}
	if customerID == nil || *customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	order := &models.Order{
		ID:               uuid.New(),
		CartID:           record.ID,
		CustomerID:       *customerID,
		RestaurantID:     *record.RestaurantID,
		Status:           enums.OrderStatusPending,
		SubtotalCents:    record.SubtotalCents,
		TaxCents:         record.TaxCents,
		DeliveryFeeCents: record.DeliveryFeeCents,
		TotalCents:       record.TotalCents,
		DeliveryAddress:  strings.TrimSpace(input.DeliveryAddress),
		PlacedAt:         time.Now().UTC(),
		StatusEvents: []models.OrderStatusEvent{
			{Status: enums.OrderStatusPending},
		},
	}
	if notes := strings.TrimSpace(input.SpecialInstructions); notes != "" {
		order.SpecialInstructions = &notes
	}

	order.Items = make([]models.OrderLineItem, len(record.Items))
	for i, line := range record.Items {
		order.Items[i] = models.OrderLineItem{
			MenuItemID:     line.MenuItemID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			Options:        line.Options,
			LineTotalCents: line.LineTotalCents,
		}
	}
	return order, nil
}

func (s *service) cacheTokenResolution(ctx context.Context, token string, orderID uuid.UUID) {
	if s.kv == nil {
		return
	}
	_, err := s.kv.SetNX(ctx, s.kv.PlacementTokenKey(token), orderID.String(), s.ledgerCfg.TokenCacheTTL)
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "placement token cache write failed")
	}
}

func placedPayload(order *models.Order) payloads.OrderPlacedEvent {
	lines := make([]payloads.OrderPlacedLineItem, len(order.Items))
	for i, line := range order.Items {
		lines[i] = payloads.OrderPlacedLineItem{
			MenuItemID:     line.MenuItemID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			Options:        line.Options,
			LineTotalCents: line.LineTotalCents,
		}
	}
	return payloads.OrderPlacedEvent{
		OrderID:          order.ID,
		CartID:           order.CartID,
		CustomerID:       order.CustomerID,
		RestaurantID:     order.RestaurantID,
		SubtotalCents:    order.SubtotalCents,
		TaxCents:         order.TaxCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		TotalCents:       order.TotalCents,
		DeliveryAddress:  order.DeliveryAddress,
		PlacedAt:         order.PlacedAt,
		LineItems:        lines,
	}
}

func failureReason(err error) string {
	var coded *pkgerrors.Error
	if errors.As(err, &coded) {
		switch coded.Code() {
		case pkgerrors.CodeValidation:
			return "validation"
		case pkgerrors.CodeStateConflict:
			return "cart_converted"
		}
	}
	return "unknown"
}
