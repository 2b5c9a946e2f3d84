package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order reads and status transitions.
type Service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus, notes string) (*models.Order, error)
}

type service struct {
	repo    OrderRepository
	tx      txRunner
	emitter eventEmitter
}

// NewService builds the order status service.
func NewService(repo OrderRepository, tx txRunner, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, tx: tx, emitter: emitter}, nil
}

// GetOrder loads an order with its snapshot lines and status history.
func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// UpdateStatus applies one transition on the status graph and appends the
// corresponding history row and outbox event in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.OrderStatus, notes string) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, to))
	}

	from := order.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateStatusTx(tx, id, from, to); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return err
		}

		event := models.OrderStatusEvent{OrderID: id, Status: to}
		if notes != "" {
			event.Notes = &notes
		}
		if err := s.repo.AppendStatusEventTx(tx, event); err != nil {
			return err
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Version:       1,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:      id,
				CustomerID:   order.CustomerID,
				RestaurantID: order.RestaurantID,
				FromStatus:   from,
				ToStatus:     to,
				Notes:        notes,
				ChangedAt:    time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, id)
}
