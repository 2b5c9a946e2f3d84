package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/api/responses"
	"github.com/omarserrano/dishpatch-backend/api/validators"
	ordersvc "github.com/omarserrano/dishpatch-backend/internal/orders"
	"github.com/omarserrano/dishpatch-backend/internal/placement"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

const idempotencyKeyHeader = "Idempotency-Key"

type placeOrderRequest struct {
	CartID              uuid.UUID  `json:"cart_id" validate:"required"`
	CustomerID          *uuid.UUID `json:"customer_id"`
	DeliveryAddress     string     `json:"delivery_address" validate:"required"`
	SpecialInstructions string     `json:"special_instructions"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

type orderLineResponse struct {
	ID             uuid.UUID         `json:"id"`
	MenuItemID     uuid.UUID         `json:"menu_item_id"`
	Name           string            `json:"name"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	Quantity       int               `json:"quantity"`
	Options        types.ItemOptions `json:"options,omitempty"`
	LineTotalCents int64             `json:"line_total_cents"`
}

type orderStatusEventResponse struct {
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type orderResponse struct {
	ID                  uuid.UUID                  `json:"id"`
	CartID              uuid.UUID                  `json:"cart_id"`
	CustomerID          uuid.UUID                  `json:"customer_id"`
	RestaurantID        uuid.UUID                  `json:"restaurant_id"`
	Status              string                     `json:"status"`
	SubtotalCents       int64                      `json:"subtotal_cents"`
	TaxCents            int64                      `json:"tax_cents"`
	DeliveryFeeCents    int64                      `json:"delivery_fee_cents"`
	TotalCents          int64                      `json:"total_cents"`
	DeliveryAddress     string                     `json:"delivery_address"`
	SpecialInstructions *string                    `json:"special_instructions,omitempty"`
	PlacedAt            time.Time                  `json:"placed_at"`
	Items               []orderLineResponse        `json:"items"`
	StatusHistory       []orderStatusEventResponse `json:"status_history"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderLineResponse, len(order.Items))
	for i, line := range order.Items {
		items[i] = orderLineResponse{
			ID:             line.ID,
			MenuItemID:     line.MenuItemID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			Options:        line.Options,
			LineTotalCents: line.LineTotalCents,
		}
	}
	history := make([]orderStatusEventResponse, len(order.StatusEvents))
	for i, event := range order.StatusEvents {
		history[i] = orderStatusEventResponse{
			Status:    event.Status.String(),
			Notes:     event.Notes,
			CreatedAt: event.CreatedAt,
		}
	}
	return orderResponse{
		ID:                  order.ID,
		CartID:              order.CartID,
		CustomerID:          order.CustomerID,
		RestaurantID:        order.RestaurantID,
		Status:              order.Status.String(),
		SubtotalCents:       order.SubtotalCents,
		TaxCents:            order.TaxCents,
		DeliveryFeeCents:    order.DeliveryFeeCents,
		TotalCents:          order.TotalCents,
		DeliveryAddress:     order.DeliveryAddress,
		SpecialInstructions: order.SpecialInstructions,
		PlacedAt:            order.PlacedAt,
		Items:               items,
		StatusHistory:       history,
	}
}

// OrderPlace converts a cart into an order, exactly once per Idempotency-Key.
// A replayed token answers 200 with the original order; a fresh placement
// answers 201.
func OrderPlace(svc placement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(idempotencyKeyHeader)
		if token == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is required"))
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), token, placement.PlaceOrderInput{
			CartID:              payload.CartID,
			CustomerID:          payload.CustomerID,
			DeliveryAddress:     payload.DeliveryAddress,
			SpecialInstructions: payload.SpecialInstructions,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, newOrderResponse(result.Order))
	}
}

// OrderGet returns an order with its frozen lines and status history.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderUpdateStatus advances an order along the status graph.
func OrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
