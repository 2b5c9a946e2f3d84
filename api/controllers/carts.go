package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/api/responses"
	"github.com/omarserrano/dishpatch-backend/api/validators"
	cartsvc "github.com/omarserrano/dishpatch-backend/internal/cart"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

type createCartRequest struct {
	CustomerID   *uuid.UUID `json:"customer_id"`
	RestaurantID *uuid.UUID `json:"restaurant_id"`
}

type addItemRequest struct {
	MenuItemID uuid.UUID         `json:"menu_item_id" validate:"required"`
	Quantity   int               `json:"quantity" validate:"required,min=1"`
	Options    types.ItemOptions `json:"options"`
}

// Quantity is intentionally unconstrained: zero or below means removal and
// the service handles that, so the boundary must not reject it.
type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	ID             uuid.UUID         `json:"id"`
	MenuItemID     uuid.UUID         `json:"menu_item_id"`
	Name           string            `json:"name"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	Quantity       int               `json:"quantity"`
	Options        types.ItemOptions `json:"options,omitempty"`
	LineTotalCents int64             `json:"line_total_cents"`
}

type cartResponse struct {
	ID               uuid.UUID          `json:"id"`
	CustomerID       *uuid.UUID         `json:"customer_id,omitempty"`
	RestaurantID     *uuid.UUID         `json:"restaurant_id,omitempty"`
	Status           string             `json:"status"`
	Version          int64              `json:"version"`
	SubtotalCents    int64              `json:"subtotal_cents"`
	TaxCents         int64              `json:"tax_cents"`
	DeliveryFeeCents int64              `json:"delivery_fee_cents"`
	TotalCents       int64              `json:"total_cents"`
	Items            []cartItemResponse `json:"items"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func newCartResponse(record *models.Cart) cartResponse {
	items := make([]cartItemResponse, len(record.Items))
	for i, line := range record.Items {
		items[i] = cartItemResponse{
			ID:             line.ID,
			MenuItemID:     line.MenuItemID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			Options:        line.Options,
			LineTotalCents: line.LineTotalCents,
		}
	}
	return cartResponse{
		ID:               record.ID,
		CustomerID:       record.CustomerID,
		RestaurantID:     record.RestaurantID,
		Status:           record.Status.String(),
		Version:          record.Version,
		SubtotalCents:    record.SubtotalCents,
		TaxCents:         record.TaxCents,
		DeliveryFeeCents: record.DeliveryFeeCents,
		TotalCents:       record.TotalCents,
		Items:            items,
		UpdatedAt:        record.UpdatedAt,
	}
}

// CartCreate opens a new empty cart.
func CartCreate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCartRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		record, err := svc.CreateCart(r.Context(), cartsvc.CreateCartInput{
			CustomerID:   payload.CustomerID,
			RestaurantID: payload.RestaurantID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(record))
	}
}

// CartGet returns the cart with derived totals.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetCart(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartAddItem adds or merges a line on the cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddItem(r.Context(), cartID, cartsvc.AddItemInput{
			MenuItemID: payload.MenuItemID,
			Quantity:   payload.Quantity,
			Options:    payload.Options,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartUpdateItem sets a line's quantity; zero removes the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateItemQuantity(r.Context(), cartID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartRemoveItem removes a line from the cart.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveItem(r.Context(), cartID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartClear removes every line and releases the restaurant binding.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.ClearCart(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}
