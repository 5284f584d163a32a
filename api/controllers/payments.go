package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lacasita-io/storefront-backend/api/responses"
	"github.com/lacasita-io/storefront-backend/api/validators"
	paymentsvc "github.com/lacasita-io/storefront-backend/internal/payments"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
)

type createPaymentRequest struct {
	Provider string `json:"provider" validate:"required"`
}

// success carries no validate tag: a reported failure is a legitimate body.
type processPaymentRequest struct {
	Success       bool    `json:"success"`
	TransactionID *string `json:"transaction_id"`
}

// PaymentCreate attaches a payment to a pending order.
func PaymentCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provider, err := enums.ParsePaymentProvider(payload.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, "unsupported payment provider").
				WithDetails(map[string]any{"provider": payload.Provider}))
			return
		}
		dto, err := svc.Create(r.Context(), orderID, userID, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// PaymentProcess records the gateway outcome for the order's pending payment.
func PaymentProcess(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload processPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Process(r.Context(), orderID, userID, paymentsvc.ProcessInput{
			Success:       payload.Success,
			TransactionID: payload.TransactionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// PaymentMethods lists every accepted payment rail.
func PaymentMethods(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Methods())
	}
}
