package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lacasita-io/storefront-backend/api/responses"
	"github.com/lacasita-io/storefront-backend/api/validators"
	addresssvc "github.com/lacasita-io/storefront-backend/internal/address"
	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
)

type createAddressRequest struct {
	Street    string `json:"street" validate:"required,max=200"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=100"`
	ZipCode   string `json:"zip_code" validate:"required,max=20"`
	Country   string `json:"country" validate:"required,max=100"`
	IsDefault bool   `json:"is_default"`
}

type addressResponse struct {
	ID        uuid.UUID `json:"id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zip_code"`
	Country   string    `json:"country"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// AddressList returns the caller's address book.
func AddressList(repo *addresssvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := repo.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses"))
			return
		}
		out := make([]addressResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newAddressResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// AddressCreate adds an address to the caller's address book.
func AddressCreate(repo *addresssvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addr := models.Address{
			UserID:    userID,
			Street:    payload.Street,
			City:      payload.City,
			State:     payload.State,
			ZipCode:   payload.ZipCode,
			Country:   payload.Country,
			IsDefault: payload.IsDefault,
		}
		if err := repo.Create(r.Context(), &addr); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(addr))
	}
}

func newAddressResponse(addr models.Address) addressResponse {
	return addressResponse{
		ID:        addr.ID,
		Street:    addr.Street,
		City:      addr.City,
		State:     addr.State,
		ZipCode:   addr.ZipCode,
		Country:   addr.Country,
		IsDefault: addr.IsDefault,
		CreatedAt: addr.CreatedAt,
	}
}
