// Package transport defines request/response DTOs for the providers module.
package transport

import "github.com/google/uuid"

// LookupRequest is the query for resolving a provider by phone number.
type LookupRequest struct {
	Phone string `form:"phone" validate:"required,min=6"`
}

// ProviderResponse is the API shape of a provider directory entry.
type ProviderResponse struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	DisplayName    string    `json:"displayName"`
	PhoneCanonical string    `json:"phoneCanonical"`
	PaymentTerms   *string   `json:"paymentTerms,omitempty"`
}
