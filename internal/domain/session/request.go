package session

import (
	"encoding/json"
	"fmt"

	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

// NetworkRequest is an out-of-band HTTP request captured during the session.
type NetworkRequest struct {
	URL          string            `json:"url" validate:"required"`
	ResourceType string            `json:"resource_type"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	Status       int               `json:"status,omitempty"`
	PostData     string            `json:"post_data,omitempty"`

	// Raw keeps the original record for diagnostics.
	Raw json.RawMessage `json:"-"`
}

// NewNetworkRequest decodes and validates one element of network_requests.json.
func NewNetworkRequest(raw json.RawMessage) (NetworkRequest, error) {
	var r NetworkRequest
	if err := json.Unmarshal(raw, &r); err != nil {
		return NetworkRequest{}, fmt.Errorf("%w: decode: %v", sharedErrors.ErrInvalidRequest, err)
	}
	if err := validate.Struct(r); err != nil {
		return NetworkRequest{}, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidRequest, err)
	}
	r.Raw = append(json.RawMessage(nil), raw...)
	return r, nil
}
