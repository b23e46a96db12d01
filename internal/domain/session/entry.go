package session

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Entry is one browser-state snapshot captured while the visitor was on a page.
// All fields are validated using go-playground/validator tags.
type Entry struct {
	URL               string            `json:"url" validate:"required"`
	CookiesAndOrigins CookieJar         `json:"cookies_and_origins"`
	LocalStorage      map[string]string `json:"local_storage" validate:"required"`
	SessionStorage    map[string]string `json:"session_storage" validate:"required"`
	Resources         []Resource        `json:"resources" validate:"required,dive"`
}

// CookieJar holds the cookies (and storage origins) the browser reported for a page.
type CookieJar struct {
	Cookies []CookieRecord    `json:"cookies" validate:"dive"`
	Origins []json.RawMessage `json:"origins,omitempty"`
}

// CookieRecord is a single cookie as reported by the browser automation layer.
type CookieRecord struct {
	Name     string   `json:"name"`
	Domain   string   `json:"domain,omitempty"`
	Path     string   `json:"path,omitempty"`
	Expires  *float64 `json:"expires,omitempty"`
	HTTPOnly bool     `json:"httpOnly"`
	Secure   bool     `json:"secure"`
	SameSite string   `json:"sameSite,omitempty"`
	Value    string   `json:"value,omitempty"`
}

// Resource describes an embedded element (img, iframe, script, object, embed).
type Resource struct {
	Type   string   `json:"type"`
	URL    string   `json:"url"`
	Width  *float64 `json:"width,omitempty" validate:"omitempty,gte=0"`
	Height *float64 `json:"height,omitempty" validate:"omitempty,gte=0"`
}

// NewEntry decodes and validates a single JSONL record. The returned error wraps
// ErrInvalidEntry so callers can skip the line and keep streaming.
func NewEntry(raw []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: decode: %v", sharedErrors.ErrInvalidEntry, err)
	}
	if err := validate.Struct(e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidEntry, err)
	}
	return e, nil
}

// Cookies returns the cookies recorded for this page.
func (e Entry) Cookies() []CookieRecord {
	return e.CookiesAndOrigins.Cookies
}

// IsImage reports whether the resource is an <img> element.
func (r Resource) IsImage() bool {
	return r.Type == "img"
}

// Dimensions returns width and height, treating missing values as zero.
func (r Resource) Dimensions() (float64, float64) {
	var w, h float64
	if r.Width != nil {
		w = *r.Width
	}
	if r.Height != nil {
		h = *r.Height
	}
	return w, h
}
