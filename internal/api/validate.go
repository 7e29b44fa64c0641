package api

import (
	"encoding/json"
	"errors"
	"reflect"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// errBaseVersionMissing is returned by requireBaseVersion for an absent
// "baseVersion" field.
var errBaseVersionMissing = errors.New("baseVersion is required")

// requireBaseVersion rejects a nil *int64 without ozzo-validation's usual
// Required semantics, which treat a non-nil pointer to the zero value as
// empty too (IsEmpty recurses through pointers). spec.md §4.2.4 needs the
// opposite: baseVersion:0 is the ordinary, and most common, value — it is
// only a genuinely absent field that must 400.
func requireBaseVersion(value interface{}) error {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return errBaseVersionMissing
	}
	return nil
}

// projectRequest is the body of PUT /api/project.
type projectRequest struct {
	ClientID    string          `json:"clientId"`
	BaseVersion *int64          `json:"baseVersion"`
	Glyphs      json.RawMessage `json:"glyphs"`
	Syntaxes    json.RawMessage `json:"syntaxes"`
	Metrics     json.RawMessage `json:"metrics"`
}

func (req projectRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.BaseVersion, validation.By(requireBaseVersion), validation.Min(int64(0))),
	)
}

// entityUpsertRequest is the body of PUT /api/glyph and PUT /api/syntax.
// Glyph and Syntax hold the raw object from the "glyph" or "syntax"
// field; the handler reads whichever one matches the endpoint.
type entityUpsertRequest struct {
	ClientID    string          `json:"clientId"`
	BaseVersion *int64          `json:"baseVersion"`
	Glyph       json.RawMessage `json:"glyph"`
	Syntax      json.RawMessage `json:"syntax"`
}

func (req entityUpsertRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.BaseVersion, validation.By(requireBaseVersion), validation.Min(int64(0))),
	)
}

// entityDeleteRequest is the body of DELETE /api/glyph and
// DELETE /api/syntax.
type entityDeleteRequest struct {
	ClientID    string `json:"clientId"`
	BaseVersion *int64 `json:"baseVersion"`
	ID          string `json:"id"`
}

func (req entityDeleteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ID, validation.Required),
		validation.Field(&req.BaseVersion, validation.By(requireBaseVersion), validation.Min(int64(0))),
	)
}

// metricsRequest is the body of PUT /api/metrics.
type metricsRequest struct {
	ClientID    string          `json:"clientId"`
	BaseVersion *int64          `json:"baseVersion"`
	Metrics     json.RawMessage `json:"metrics"`
}

func (req metricsRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.BaseVersion, validation.By(requireBaseVersion), validation.Min(int64(0))),
	)
}
