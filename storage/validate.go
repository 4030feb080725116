package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, ok := ParseClock(fl.Field().String())
		return ok
	})
	return v
}

// documentShape lists the top-level fields and the JSON kind each must have.
var documentShape = []struct {
	field string
	open  byte
}{
	{"kids", '['},
	{"channels", '['},
	{"videos", '['},
	{"settings", '{'},
}

// Decode parses and validates a serialized document. Any structural
// mismatch yields an error wrapping ErrStorageCorrupt; nothing is partially
// recovered.
func Decode(data []byte) (*AppState, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: document is null", ErrStorageCorrupt)
	}
	for _, f := range documentShape {
		raw, ok := top[f.field]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrStorageCorrupt, f.field)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != f.open {
			return nil, fmt.Errorf("%w: %q has the wrong shape", ErrStorageCorrupt, f.field)
		}
	}

	st := &AppState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if err := validate.Struct(st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	return st, nil
}

// Validate checks the structural rules Decode enforces on load. It returns
// an error wrapping ErrInvalidDocument when st would not survive a reload.
func Validate(st *AppState) error {
	if st == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if err := validate.Struct(st); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// Encode validates and serializes the document. Nil collections are written
// as empty arrays so the output always passes Decode.
func Encode(st *AppState) ([]byte, error) {
	if err := Validate(st); err != nil {
		return nil, err
	}
	doc := *st
	if doc.Kids == nil {
		doc.Kids = []KidProfile{}
	}
	if doc.Channels == nil {
		doc.Channels = []ApprovedChannel{}
	}
	if doc.Videos == nil {
		doc.Videos = []ImportedVideo{}
	}
	return json.Marshal(&doc)
}
