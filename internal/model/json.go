package model

import (
	"encoding/json"
	"errors"
	"io"
)

// DecodeJSON decodes exactly one JSON value from r into v. Numbers are
// kept as json.Number and anything but whitespace after the value is
// ErrTrailingData.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
