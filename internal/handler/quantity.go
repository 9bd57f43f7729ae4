package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	apperrors "wastepoints/internal/errors"
)

// Quantity is a point amount in a request body. It accepts a JSON number or a
// numeric string; anything else fails with ErrInvalidAmount. Range and
// integrality are checked by the ledger.
type Quantity float64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return apperrors.ErrInvalidAmount
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return apperrors.ErrInvalidAmount
		}
		*q = Quantity(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return apperrors.ErrInvalidAmount
	}
	*q = Quantity(v)
	return nil
}

// Float64 returns q as a float64.
func (q Quantity) Float64() float64 {
	return float64(q)
}
