// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"fmt"
	"io"
	"math/big"
	"mime"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/ugorji/go/codec"
)

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		contentType = "application/octet-stream"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrBadRequest{Err: err}
	}

	switch mediaType {
	case "text/json", "application/json", JSONMediaType, V1JSONMediaType:
		decoder := codec.NewDecoder(r, &codec.JsonHandle{})
		err = decoder.Decode(out)
		if err != nil {
			err = ErrBadRequest{Err: err}
		}
		return err
	default:
		return ErrUnsupportedMediaType{Type: mediaType}
	}
}

// Encode writes a restdata object as JSON.
func Encode(w io.Writer, v interface{}) error {
	return codec.NewEncoder(w, &codec.JsonHandle{}).Encode(v)
}

// FormatAmount renders a currency amount; nil is zero.
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// ParseAmount reads a decimal currency amount.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, coffee.ErrInvalid{Field: "amount", Reason: fmt.Sprintf("%q is not a whole number", s)}
	}
	return amount, nil
}

// FromCoffee converts a coffee to its wire form.
func FromCoffee(c coffee.Coffee) Coffee {
	return Coffee{
		From:       c.From,
		Name:       c.Name,
		Message:    c.Message,
		Amount:     FormatAmount(c.Amount),
		Timestamp:  c.Timestamp,
		Optimistic: c.Optimistic,
		LocalID:    c.LocalID,
	}
}

// FromCoffees converts a coffee list to its wire form.
func FromCoffees(list []coffee.Coffee) CoffeeList {
	result := CoffeeList{Coffees: make([]Coffee, len(list))}
	for i, c := range list {
		result.Coffees[i] = FromCoffee(c)
	}
	return result
}

// ToCoffee converts a wire coffee back.  An unparseable amount
// becomes nil.
func (c Coffee) ToCoffee() coffee.Coffee {
	amount, _ := ParseAmount(c.Amount)
	return coffee.Coffee{
		From:       c.From,
		Name:       c.Name,
		Message:    c.Message,
		Amount:     amount,
		Timestamp:  c.Timestamp,
		Optimistic: c.Optimistic,
		LocalID:    c.LocalID,
	}
}

// FromProfile converts a profile to its wire form, without URLs.
func FromProfile(p coffee.Profile) Profile {
	return Profile{
		Address:     p.Address,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		Links:       p.Links,
		CreatedAt:   p.CreatedAt,
	}
}

// ToProfile converts a wire profile back.
func (p Profile) ToProfile() coffee.Profile {
	return coffee.Profile{
		Address:     p.Address,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		Links:       p.Links,
		CreatedAt:   p.CreatedAt,
	}
}
