// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"testing"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	var tip Tip
	err := Decode("application/json; charset=utf-8",
		strings.NewReader(`{"name":"Bob","message":"hi","amount":"1000"}`), &tip)
	if assert.NoError(t, err) {
		assert.Equal(t, Tip{Name: "Bob", Message: "hi", Amount: "1000"}, tip)
	}

	err = Decode("text/plain", strings.NewReader("hi"), &tip)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "text/plain"}, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(err))

	err = Decode(V1JSONMediaType, strings.NewReader("{"), &tip)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestAmounts(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(nil))
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.Equal(t, "123456789012345678901234567890", FormatAmount(huge))

	amount, err := ParseAmount("123456789012345678901234567890")
	if assert.NoError(t, err) {
		assert.Equal(t, 0, huge.Cmp(amount))
	}
	_, err = ParseAmount("1.5")
	assert.IsType(t, coffee.ErrInvalid{}, err)
}

func TestCoffeeWireForm(t *testing.T) {
	c := coffee.Coffee{
		From:       "0xabc",
		Name:       "Bob",
		Message:    "hi",
		Amount:     big.NewInt(42),
		Timestamp:  1700000000,
		Optimistic: true,
		LocalID:    "local-1",
	}
	var buf bytes.Buffer
	if assert.NoError(t, Encode(&buf, FromCoffee(c))) {
		assert.JSONEq(t,
			`{"from":"0xabc","name":"Bob","message":"hi","amount":"42","timestamp":1700000000,"optimistic":true,"local_id":"local-1"}`,
			buf.String())
	}
	assert.Equal(t, c, FromCoffee(c).ToCoffee())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		Err    error
		Status int
		Code   string
	}{
		{coffee.ErrUsernameTaken, http.StatusConflict, "ErrUsernameTaken"},
		{coffee.ErrProfileExists, http.StatusConflict, "ErrProfileExists"},
		{fmt.Errorf("buy coffee: %w", coffee.ErrUserRejected), http.StatusForbidden, "ErrUserRejected"},
		{coffee.ErrWritesDisabled, http.StatusServiceUnavailable, "ErrWritesDisabled"},
		{coffee.ErrNoContract, http.StatusServiceUnavailable, "ErrNoContract"},
		{coffee.ErrTransactionFailed, http.StatusBadGateway, "ErrTransactionFailed"},
		{coffee.ErrInvalid{Field: "name", Reason: "is required"}, http.StatusBadRequest, "ErrInvalid"},
		{coffee.ErrNoSuchProfile{Key: "alice"}, http.StatusNotFound, "ErrNoSuchProfile"},
		{ErrNotFound{Err: coffee.ErrNoSuchProfile{Key: "bob"}}, http.StatusNotFound, "ErrNoSuchProfile"},
		{fmt.Errorf("buy coffee: %w", fmt.Errorf("dial tcp 10.0.0.1:8545: i/o timeout")), http.StatusInternalServerError, "error"},
	}
	for _, test := range tests {
		status, resp := NewErrorResponse(test.Err)
		assert.Equal(t, test.Status, status, "%v", test.Err)
		assert.Equal(t, test.Code, resp.Error, "%v", test.Err)
		if status >= 500 {
			assert.Equal(t, GenericMessage, resp.Message, "%v", test.Err)
		} else {
			assert.Equal(t, test.Err.Error(), resp.Message)
		}
	}
}

func TestErrorRoundTrip(t *testing.T) {
	for _, err := range []error{
		coffee.ErrUserRejected,
		coffee.ErrUsernameTaken,
		coffee.ErrWritesDisabled,
		coffee.ErrInvalid{Field: "amount", Reason: "must be positive"},
		coffee.ErrNoSuchProfile{Key: "0xabc"},
	} {
		_, resp := NewErrorResponse(err)
		assert.Equal(t, err, resp.ToError())
	}

	resp := ErrorResponse{Error: "error", Message: "odd"}
	assert.EqualError(t, resp.ToError(), "odd")
}

func TestFromPanic(t *testing.T) {
	var resp ErrorResponse
	detail := resp.FromPanic("secret database password")
	assert.Equal(t, "panic", resp.Error)
	assert.Equal(t, GenericMessage, resp.Message)
	assert.Contains(t, detail, "secret database password")
}
