// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"errors"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/lib/pq"
	"github.com/ugorji/go/codec"
)

// link map <-> binary encoders

func linksToBytes(in map[string]string) (out []byte, err error) {
	if len(in) == 0 {
		return nil, nil
	}
	cbor := new(codec.CborHandle)
	encoder := codec.NewEncoderBytes(&out, cbor)
	err = encoder.Encode(in)
	return
}

func bytesToLinks(in []byte) (out map[string]string, err error) {
	if len(in) == 0 {
		return nil, nil
	}
	cbor := new(codec.CborHandle)
	decoder := codec.NewDecoderBytes(in, cbor)
	err = decoder.Decode(&out)
	return
}

// uniqueError converts a unique-constraint violation from an INSERT
// into the matching profile error.  Other errors pass through.
func uniqueError(err error) error {
	var pqerr *pq.Error
	if !errors.As(err, &pqerr) || pqerr.Code != uniqueViolation {
		return err
	}
	switch pqerr.Constraint {
	case profilePrimaryKey:
		return coffee.ErrProfileExists
	case profileUsernameKey:
		return coffee.ErrUsernameTaken
	}
	return err
}
