package service

import "errors"

var (
	// ErrNotFound covers unknown invitation tokens and missing contracts.
	ErrNotFound = errors.New("not found")

	// ErrExpired marks an invitation past its expiry. Terminal for that token.
	ErrExpired = errors.New("invitation expired")

	// ErrAlreadySigned is the idempotent rejection of a second signing
	// attempt. The first captured signature is never overwritten.
	ErrAlreadySigned = errors.New("invitation already signed")
)
