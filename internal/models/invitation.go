package models

import "time"

// SignerType identifies which party to the lease a signer is.
type SignerType string

const (
	SignerLandlord  SignerType = "landlord"
	SignerTenant    SignerType = "tenant"
	SignerGuarantor SignerType = "guarantor"
)

// Valid reports whether t is one of the known signer types.
func (t SignerType) Valid() bool {
	switch t {
	case SignerLandlord, SignerTenant, SignerGuarantor:
		return true
	}
	return false
}

// InvitationStatus is the stored state of a signature invitation.
// expired is never written in the happy path; it is derived at read time
// from ExpiresAt.
type InvitationStatus string

const (
	StatusNotSent InvitationStatus = "not_sent"
	StatusSent    InvitationStatus = "sent"
	StatusSigned  InvitationStatus = "signed"
	StatusExpired InvitationStatus = "expired"
)

// SignatureChannel distinguishes the emailed token flow from operator-assisted
// in-person signing.
type SignatureChannel string

const (
	ChannelInvited SignatureChannel = "invited"
	ChannelDirect  SignatureChannel = "direct"
)

// InPersonEmail is the placeholder address stored on direct-channel
// invitations. Distribution skips it.
const InPersonEmail = "inperson@leasesign.local"

// SignatureInvitation is one party's right to sign a contract, keyed by an
// unguessable token.
type SignatureInvitation struct {
	ID          int64
	ContractID  string
	SignerEmail string
	SignerName  string
	SignerRole  string // display label, also the template placeholder id
	SignerType  SignerType
	SignerID    string // caller-supplied, distinguishes e.g. multiple guarantors

	InvitationToken string
	Status          InvitationStatus
	Channel         SignatureChannel

	CreatedAt time.Time
	ExpiresAt time.Time
	SentAt    *time.Time
	SignedAt  *time.Time

	// Captured at signing time
	SignatureImage string // data-URL image payload
	IPAddress      string
	UserAgent      string
}

func (i *SignatureInvitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *SignatureInvitation) IsSigned() bool {
	return i.Status == StatusSigned
}

// EffectiveStatus folds lazy expiry into the stored status: a not_sent/sent
// invitation past its ExpiresAt reads as expired. signed is terminal.
func (i *SignatureInvitation) EffectiveStatus() InvitationStatus {
	if i.Status != StatusSigned && i.IsExpired() {
		return StatusExpired
	}
	return i.Status
}
