package models

import "time"

// Contract is the questionnaire output this service reads. The questionnaire
// flow owns creation; nothing here mutates it.
type Contract struct {
	ID        string
	Answers   map[string]string
	CreatedAt time.Time
}

// ContractSignatures is the per-contract aggregate signature status,
// one row per contract, upserted with merge semantics.
type ContractSignatures struct {
	ContractID       string
	AllSigned        bool
	SentToAllParties bool
	FinalPDFURL      string
	UpdatedAt        time.Time
}

// Signer describes a party whose signature a contract requires.
type Signer struct {
	SignerID string     `json:"signerId"`
	Name     string     `json:"signerName"`
	Email    string     `json:"signerEmail"`
	Role     string     `json:"signerRole"`
	Type     SignerType `json:"signerType"`
}
