package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"leasesign/internal/models"
	"leasesign/internal/repository"
	"leasesign/internal/utils"
)

// InvitationStore is the invitation persistence the engine needs.
// Satisfied by *repository.InvitationRepository.
type InvitationStore interface {
	Create(inv *models.SignatureInvitation) (int64, error)
	GetByToken(token string) (*models.SignatureInvitation, error)
	ListByContract(contractID string) ([]models.SignatureInvitation, error)
	MarkSent(id int64, sentAt time.Time) error
	RecordSignature(id int64, image string, signedAt time.Time, ipAddress, userAgent string) (bool, error)
}

// ContractStore reads questionnaire output. Satisfied by
// *repository.ContractRepository.
type ContractStore interface {
	Get(contractID string) (*models.Contract, error)
}

// AggregateStore manages the per-contract signature status row. Satisfied by
// *repository.SignatureStatusRepository.
type AggregateStore interface {
	Ensure(contractID string, now time.Time) error
	Get(contractID string) (*models.ContractSignatures, error)
	MarkAllSigned(contractID string, now time.Time) (bool, error)
	MarkDistributed(contractID, pdfURL string, now time.Time) error
}

// InvitationMailer sends signing links. Satisfied by *EmailService.
type InvitationMailer interface {
	SendSigningInvitation(ctx context.Context, toEmail, toName, role, link string, expiresAt time.Time) error
}

// Distributor delivers the final contract once every party signed. Satisfied
// by *DistributionService.
type Distributor interface {
	Distribute(ctx context.Context, contractID string, signers []models.Signer) (int, error)
}

// SignatureService is the invitation engine: it creates invitations for both
// channels, validates signing attempts, records signatures and evaluates
// completion.
type SignatureService struct {
	invitations InvitationStore
	contracts   ContractStore
	aggregates  AggregateStore
	mailer      InvitationMailer
	distributor Distributor

	baseURL       string
	invitationTTL time.Duration
}

func NewSignatureService(
	invitations InvitationStore,
	contracts ContractStore,
	aggregates AggregateStore,
	mailer InvitationMailer,
	distributor Distributor,
	baseURL string,
	invitationTTL time.Duration,
) *SignatureService {
	return &SignatureService{
		invitations:   invitations,
		contracts:     contracts,
		aggregates:    aggregates,
		mailer:        mailer,
		distributor:   distributor,
		baseURL:       baseURL,
		invitationTTL: invitationTTL,
	}
}

// CreateDirectSignature records an operator-assisted in-person signature. The
// invitation is created already signed, with the placeholder address
// distribution later skips. Returns the invitation and whether the contract
// is now fully signed.
func (s *SignatureService) CreateDirectSignature(ctx context.Context, contractID string, signer models.Signer, signatureImage string) (*models.SignatureInvitation, bool, error) {
	if err := utils.ValidateSignatureImage(signatureImage); err != nil {
		return nil, false, err
	}

	inv, err := s.createInvitation(contractID, signer, models.ChannelDirect, signatureImage)
	if err != nil {
		return nil, false, err
	}

	allSigned, err := s.evaluateCompletion(ctx, contractID)
	if err != nil {
		return nil, false, err
	}
	return inv, allSigned, nil
}

// SendInvitations batch-creates invited-channel invitations for a contract's
// signers and emails each their signing link. A failed email leaves that
// invitation in not_sent and does not abort the batch; the returned count is
// the number of links actually sent.
func (s *SignatureService) SendInvitations(ctx context.Context, contractID string, signers []models.Signer) ([]models.SignatureInvitation, int, error) {
	if _, err := s.contracts.Get(contractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("contract %s: %w", contractID, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("failed to load contract %s: %w", contractID, err)
	}

	var created []models.SignatureInvitation
	sent := 0
	for _, signer := range signers {
		inv, err := s.createInvitation(contractID, signer, models.ChannelInvited, "")
		if err != nil {
			return created, sent, err
		}

		link := s.signingLink(inv.InvitationToken)
		if err := s.mailer.SendSigningInvitation(ctx, inv.SignerEmail, inv.SignerName, inv.SignerRole, link, inv.ExpiresAt); err != nil {
			log.Printf("Failed to send signing invitation: contract=%s, signer=%s, err=%v", contractID, inv.SignerID, err)
			created = append(created, *inv)
			continue
		}

		now := time.Now()
		if err := s.invitations.MarkSent(inv.ID, now); err != nil {
			log.Printf("Failed to mark invitation sent: id=%d, err=%v", inv.ID, err)
		} else {
			inv.Status = models.StatusSent
			inv.SentAt = &now
		}
		sent++
		created = append(created, *inv)
	}
	return created, sent, nil
}

// VerifyToken resolves a signing link's token and returns the invitation with
// its contract. Already-signed is checked before expiry: a captured signature
// is terminal, expiry only matters while the invitation is still signable.
func (s *SignatureService) VerifyToken(ctx context.Context, token string) (*models.SignatureInvitation, *models.Contract, error) {
	inv, err := s.resolveByToken(token)
	if err != nil {
		return nil, nil, err
	}

	if inv.IsSigned() {
		return nil, nil, fmt.Errorf("token %s: %w", token, ErrAlreadySigned)
	}
	if inv.IsExpired() {
		return nil, nil, fmt.Errorf("token %s: %w", token, ErrExpired)
	}

	c, err := s.contracts.Get(inv.ContractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("contract %s: %w", inv.ContractID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to load contract %s: %w", inv.ContractID, err)
	}
	return inv, c, nil
}

// RecordSignature processes a signing attempt: resolve, reject signed or
// expired tokens, persist the signature with its audit fields, then evaluate
// completion. Returns whether the contract is now fully signed.
func (s *SignatureService) RecordSignature(ctx context.Context, token, signatureImage, ipAddress, userAgent string) (bool, error) {
	if err := utils.ValidateSignatureImage(signatureImage); err != nil {
		return false, err
	}

	inv, err := s.resolveByToken(token)
	if err != nil {
		return false, err
	}

	if inv.IsSigned() {
		return false, fmt.Errorf("token %s: %w", token, ErrAlreadySigned)
	}
	if inv.IsExpired() {
		return false, fmt.Errorf("token %s: %w", token, ErrExpired)
	}

	updated, err := s.invitations.RecordSignature(inv.ID, signatureImage, time.Now(), ipAddress, userAgent)
	if err != nil {
		return false, fmt.Errorf("failed to record signature: %w", err)
	}
	if !updated {
		// Lost a race against a concurrent submit of the same token.
		return false, fmt.Errorf("token %s: %w", token, ErrAlreadySigned)
	}

	return s.evaluateCompletion(ctx, inv.ContractID)
}

// ListByContract returns every invitation for a contract with lazy expiry
// applied to the status.
func (s *SignatureService) ListByContract(contractID string) ([]models.SignatureInvitation, error) {
	invitations, err := s.invitations.ListByContract(contractID)
	if err != nil {
		return nil, err
	}
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus()
	}
	return invitations, nil
}

// resolveByToken looks up the unique invitation for a token. A store holding
// two invitations with the same token is corrupted; that surfaces as an
// error, never as a silent pick.
func (s *SignatureService) resolveByToken(token string) (*models.SignatureInvitation, error) {
	inv, err := s.invitations.GetByToken(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token %s: %w", token, ErrNotFound)
		}
		if errors.Is(err, repository.ErrDuplicateToken) {
			return nil, fmt.Errorf("invariant violation for token %s: %w", token, err)
		}
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return inv, nil
}

// createInvitation is the single creation path for both channels. Channel
// only alters the initial status and the placeholder email, never the
// validation.
func (s *SignatureService) createInvitation(contractID string, signer models.Signer, channel models.SignatureChannel, signatureImage string) (*models.SignatureInvitation, error) {
	if err := utils.ValidateRequired("contractId", contractID); err != nil {
		return nil, err
	}
	if err := utils.ValidateRequired("signerId", signer.SignerID); err != nil {
		return nil, err
	}
	if err := utils.ValidateRequired("signerName", signer.Name); err != nil {
		return nil, err
	}
	if !signer.Type.Valid() {
		return nil, utils.ValidationError{Field: "signerType", Message: "must be landlord, tenant or guarantor"}
	}

	email := signer.Email
	if channel == models.ChannelDirect && email == "" {
		email = models.InPersonEmail
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}

	role := signer.Role
	if role == "" {
		role = string(signer.Type)
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}

	now := time.Now()
	inv := &models.SignatureInvitation{
		ContractID:      contractID,
		SignerEmail:     email,
		SignerName:      signer.Name,
		SignerRole:      role,
		SignerType:      signer.Type,
		SignerID:        signer.SignerID,
		InvitationToken: token,
		Status:          models.StatusNotSent,
		Channel:         channel,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.invitationTTL),
	}

	if channel == models.ChannelDirect {
		inv.Status = models.StatusSigned
		inv.SignedAt = &now
		inv.SignatureImage = signatureImage
	}

	id, err := s.invitations.Create(inv)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	inv.ID = id

	if err := s.aggregates.Ensure(contractID, now); err != nil {
		return nil, fmt.Errorf("failed to ensure signature status for contract %s: %w", contractID, err)
	}
	return inv, nil
}

// evaluateCompletion re-reads every invitation for the contract and decides
// whether all parties signed. The all_signed flip is a compare-and-swap on
// the aggregate row, so only one of two racing last-signer requests triggers
// distribution. Distribution failures are logged and swallowed; they never
// fail the signature save that triggered them.
func (s *SignatureService) evaluateCompletion(ctx context.Context, contractID string) (bool, error) {
	invitations, err := s.invitations.ListByContract(contractID)
	if err != nil {
		return false, fmt.Errorf("failed to list invitations for contract %s: %w", contractID, err)
	}
	if len(invitations) == 0 {
		return false, nil
	}

	if err := s.aggregates.Ensure(contractID, time.Now()); err != nil {
		return false, fmt.Errorf("failed to ensure signature status for contract %s: %w", contractID, err)
	}

	for _, inv := range invitations {
		if !inv.IsSigned() {
			return false, nil
		}
	}

	won, err := s.aggregates.MarkAllSigned(contractID, time.Now())
	if err != nil {
		return true, fmt.Errorf("failed to mark contract %s all-signed: %w", contractID, err)
	}
	if !won || s.distributor == nil {
		return true, nil
	}

	signers := make([]models.Signer, 0, len(invitations))
	for _, inv := range invitations {
		signers = append(signers, models.Signer{
			SignerID: inv.SignerID,
			Name:     inv.SignerName,
			Email:    inv.SignerEmail,
			Role:     inv.SignerRole,
			Type:     inv.SignerType,
		})
	}

	if _, err := s.distributor.Distribute(ctx, contractID, signers); err != nil {
		log.Printf("Final contract distribution failed: contract=%s, err=%v", contractID, err)
	}
	return true, nil
}

func (s *SignatureService) signingLink(token string) string {
	return fmt.Sprintf("%s/sign?token=%s", s.baseURL, url.QueryEscape(token))
}
