package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"leasesign/internal/contract"
	"leasesign/internal/models"
	"leasesign/internal/utils"
)

// Renderer converts contract markup to a PDF. Satisfied by *render.Client.
type Renderer interface {
	Render(ctx context.Context, html, css string) ([]byte, error)
}

// ContractMailer sends the final contract. Satisfied by *EmailService.
type ContractMailer interface {
	SendFinalContract(ctx context.Context, toEmail, toName, downloadLink string, pdf []byte) (string, error)
}

// DistributionService renders the fully signed contract to PDF and emails it
// to every party.
type DistributionService struct {
	contracts   ContractStore
	invitations InvitationStore
	aggregates  AggregateStore
	assembler   *Assembler
	renderer    Renderer
	mailer      ContractMailer
	downloads   *utils.DownloadTokenIssuer

	artifactsPath string
	baseURL       string
}

func NewDistributionService(
	contracts ContractStore,
	invitations InvitationStore,
	aggregates AggregateStore,
	assembler *Assembler,
	renderer Renderer,
	mailer ContractMailer,
	downloads *utils.DownloadTokenIssuer,
	artifactsPath string,
	baseURL string,
) *DistributionService {
	return &DistributionService{
		contracts:     contracts,
		invitations:   invitations,
		aggregates:    aggregates,
		assembler:     assembler,
		renderer:      renderer,
		mailer:        mailer,
		downloads:     downloads,
		artifactsPath: artifactsPath,
		baseURL:       baseURL,
	}
}

// Distribute assembles the final contract, renders it to PDF, stores the
// artifact and emails it to every signer. With a nil signers list the
// recipients are derived from the contract's invitations. In-person
// placeholder addresses are skipped. One failed send is logged and does not
// abort the rest of the batch; the return value is the number of successful
// sends.
func (s *DistributionService) Distribute(ctx context.Context, contractID string, signers []models.Signer) (int, error) {
	c, err := s.contracts.Get(contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("contract %s: %w", contractID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to load contract %s: %w", contractID, err)
	}

	invitations, err := s.invitations.ListByContract(contractID)
	if err != nil {
		return 0, fmt.Errorf("failed to list invitations for contract %s: %w", contractID, err)
	}

	var parties []contract.SignedParty
	for _, inv := range invitations {
		if inv.IsSigned() {
			parties = append(parties, contract.SignedParty{
				Name:  inv.SignerName,
				Role:  inv.SignerRole,
				Image: inv.SignatureImage,
			})
		}
	}

	markup, err := s.assembler.Assemble(c, parties)
	if err != nil {
		return 0, fmt.Errorf("failed to assemble contract %s: %w", contractID, err)
	}

	pdf, err := s.renderer.Render(ctx, markup, s.assembler.Stylesheet())
	if err != nil {
		return 0, fmt.Errorf("failed to render contract %s: %w", contractID, err)
	}

	pdfPath, err := s.storeArtifact(contractID, pdf)
	if err != nil {
		return 0, err
	}

	downloadLink, err := s.downloadLink(contractID)
	if err != nil {
		return 0, err
	}

	recipients := signers
	if len(recipients) == 0 {
		for _, inv := range invitations {
			recipients = append(recipients, models.Signer{
				Name:  inv.SignerName,
				Email: inv.SignerEmail,
				Role:  inv.SignerRole,
				Type:  inv.SignerType,
			})
		}
	}

	sent := 0
	attempted := 0
	for _, signer := range recipients {
		if signer.Email == "" || signer.Email == models.InPersonEmail {
			continue
		}
		attempted++
		if _, err := s.mailer.SendFinalContract(ctx, signer.Email, signer.Name, downloadLink, pdf); err != nil {
			log.Printf("Failed to send final contract: contract=%s, to=%s, err=%v", contractID, signer.Email, err)
			continue
		}
		sent++
	}

	if sent == attempted && attempted > 0 {
		if err := s.aggregates.MarkDistributed(contractID, pdfPath, time.Now()); err != nil {
			log.Printf("Failed to mark contract distributed: contract=%s, err=%v", contractID, err)
		}
	} else {
		log.Printf("Final contract partially distributed: contract=%s, sent=%d/%d", contractID, sent, attempted)
	}

	return sent, nil
}

// FinalPDFPath returns the stored artifact path for a distributed contract.
func (s *DistributionService) FinalPDFPath(contractID string) (string, error) {
	agg, err := s.aggregates.Get(contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("contract %s: %w", contractID, ErrNotFound)
		}
		return "", err
	}
	if agg.FinalPDFURL == "" {
		return "", fmt.Errorf("contract %s has no final PDF: %w", contractID, ErrNotFound)
	}
	return agg.FinalPDFURL, nil
}

func (s *DistributionService) storeArtifact(contractID string, pdf []byte) (string, error) {
	if err := os.MkdirAll(s.artifactsPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	filename := fmt.Sprintf("contract_%s_%s.pdf", contractID, uuid.New().String())
	path := filepath.Join(s.artifactsPath, filename)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to store final PDF: %w", err)
	}
	return path, nil
}

func (s *DistributionService) downloadLink(contractID string) (string, error) {
	token, err := s.downloads.Issue(contractID)
	if err != nil {
		return "", fmt.Errorf("failed to issue download token: %w", err)
	}
	return fmt.Sprintf("%s/api/contract/download?token=%s", s.baseURL, url.QueryEscape(token)), nil
}
