package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"leasesign/internal/contract"
	"leasesign/internal/models"
	"leasesign/internal/utils"
)

type fakeRenderer struct {
	lastHTML string
	lastCSS  string
	fail     bool
}

func (r *fakeRenderer) Render(ctx context.Context, html, css string) ([]byte, error) {
	if r.fail {
		return nil, errors.New("render api unavailable")
	}
	r.lastHTML = html
	r.lastCSS = css
	return []byte("%PDF-1.7 fake"), nil
}

type finalMail struct {
	to   string
	link string
	pdf  []byte
}

type fakeContractMailer struct {
	mu      sync.Mutex
	sent    []finalMail
	failFor map[string]bool
}

func newFakeContractMailer() *fakeContractMailer {
	return &fakeContractMailer{failFor: make(map[string]bool)}
}

func (m *fakeContractMailer) SendFinalContract(ctx context.Context, toEmail, toName, downloadLink string, pdf []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[toEmail] {
		return "", errors.New("ses throttled")
	}
	m.sent = append(m.sent, finalMail{to: toEmail, link: downloadLink, pdf: pdf})
	return "msg-" + toEmail, nil
}

type distributionFixture struct {
	invitations *fakeInvitationStore
	aggregates  *fakeAggregateStore
	renderer    *fakeRenderer
	mailer      *fakeContractMailer
	artifacts   string
	svc         *DistributionService
}

func newDistributionFixture(t *testing.T, template string) *distributionFixture {
	t.Helper()

	dir := t.TempDir()
	templatePath := filepath.Join(dir, "contract_template.html")
	if err := os.WriteFile(templatePath, []byte(template), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	stylePath := filepath.Join(dir, "contract.css")
	if err := os.WriteFile(stylePath, []byte("body { direction: rtl; }"), 0o644); err != nil {
		t.Fatalf("failed to write stylesheet: %v", err)
	}

	downloads, err := utils.NewDownloadTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewDownloadTokenIssuer() error = %v", err)
	}

	f := &distributionFixture{
		invitations: newFakeInvitationStore(),
		aggregates:  newFakeAggregateStore(),
		renderer:    &fakeRenderer{},
		mailer:      newFakeContractMailer(),
		artifacts:   filepath.Join(dir, "artifacts"),
	}
	contracts := newFakeContractStore(&models.Contract{
		ID:      "contract-1",
		Answers: map[string]string{"tenant_name": "דנה כהן", "landlord_name": "יוסי לוי"},
	})
	f.svc = NewDistributionService(
		contracts, f.invitations, f.aggregates,
		NewAssembler(templatePath, stylePath),
		f.renderer, f.mailer, downloads,
		f.artifacts, "http://localhost:8080",
	)
	return f
}

func (f *distributionFixture) addSignedInvitation(t *testing.T, signerID, name, email, role string, signerType models.SignerType) {
	t.Helper()
	now := time.Now()
	_, err := f.invitations.Create(&models.SignatureInvitation{
		ContractID:      "contract-1",
		SignerEmail:     email,
		SignerName:      name,
		SignerRole:      role,
		SignerType:      signerType,
		SignerID:        signerID,
		InvitationToken: "tok-" + signerID,
		Status:          models.StatusSigned,
		Channel:         models.ChannelInvited,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Hour),
		SignedAt:        &now,
		SignatureImage:  "data:image/png;base64,SIG-" + signerID,
	})
	if err != nil {
		t.Fatalf("failed to seed invitation: %v", err)
	}
	if err := f.aggregates.Ensure("contract-1", now); err != nil {
		t.Fatalf("failed to ensure aggregate: %v", err)
	}
}

const twoPartyTemplate = `<p>{{landlord_name}} / {{tenant_name}}</p>[[חתימה:משכיר]][[חתימה:שוכר]]`

func TestDistributeEmailsEveryParty(t *testing.T) {
	f := newDistributionFixture(t, twoPartyTemplate)
	f.addSignedInvitation(t, "landlord-1", "יוסי לוי", "yossi@example.com", "משכיר", models.SignerLandlord)
	f.addSignedInvitation(t, "tenant-1", "דנה כהן", "dana@example.com", "שוכר", models.SignerTenant)

	sent, err := f.svc.Distribute(context.Background(), "contract-1", nil)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if sent != 2 {
		t.Errorf("sentCount = %d, want 2", sent)
	}

	// Signatures made it into the rendered markup.
	if !strings.Contains(f.renderer.lastHTML, "SIG-landlord-1") || !strings.Contains(f.renderer.lastHTML, "SIG-tenant-1") {
		t.Error("rendered markup missing embedded signatures")
	}
	if strings.Contains(f.renderer.lastHTML, "[[חתימה:") {
		t.Error("rendered markup still contains signature markers")
	}
	if !strings.Contains(f.renderer.lastHTML, "יוסי לוי") {
		t.Error("rendered markup missing merged answers")
	}
	if f.renderer.lastCSS == "" {
		t.Error("stylesheet not passed to renderer")
	}

	// Every recipient got the PDF and a download link.
	for _, mail := range f.mailer.sent {
		if len(mail.pdf) == 0 {
			t.Errorf("recipient %s got no attachment", mail.to)
		}
		if !strings.Contains(mail.link, "/api/contract/download?token=") {
			t.Errorf("recipient %s got bad download link %q", mail.to, mail.link)
		}
	}

	// Aggregate records distribution and the stored artifact exists.
	agg, err := f.aggregates.Get("contract-1")
	if err != nil {
		t.Fatalf("aggregate Get() error = %v", err)
	}
	if !agg.SentToAllParties {
		t.Error("sentToAllParties not set after full distribution")
	}
	if _, err := os.Stat(agg.FinalPDFURL); err != nil {
		t.Errorf("final PDF artifact missing: %v", err)
	}

	path, err := f.svc.FinalPDFPath("contract-1")
	if err != nil || path != agg.FinalPDFURL {
		t.Errorf("FinalPDFPath() = %q, %v", path, err)
	}
}

func TestDistributePartialFailureReportsSuccessCount(t *testing.T) {
	f := newDistributionFixture(t, `[[חתימה:משכיר]][[חתימה:שוכר]][[חתימה:ערב]]`)
	f.addSignedInvitation(t, "landlord-1", "יוסי", "yossi@example.com", "משכיר", models.SignerLandlord)
	f.addSignedInvitation(t, "tenant-1", "דנה", "dana@example.com", "שוכר", models.SignerTenant)
	f.addSignedInvitation(t, "guarantor-1", "משה", "moshe@example.com", "ערב", models.SignerGuarantor)
	f.mailer.failFor["dana@example.com"] = true

	sent, err := f.svc.Distribute(context.Background(), "contract-1", nil)
	if err != nil {
		t.Fatalf("Distribute() error = %v, want success with partial count", err)
	}
	if sent != 2 {
		t.Errorf("sentCount = %d, want 2", sent)
	}

	// Partial distribution leaves sentToAllParties false so an operator can
	// re-trigger.
	agg, _ := f.aggregates.Get("contract-1")
	if agg.SentToAllParties {
		t.Error("sentToAllParties set despite a failed recipient")
	}
}

func TestDistributeSkipsInPersonPlaceholder(t *testing.T) {
	f := newDistributionFixture(t, twoPartyTemplate)
	f.addSignedInvitation(t, "landlord-1", "יוסי", models.InPersonEmail, "משכיר", models.SignerLandlord)
	f.addSignedInvitation(t, "tenant-1", "דנה", "dana@example.com", "שוכר", models.SignerTenant)

	sent, err := f.svc.Distribute(context.Background(), "contract-1", nil)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("sentCount = %d, want 1 (placeholder skipped)", sent)
	}
	for _, mail := range f.mailer.sent {
		if mail.to == models.InPersonEmail {
			t.Error("final contract emailed to the in-person placeholder")
		}
	}
}

func TestDistributeUnknownContract(t *testing.T) {
	f := newDistributionFixture(t, twoPartyTemplate)

	_, err := f.svc.Distribute(context.Background(), "contract-missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Distribute() error = %v, want ErrNotFound", err)
	}
}

func TestDistributeIncompleteSignatureSetFailsHard(t *testing.T) {
	f := newDistributionFixture(t, `[[חתימה:משכיר]][[חתימה:שוכר]]`)
	f.addSignedInvitation(t, "landlord-1", "יוסי", "yossi@example.com", "משכיר", models.SignerLandlord)

	_, err := f.svc.Distribute(context.Background(), "contract-1", nil)
	if !errors.Is(err, contract.ErrIncompleteSignatureSet) {
		t.Errorf("Distribute() error = %v, want ErrIncompleteSignatureSet", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Error("emails went out despite failed assembly")
	}
}

func TestDistributeRenderFailure(t *testing.T) {
	f := newDistributionFixture(t, twoPartyTemplate)
	f.addSignedInvitation(t, "landlord-1", "יוסי", "yossi@example.com", "משכיר", models.SignerLandlord)
	f.addSignedInvitation(t, "tenant-1", "דנה", "dana@example.com", "שוכר", models.SignerTenant)
	f.renderer.fail = true

	_, err := f.svc.Distribute(context.Background(), "contract-1", nil)
	if err == nil {
		t.Fatal("Distribute() error = nil, want render failure")
	}
	if len(f.mailer.sent) != 0 {
		t.Error("emails went out despite failed render")
	}
}
