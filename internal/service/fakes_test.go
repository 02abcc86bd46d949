package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"leasesign/internal/models"
)

// In-memory fakes for the collaborator interfaces. They mirror the store
// semantics the repositories implement, including the status guard on
// RecordSignature and the compare-and-swap on MarkAllSigned.

type fakeInvitationStore struct {
	mu          sync.Mutex
	nextID      int64
	invitations map[int64]*models.SignatureInvitation
}

func newFakeInvitationStore() *fakeInvitationStore {
	return &fakeInvitationStore{invitations: make(map[int64]*models.SignatureInvitation)}
}

func (s *fakeInvitationStore) Create(inv *models.SignatureInvitation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := *inv
	stored.ID = s.nextID
	s.invitations[stored.ID] = &stored
	return stored.ID, nil
}

func (s *fakeInvitationStore) GetByToken(token string) (*models.SignatureInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *models.SignatureInvitation
	for _, inv := range s.invitations {
		if inv.InvitationToken == token {
			if match != nil {
				return nil, errors.New("duplicate invitation token")
			}
			copied := *inv
			match = &copied
		}
	}
	if match == nil {
		return nil, sql.ErrNoRows
	}
	return match, nil
}

func (s *fakeInvitationStore) ListByContract(contractID string) ([]models.SignatureInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.SignatureInvitation
	for id := int64(1); id <= s.nextID; id++ {
		if inv, ok := s.invitations[id]; ok && inv.ContractID == contractID {
			result = append(result, *inv)
		}
	}
	return result, nil
}

func (s *fakeInvitationStore) MarkSent(id int64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return sql.ErrNoRows
	}
	if inv.Status == models.StatusNotSent {
		inv.Status = models.StatusSent
		inv.SentAt = &sentAt
	}
	return nil
}

func (s *fakeInvitationStore) RecordSignature(id int64, image string, signedAt time.Time, ipAddress, userAgent string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	if inv.Status == models.StatusSigned {
		return false, nil
	}
	inv.Status = models.StatusSigned
	inv.SignatureImage = image
	inv.SignedAt = &signedAt
	inv.IPAddress = ipAddress
	inv.UserAgent = userAgent
	return true, nil
}

func (s *fakeInvitationStore) get(id int64) models.SignatureInvitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.invitations[id]
}

type fakeContractStore struct {
	contracts map[string]*models.Contract
}

func newFakeContractStore(contracts ...*models.Contract) *fakeContractStore {
	s := &fakeContractStore{contracts: make(map[string]*models.Contract)}
	for _, c := range contracts {
		s.contracts[c.ID] = c
	}
	return s
}

func (s *fakeContractStore) Get(contractID string) (*models.Contract, error) {
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type fakeAggregateStore struct {
	mu   sync.Mutex
	rows map[string]*models.ContractSignatures
}

func newFakeAggregateStore() *fakeAggregateStore {
	return &fakeAggregateStore{rows: make(map[string]*models.ContractSignatures)}
}

func (s *fakeAggregateStore) Ensure(contractID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[contractID]; !ok {
		s.rows[contractID] = &models.ContractSignatures{ContractID: contractID, UpdatedAt: now}
	}
	return nil
}

func (s *fakeAggregateStore) Get(contractID string) (*models.ContractSignatures, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[contractID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (s *fakeAggregateStore) MarkAllSigned(contractID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[contractID]
	if !ok || row.AllSigned {
		return false, nil
	}
	row.AllSigned = true
	row.UpdatedAt = now
	return true, nil
}

func (s *fakeAggregateStore) MarkDistributed(contractID, pdfURL string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[contractID]
	if !ok {
		return sql.ErrNoRows
	}
	row.SentToAllParties = true
	row.FinalPDFURL = pdfURL
	row.UpdatedAt = now
	return nil
}

type sentInvitation struct {
	to   string
	link string
}

type fakeInvitationMailer struct {
	mu      sync.Mutex
	sent    []sentInvitation
	failFor map[string]bool
}

func newFakeInvitationMailer() *fakeInvitationMailer {
	return &fakeInvitationMailer{failFor: make(map[string]bool)}
}

func (m *fakeInvitationMailer) SendSigningInvitation(ctx context.Context, toEmail, toName, role, link string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[toEmail] {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, sentInvitation{to: toEmail, link: link})
	return nil
}

type fakeDistributor struct {
	mu    sync.Mutex
	calls int
	last  []models.Signer
}

func (d *fakeDistributor) Distribute(ctx context.Context, contractID string, signers []models.Signer) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.last = signers
	return len(signers), nil
}

func (d *fakeDistributor) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
