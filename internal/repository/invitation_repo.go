package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leasesign/internal/database"
	"leasesign/internal/models"
)

// ErrDuplicateToken is returned when more than one invitation carries the same
// token. Tokens are unique by construction and by schema constraint, so this
// signals a corrupted store rather than a caller mistake.
var ErrDuplicateToken = errors.New("duplicate invitation token")

type InvitationRepository struct {
	db database.DBTX
}

func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `id, contract_id, signer_email, signer_name, signer_role, signer_type,
	signer_id, invitation_token, status, channel, created_at, expires_at,
	sent_at, signed_at, signature_image, ip_address, user_agent`

// Create persists a new invitation and returns its store-assigned ID.
func (r *InvitationRepository) Create(inv *models.SignatureInvitation) (int64, error) {
	query := `INSERT INTO signature_invitations
		(contract_id, signer_email, signer_name, signer_role, signer_type, signer_id,
		 invitation_token, status, channel, created_at, expires_at, sent_at, signed_at,
		 signature_image, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := r.db.ExecReturningID(query,
		inv.ContractID, inv.SignerEmail, inv.SignerName, inv.SignerRole,
		string(inv.SignerType), inv.SignerID, inv.InvitationToken,
		string(inv.Status), string(inv.Channel), inv.CreatedAt, inv.ExpiresAt,
		nullTime(inv.SentAt), nullTime(inv.SignedAt),
		nullString(inv.SignatureImage), nullString(inv.IPAddress), nullString(inv.UserAgent),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert invitation: %w", err)
	}
	return id, nil
}

// GetByToken retrieves the unique invitation holding the given token.
// Returns sql.ErrNoRows when no invitation matches and ErrDuplicateToken when
// more than one does.
func (r *InvitationRepository) GetByToken(token string) (*models.SignatureInvitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM signature_invitations WHERE invitation_token = ?`

	rows, err := r.db.Query(query, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var match *models.SignatureInvitation
	for rows.Next() {
		if match != nil {
			return nil, ErrDuplicateToken
		}
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		match = inv
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if match == nil {
		return nil, sql.ErrNoRows
	}
	return match, nil
}

// ListByContract returns every invitation for a contract, oldest first.
func (r *InvitationRepository) ListByContract(contractID string) ([]models.SignatureInvitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM signature_invitations WHERE contract_id = ? ORDER BY created_at, id`

	rows, err := r.db.Query(query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.SignatureInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// MarkSent records that the invitation email went out.
func (r *InvitationRepository) MarkSent(id int64, sentAt time.Time) error {
	query := `UPDATE signature_invitations SET status = ?, sent_at = ? WHERE id = ? AND status = ?`
	_, err := r.db.Exec(query, string(models.StatusSent), sentAt, id, string(models.StatusNotSent))
	return err
}

// RecordSignature stores the captured signature and flips the invitation to
// signed. The status guard in the WHERE clause makes a second signing attempt
// a no-op at the store level; callers get false and must not treat the
// attempt as a success.
func (r *InvitationRepository) RecordSignature(id int64, image string, signedAt time.Time, ipAddress, userAgent string) (bool, error) {
	query := `UPDATE signature_invitations
		SET status = ?, signature_image = ?, signed_at = ?, ip_address = ?, user_agent = ?
		WHERE id = ? AND status != ?`

	result, err := r.db.Exec(query,
		string(models.StatusSigned), image, signedAt,
		nullString(ipAddress), nullString(userAgent),
		id, string(models.StatusSigned),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvitation(s scanner) (*models.SignatureInvitation, error) {
	var inv models.SignatureInvitation
	var signerType, status, channel string
	var sentAt, signedAt sql.NullTime
	var image, ip, agent sql.NullString

	err := s.Scan(
		&inv.ID, &inv.ContractID, &inv.SignerEmail, &inv.SignerName, &inv.SignerRole,
		&signerType, &inv.SignerID, &inv.InvitationToken, &status, &channel,
		&inv.CreatedAt, &inv.ExpiresAt, &sentAt, &signedAt, &image, &ip, &agent,
	)
	if err != nil {
		return nil, err
	}

	inv.SignerType = models.SignerType(signerType)
	inv.Status = models.InvitationStatus(status)
	inv.Channel = models.SignatureChannel(channel)
	if sentAt.Valid {
		t := sentAt.Time
		inv.SentAt = &t
	}
	if signedAt.Valid {
		t := signedAt.Time
		inv.SignedAt = &t
	}
	inv.SignatureImage = image.String
	inv.IPAddress = ip.String
	inv.UserAgent = agent.String

	return &inv, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
