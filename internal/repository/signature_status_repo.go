package repository

import (
	"database/sql"
	"time"

	"leasesign/internal/database"
	"leasesign/internal/models"
)

// SignatureStatusRepository manages the per-contract aggregate signature
// status row.
type SignatureStatusRepository struct {
	db database.DBTX
}

func NewSignatureStatusRepository(db database.DBTX) *SignatureStatusRepository {
	return &SignatureStatusRepository{db: db}
}

// Ensure creates the aggregate row for a contract if it does not exist yet.
// Safe to call concurrently: a lost insert race falls back to the row the
// winner created.
func (r *SignatureStatusRepository) Ensure(contractID string, now time.Time) error {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM contract_signatures WHERE contract_id = ?`, contractID).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = r.db.Exec(`INSERT INTO contract_signatures
		(contract_id, all_signed, sent_to_all_parties, updated_at) VALUES (?, ?, ?, ?)`,
		contractID, false, false, now)
	if err != nil {
		// Another request may have inserted the row in between.
		var recheck int
		if checkErr := r.db.QueryRow(`SELECT COUNT(*) FROM contract_signatures WHERE contract_id = ?`, contractID).Scan(&recheck); checkErr == nil && recheck > 0 {
			return nil
		}
		return err
	}
	return nil
}

// Get retrieves the aggregate status for a contract.
func (r *SignatureStatusRepository) Get(contractID string) (*models.ContractSignatures, error) {
	query := `SELECT contract_id, all_signed, sent_to_all_parties, final_pdf_url, updated_at
		FROM contract_signatures WHERE contract_id = ?`

	var agg models.ContractSignatures
	var pdfURL sql.NullString
	err := r.db.QueryRow(query, contractID).Scan(
		&agg.ContractID, &agg.AllSigned, &agg.SentToAllParties, &pdfURL, &agg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	agg.FinalPDFURL = pdfURL.String
	return &agg, nil
}

// MarkAllSigned flips all_signed from false to true. The WHERE guard makes the
// flip a compare-and-swap: when two last-signer requests race, exactly one
// sees a single affected row and wins the right to trigger distribution.
func (r *SignatureStatusRepository) MarkAllSigned(contractID string, now time.Time) (bool, error) {
	result, err := r.db.Exec(`UPDATE contract_signatures
		SET all_signed = ?, updated_at = ?
		WHERE contract_id = ? AND all_signed = ?`,
		true, now, contractID, false)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkDistributed records that the final PDF went out, and where it is stored.
// Merge semantics: all_signed is left untouched.
func (r *SignatureStatusRepository) MarkDistributed(contractID, pdfURL string, now time.Time) error {
	_, err := r.db.Exec(`UPDATE contract_signatures
		SET sent_to_all_parties = ?, final_pdf_url = ?, updated_at = ?
		WHERE contract_id = ?`,
		true, pdfURL, now, contractID)
	return err
}
