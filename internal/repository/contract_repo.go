package repository

import (
	"encoding/json"
	"fmt"

	"leasesign/internal/database"
	"leasesign/internal/models"
)

// ContractRepository reads the questionnaire output. The questionnaire flow
// owns these rows; this service never writes them.
type ContractRepository struct {
	db database.DBTX
}

func NewContractRepository(db database.DBTX) *ContractRepository {
	return &ContractRepository{db: db}
}

// Get retrieves a contract and its answers by ID.
func (r *ContractRepository) Get(contractID string) (*models.Contract, error) {
	query := `SELECT id, answers_json, created_at FROM contracts WHERE id = ?`

	var contract models.Contract
	var answersJSON string
	err := r.db.QueryRow(query, contractID).Scan(&contract.ID, &answersJSON, &contract.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(answersJSON), &contract.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode contract answers: %w", err)
	}
	return &contract, nil
}
