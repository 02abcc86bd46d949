package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"leasesign/internal/models"
	"leasesign/internal/service"
	"leasesign/internal/utils"
)

// ContractHandler exposes final-contract distribution and download.
type ContractHandler struct {
	distribution *service.DistributionService
	downloads    *utils.DownloadTokenIssuer
}

func NewContractHandler(distribution *service.DistributionService, downloads *utils.DownloadTokenIssuer) *ContractHandler {
	return &ContractHandler{distribution: distribution, downloads: downloads}
}

type distributeRequest struct {
	ContractID string          `json:"contractId"`
	Signers    []models.Signer `json:"signers"`
}

// Distribute handles POST /api/contract/distribute: render the fully signed
// contract and email it to every party. Also the operator's re-trigger when
// the automatic completion-time distribution partially failed.
func (h *ContractHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "Failed to decode distribute request", err)
		return
	}
	if req.ContractID == "" {
		respondWithError(w, http.StatusBadRequest, "contractId is required", "", nil)
		return
	}

	sentCount, err := h.distribution.Distribute(r.Context(), req.ContractID, req.Signers)
	if err != nil {
		respondWithServiceError(w, "Failed to distribute contract", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"sentCount": sentCount})
}

// Download handles GET /api/contract/download?token=...: serves the stored
// final PDF for a valid signed download link.
func (h *ContractHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required", "", nil)
		return
	}

	contractID, err := h.downloads.Verify(token)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidDownloadToken) {
			respondWithError(w, http.StatusNotFound, "not found", "Rejected download token", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal server error", "Failed to verify download token", err)
		return
	}

	pdfPath, err := h.distribution.FinalPDFPath(contractID)
	if err != nil {
		respondWithServiceError(w, "Failed to locate final PDF", err)
		return
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error", "Failed to read final PDF", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(pdfPath)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
