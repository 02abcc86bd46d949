package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"leasesign/internal/models"
)

// signatureExportHeader lists the audit columns of the xlsx export.
var signatureExportHeader = []string{
	"Signer ID",
	"Name",
	"Email",
	"Role",
	"Type",
	"Channel",
	"Status",
	"Created",
	"Expires",
	"Sent",
	"Signed",
	"IP Address",
	"User Agent",
}

// Export handles GET /api/signature/export?contractId=...: the operator's
// audit report of every invitation on a contract.
func (h *SignatureHandler) Export(w http.ResponseWriter, r *http.Request) {
	contractID := r.URL.Query().Get("contractId")
	if contractID == "" {
		respondWithError(w, http.StatusBadRequest, "contractId is required", "", nil)
		return
	}

	invitations, err := h.signatures.ListByContract(contractID)
	if err != nil {
		respondWithServiceError(w, "Failed to list signatures for export", err)
		return
	}

	workbook, err := buildSignatureAuditWorkbook(contractID, invitations)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error", "Failed to build signature export", err)
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("signatures_%s_%s.xlsx", contractID, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	if err := workbook.Write(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error", "Failed to write signature export", err)
	}
}

func buildSignatureAuditWorkbook(contractID string, invitations []models.SignatureInvitation) (*excelize.File, error) {
	f := excelize.NewFile()

	sheetName := "Signatures"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range signatureExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for row, inv := range invitations {
		values := []interface{}{
			inv.SignerID,
			inv.SignerName,
			inv.SignerEmail,
			inv.SignerRole,
			string(inv.SignerType),
			string(inv.Channel),
			string(inv.EffectiveStatus()),
			inv.CreatedAt.Format(time.RFC3339),
			inv.ExpiresAt.Format(time.RFC3339),
			formatOptionalTime(inv.SentAt),
			formatOptionalTime(inv.SignedAt),
			inv.IPAddress,
			inv.UserAgent,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// Reasonable widths for the audit columns
	if err := f.SetColWidth(sheetName, "A", "G", 18); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "H", "K", 22); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "L", "M", 30); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
