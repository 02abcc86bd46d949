package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"leasesign/internal/models"
	"leasesign/internal/service"
)

// SignatureHandler exposes the invitation and signing endpoints.
type SignatureHandler struct {
	signatures *service.SignatureService
}

func NewSignatureHandler(signatures *service.SignatureService) *SignatureHandler {
	return &SignatureHandler{signatures: signatures}
}

type directSignRequest struct {
	ContractID  string            `json:"contractId"`
	SignerID    string            `json:"signerId"`
	SignerName  string            `json:"signerName"`
	SignerEmail string            `json:"signerEmail"`
	SignerRole  string            `json:"signerRole"`
	SignerType  models.SignerType `json:"signerType"`
	Signature   string            `json:"signature"`
}

type inviteRequest struct {
	ContractID string          `json:"contractId"`
	Signers    []models.Signer `json:"signers"`
}

type saveSignatureRequest struct {
	Token     string `json:"token"`
	Signature string `json:"signature"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
}

// invitationView is the invitation shape returned to clients. The token is
// only ever exposed to its own signer through the emailed link, so list and
// verify responses omit it.
type invitationView struct {
	ID         int64                   `json:"id"`
	ContractID string                  `json:"contractId"`
	SignerID   string                  `json:"signerId"`
	SignerName string                  `json:"signerName"`
	SignerRole string                  `json:"signerRole"`
	SignerType models.SignerType       `json:"signerType"`
	Status     models.InvitationStatus `json:"status"`
	Channel    models.SignatureChannel `json:"channel"`
	CreatedAt  time.Time               `json:"createdAt"`
	ExpiresAt  time.Time               `json:"expiresAt"`
	SentAt     *time.Time              `json:"sentAt,omitempty"`
	SignedAt   *time.Time              `json:"signedAt,omitempty"`
}

func toInvitationView(inv *models.SignatureInvitation) invitationView {
	return invitationView{
		ID:         inv.ID,
		ContractID: inv.ContractID,
		SignerID:   inv.SignerID,
		SignerName: inv.SignerName,
		SignerRole: inv.SignerRole,
		SignerType: inv.SignerType,
		Status:     inv.EffectiveStatus(),
		Channel:    inv.Channel,
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
		SentAt:     inv.SentAt,
		SignedAt:   inv.SignedAt,
	}
}

// DirectSign handles POST /api/signature/direct: an operator records an
// in-person signature, no token round-trip.
func (h *SignatureHandler) DirectSign(w http.ResponseWriter, r *http.Request) {
	var req directSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "Failed to decode direct sign request", err)
		return
	}

	signer := models.Signer{
		SignerID: req.SignerID,
		Name:     req.SignerName,
		Email:    req.SignerEmail,
		Role:     req.SignerRole,
		Type:     req.SignerType,
	}

	inv, allSigned, err := h.signatures.CreateDirectSignature(r.Context(), req.ContractID, signer, req.Signature)
	if err != nil {
		respondWithServiceError(w, "Failed to create direct signature", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"invitationId": inv.ID,
		"allSigned":    allSigned,
	})
}

// Invite handles POST /api/signature/invite: batch-create invitations for a
// contract's signers and email each a signing link.
func (h *SignatureHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "Failed to decode invite request", err)
		return
	}
	if len(req.Signers) == 0 {
		respondWithError(w, http.StatusBadRequest, "signers: at least one signer is required", "", nil)
		return
	}

	invitations, sentCount, err := h.signatures.SendInvitations(r.Context(), req.ContractID, req.Signers)
	if err != nil {
		respondWithServiceError(w, "Failed to send invitations", err)
		return
	}

	views := make([]invitationView, 0, len(invitations))
	for i := range invitations {
		views = append(views, toInvitationView(&invitations[i]))
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"invitations": views,
		"sentCount":   sentCount,
	})
}

// Verify handles GET /api/signature/verify?token=...: the signing page calls
// it when a signer opens their link.
func (h *SignatureHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required", "", nil)
		return
	}

	inv, contract, err := h.signatures.VerifyToken(r.Context(), token)
	if err != nil {
		respondWithServiceError(w, "Failed to verify invitation token", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"invitation": toInvitationView(inv),
		"contract": map[string]interface{}{
			"id":      contract.ID,
			"answers": contract.Answers,
		},
	})
}

// Save handles POST /api/signature/save: a signer submits their signature.
func (h *SignatureHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "Failed to decode save signature request", err)
		return
	}
	if req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required", "", nil)
		return
	}

	// Audit fields fall back to what the request itself shows.
	if req.IPAddress == "" {
		req.IPAddress = clientIP(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	allSigned, err := h.signatures.RecordSignature(r.Context(), req.Token, req.Signature, req.IPAddress, req.UserAgent)
	if err != nil {
		respondWithServiceError(w, "Failed to save signature", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"allSigned": allSigned})
}

// List handles GET /api/signature/list?contractId=...
func (h *SignatureHandler) List(w http.ResponseWriter, r *http.Request) {
	contractID := r.URL.Query().Get("contractId")
	if contractID == "" {
		respondWithError(w, http.StatusBadRequest, "contractId is required", "", nil)
		return
	}

	invitations, err := h.signatures.ListByContract(contractID)
	if err != nil {
		respondWithServiceError(w, "Failed to list signatures", err)
		return
	}

	views := make([]invitationView, 0, len(invitations))
	for i := range invitations {
		views = append(views, toInvitationView(&invitations[i]))
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"signatures": views,
		"count":      len(views),
	})
}
