package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reporthere/reporthere/internal/auth"
	"github.com/reporthere/reporthere/internal/billing"
	"github.com/reporthere/reporthere/internal/claims"
	"github.com/reporthere/reporthere/internal/inbox"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	"github.com/reporthere/reporthere/internal/uploads"
)

type submitClaimRequest struct {
	CompanyID             uuid.UUID `json:"company_id"`
	CompanyWebsite        string    `json:"company_website,omitempty"`
	EvidenceURLs          []string  `json:"evidence_urls,omitempty"`
	AuthorizedDeclaration bool      `json:"authorized_declaration"`
}

type claimResponse struct {
	ClaimID   uuid.UUID `json:"claim_id"`
	CompanyID uuid.UUID `json:"company_id"`
	Status    string    `json:"status"`
	Method    string    `json:"verification_method"`
	Approved  bool      `json:"approved"`
}

func (s *Server) submitClaim(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	var req submitClaimRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.claims.SubmitClaim(r.Context(), claims.SubmitClaimInput{
		CompanyID:             req.CompanyID,
		RequesterID:           ident.UserID,
		RequesterEmail:        ident.Email,
		CompanyWebsite:        req.CompanyWebsite,
		EvidenceURLs:          req.EvidenceURLs,
		AuthorizedDeclaration: req.AuthorizedDeclaration,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.Approved {
		s.emitClaimApproved(r, result.Claim)
	}

	writeJSON(w, http.StatusCreated, claimResponse{
		ClaimID:   result.Claim.ClaimID,
		CompanyID: result.Claim.CompanyID,
		Status:    string(result.Claim.Status),
		Method:    string(result.Claim.Method),
		Approved:  result.Approved,
	})
}

// emitClaimApproved records the company_claimed event and runs
// notification triggers. The claim mutation itself has already
// committed; both steps here are best-effort side channels.
func (s *Server) emitClaimApproved(r *http.Request, claim *models.CompanyClaim) {
	ctx := r.Context()

	companyName := ""
	if company, err := s.companies.Get(ctx, claim.CompanyID); err == nil {
		companyName = company.Name
	}

	data := map[string]any{
		"claim_id":        claim.ClaimID,
		"company_id":      claim.CompanyID,
		"company_name":    companyName,
		"requester_email": claim.RequesterEmail,
	}

	if _, err := s.events.Log(ctx, models.EventCompanyClaimed, data, &claim.RequesterID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("claim_id", claim.ClaimID.String()).
			Msg("Failed to log company_claimed event")
	}
	if s.triggers != nil {
		s.triggers.ProcessTriggers(ctx, models.EventCompanyClaimed, data)
	}
}

func (s *Server) startEmailVerification(w http.ResponseWriter, r *http.Request) {
	claimID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	claim, err := s.claims.StartEmailVerification(r.Context(), claimID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id":   claim.ClaimID,
		"status":     string(claim.Status),
		"expires_at": claim.CodeExpiresAt,
	})
}

func (s *Server) confirmEmailCode(w http.ResponseWriter, r *http.Request) {
	claimID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}

	claim, err := s.claims.ConfirmEmailCode(r.Context(), claimID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if claim.Status == models.ClaimStatusApproved {
		s.emitClaimApproved(r, claim)
	}

	writeJSON(w, http.StatusOK, claimResponse{
		ClaimID:   claim.ClaimID,
		CompanyID: claim.CompanyID,
		Status:    string(claim.Status),
		Method:    string(claim.Method),
		Approved:  claim.Status == models.ClaimStatusApproved,
	})
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	company, err := s.companies.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"company_id":       company.CompanyID,
		"name":             company.Name,
		"slug":             company.Slug,
		"verified_status":  string(company.Verified),
		"industry":         company.Industry,
		"total_complaints": company.TotalComplaints,
	})
}

func (s *Server) listCompanyComplaints(w http.ResponseWriter, r *http.Request) {
	company, err := s.companies.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := s.inbox.ListByCompany(r.Context(), company.CompanyID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"complaints": list})
}

type fileComplaintRequest struct {
	CompanyName string `json:"company_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

func (s *Server) fileComplaint(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	var req fileComplaintRequest
	if !decode(w, r, &req) {
		return
	}

	complaint, err := s.inbox.FileComplaint(r.Context(), inbox.FileComplaintRequest{
		CompanyName:   req.CompanyName,
		ConsumerID:    ident.UserID,
		ConsumerEmail: ident.Email,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, complaint)
}

func (s *Server) getComplaint(w http.ResponseWriter, r *http.Request) {
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	complaint, err := s.inbox.Get(r.Context(), complaintID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}

func (s *Server) assignComplaint(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		AssigneeID uuid.UUID `json:"assignee_id"`
	}
	if !decode(w, r, &req) {
		return
	}

	complaint, err := s.inbox.Assign(r.Context(), ident.UserID, complaintID, req.AssigneeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}

func (s *Server) respondComplaint(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Reply string `json:"reply"`
	}
	if !decode(w, r, &req) {
		return
	}

	complaint, err := s.inbox.Respond(r.Context(), ident.UserID, complaintID, req.Reply)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}

func (s *Server) resolveComplaint(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	complaint, err := s.inbox.Resolve(r.Context(), ident.UserID, complaintID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}

func (s *Server) annotateComplaint(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if !decode(w, r, &req) {
		return
	}

	complaint, err := s.inbox.Annotate(r.Context(), ident.UserID, complaintID, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, complaint)
}

func (s *Server) flagEvidence(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := s.inbox.FlagEvidence(r.Context(), ident.UserID, complaintID, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "flagged"})
}

func (s *Server) shareComplaint(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Channel string `json:"channel"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := s.inbox.Share(r.Context(), ident.UserID, complaintID, req.Channel); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "shared"})
}

func (s *Server) recentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	var eventType *models.EventType
	if v := r.URL.Query().Get("type"); v != "" {
		t := models.EventType(v)
		eventType = &t
	}

	list, err := s.events.Recent(r.Context(), limit, eventType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func (s *Server) eventStats(w http.ResponseWriter, r *http.Request) {
	windowDays := 7
	if v := r.URL.Query().Get("window_days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			windowDays = n
		}
	}

	stats, err := s.events.Stats(r.Context(), windowDays)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window_days": windowDays,
		"counts":      stats,
	})
}

func (s *Server) uploadEvidence(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "uploads are not configured"})
		return
	}

	if err := r.ParseMultipartForm(uploads.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "file field is required"})
		return
	}
	defer file.Close()

	key, err := s.uploads.Put(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": "/uploads/" + key})
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "uploads are not configured"})
		return
	}

	key := chi.URLParam(r, "key")

	f, err := s.uploads.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

type errorBody struct {
	Error string `json:"error"`

	// Upgrade carries a call-to-action when a seat limit blocked the
	// request.
	Upgrade string `json:"upgrade,omitempty"`
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	body := errorBody{Error: err.Error()}

	var permErr *auth.PermissionError

	switch {
	case errors.Is(err, claims.ErrValidation),
		errors.Is(err, inbox.ErrValidation),
		errors.Is(err, claims.ErrCodeMismatch),
		errors.Is(err, claims.ErrCodeExpired):
		status = http.StatusBadRequest
	case errors.Is(err, claims.ErrClaimFinished):
		status = http.StatusConflict
	case errors.As(err, &permErr), errors.Is(err, auth.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, billing.ErrSeatLimitExceeded):
		status = http.StatusPaymentRequired
		body.Upgrade = "This plan is out of seats. Upgrade your subscription to add more members."
	case errors.Is(err, store.ErrCompanyNotFound),
		errors.Is(err, store.ErrClaimNotFound),
		errors.Is(err, store.ErrMemberNotFound),
		errors.Is(err, store.ErrComplaintNotFound),
		errors.Is(err, uploads.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		body.Error = "internal server error"
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// identity resolves the caller from the request context. When the
// server runs without authentication a fixed development identity is
// used so handlers still have an actor.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	if ident, ok := auth.IdentityFromContext(r.Context()); ok {
		return ident, true
	}
	return auth.Identity{
		UserID: uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Email:  "dev@localhost",
	}, true
}
