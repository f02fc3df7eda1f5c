package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
	"github.com/lifescore-app/backend/internal/service"
)

// ProfileStore persists and resolves user profiles referenced by the
// leaderboard.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile domain.UserProfile) error
	ProfileByID(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger       *slog.Logger
	scores       *service.ScoreService
	certificates *service.CertificateService
	endorsements *service.EndorsementService
	profiles     ProfileStore
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, scores *service.ScoreService, certificates *service.CertificateService, endorsements *service.EndorsementService, profiles ProfileStore) *APIHandlers {
	return &APIHandlers{
		logger:       logger,
		scores:       scores,
		certificates: certificates,
		endorsements: endorsements,
		profiles:     profiles,
	}
}

// --- LifeScore ---

func (h *APIHandlers) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload calculateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	start := time.Now()
	rec, err := h.scores.Calculate(r.Context(), payload.UserID)
	calculationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		calculationTotal.WithLabelValues("error").Inc()
		h.respondError(w, err, "failed to calculate lifescore", "userId", payload.UserID)
		return
	}
	calculationTotal.WithLabelValues("ok").Inc()

	respondJSON(w, http.StatusCreated, toScoreResponse(rec))
}

func (h *APIHandlers) handleLifeScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/lifescore/"), "/")
	userID, sub, _ := strings.Cut(rest, "/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	switch sub {
	case "":
		h.latestScore(w, r, userID)
	case "history":
		h.scoreHistory(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandlers) latestScore(w http.ResponseWriter, r *http.Request, userID string) {
	rec, err := h.scores.Latest(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to fetch lifescore", "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, toScoreResponse(*rec))
}

func (h *APIHandlers) scoreHistory(w http.ResponseWriter, r *http.Request, userID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 10)

	history, err := h.scores.GetHistory(r.Context(), userID, limit)
	if err != nil {
		h.respondError(w, err, "failed to fetch score history", "userId", userID)
		return
	}

	resp := historyResponse{
		UserID: userID,
		Scores: make([]scoreResponse, 0, len(history.Records)),
		Growth: history.Growth,
	}
	for _, rec := range history.Records {
		resp.Scores = append(resp.Scores, toScoreResponse(rec))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 100)
	entries, err := h.scores.Leaderboard(r.Context(), limit)
	if err != nil {
		h.respondError(w, err, "failed to fetch leaderboard")
		return
	}

	resp := leaderboardResponse{Entries: make([]leaderboardEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, leaderboardEntryResponse{
			UserID:           e.UserID,
			DisplayName:      e.DisplayName,
			Email:            e.Email,
			CompositeScore:   e.CompositeScore,
			CognitiveScore:   e.CognitiveScore,
			PortfolioScore:   e.PortfolioScore,
			EndorsementScore: e.EndorsementScore,
			Rank:             e.Rank,
			Percentile:       e.Percentile,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// --- Certificates ---

func (h *APIHandlers) handleCertificates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.issueCertificate(w, r)
	case http.MethodGet:
		h.listCertificates(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) issueCertificate(w http.ResponseWriter, r *http.Request) {
	var payload issueCertificateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	cert, err := h.certificates.Issue(r.Context(), payload.UserID)
	if err != nil {
		h.respondError(w, err, "failed to issue certificate", "userId", payload.UserID)
		return
	}
	certificateIssuedTotal.Inc()

	respondJSON(w, http.StatusCreated, h.toCertificateResponse(*cert))
}

func (h *APIHandlers) listCertificates(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	certs, err := h.certificates.ListForUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to list certificates", "userId", userID)
		return
	}

	resp := certificateListResponse{Certificates: make([]certificateResponse, 0, len(certs))}
	for _, cert := range certs {
		resp.Certificates = append(resp.Certificates, h.toCertificateResponse(cert))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleCertificate(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/certificates/"), "/")

	if hash, ok := strings.CutPrefix(rest, "verify/"); ok {
		h.verifyCertificate(w, r, strings.Trim(hash, "/"))
		return
	}

	certID, action, _ := strings.Cut(rest, "/")
	if certID == "" {
		writeError(w, http.StatusBadRequest, "certificate ID is required")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		cert, err := h.certificates.Get(r.Context(), certID)
		if err != nil {
			h.respondError(w, err, "failed to fetch certificate", "certificateId", certID)
			return
		}
		respondJSON(w, http.StatusOK, h.toCertificateResponse(*cert))
	case "revoke":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		if err := h.certificates.Revoke(r.Context(), certID); err != nil {
			h.respondError(w, err, "failed to revoke certificate", "certificateId", certID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "blockchain":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var payload blockchainTxRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if payload.TxHash == "" {
			writeError(w, http.StatusBadRequest, "txHash is required")
			return
		}
		if err := h.certificates.AttachBlockchainTx(r.Context(), certID, payload.TxHash); err != nil {
			h.respondError(w, err, "failed to attach blockchain tx", "certificateId", certID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandlers) verifyCertificate(w http.ResponseWriter, r *http.Request, hash string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if hash == "" {
		writeError(w, http.StatusBadRequest, "certificate hash is required")
		return
	}

	result, err := h.certificates.Verify(r.Context(), hash)
	if err != nil {
		h.respondError(w, err, "failed to verify certificate")
		return
	}
	verificationTotal.WithLabelValues(verificationOutcome(result)).Inc()

	resp := verificationResponse{
		Valid:   result.Valid,
		Message: result.Message,
	}
	if result.Certificate != nil {
		cert := h.toCertificateResponse(*result.Certificate)
		resp.Certificate = &cert
	}
	respondJSON(w, http.StatusOK, resp)
}

func verificationOutcome(result domain.VerificationResult) string {
	if result.Valid {
		return "valid"
	}
	if result.Certificate == nil {
		return "not_found"
	}
	return string(result.Certificate.Status)
}

// --- Endorsements ---

func (h *APIHandlers) handleEndorsements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createEndorsement(w, r)
	case http.MethodGet:
		h.listEndorsements(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) createEndorsement(w http.ResponseWriter, r *http.Request) {
	var payload createEndorsementRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	endorsement, err := h.endorsements.Create(r.Context(), actorFromRequest(r), payload.UserID, payload.Skill, payload.Message)
	if err != nil {
		h.respondError(w, err, "failed to create endorsement", "subjectUserId", payload.UserID)
		return
	}
	respondJSON(w, http.StatusCreated, toEndorsementResponse(*endorsement))
}

func (h *APIHandlers) listEndorsements(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	status := domain.EndorsementStatus(query.Get("status"))
	limit := parseInt(query.Get("limit"), 10)

	endorsements, err := h.endorsements.List(r.Context(), userID, status, limit)
	if err != nil {
		h.respondError(w, err, "failed to list endorsements", "subjectUserId", userID)
		return
	}

	resp := endorsementListResponse{Endorsements: make([]endorsementResponse, 0, len(endorsements))}
	for _, e := range endorsements {
		resp.Endorsements = append(resp.Endorsements, toEndorsementResponse(e))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleEndorsement(w http.ResponseWriter, r *http.Request) {
	endorsementID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/endorsements/"), "/")
	if endorsementID == "" || strings.Contains(endorsementID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	actor := actorFromRequest(r)
	switch r.Method {
	case http.MethodGet:
		endorsement, err := h.endorsements.Get(r.Context(), actor, endorsementID)
		if err != nil {
			h.respondError(w, err, "failed to fetch endorsement", "endorsementId", endorsementID)
			return
		}
		respondJSON(w, http.StatusOK, toEndorsementResponse(*endorsement))
	case http.MethodPatch:
		var payload updateEndorsementRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		endorsement, err := h.endorsements.UpdateStatus(r.Context(), actor, endorsementID, domain.EndorsementStatus(payload.Status), payload.Weight)
		if err != nil {
			h.respondError(w, err, "failed to update endorsement", "endorsementId", endorsementID)
			return
		}
		respondJSON(w, http.StatusOK, toEndorsementResponse(*endorsement))
	case http.MethodDelete:
		if err := h.endorsements.Delete(r.Context(), actor, endorsementID); err != nil {
			h.respondError(w, err, "failed to delete endorsement", "endorsementId", endorsementID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// --- Users ---

func (h *APIHandlers) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}

	var payload userRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	now := time.Now().UTC()
	profile := domain.UserProfile{
		ID:          payload.UserID,
		DisplayName: payload.DisplayName,
		Email:       payload.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.profiles.UpsertProfile(r.Context(), profile); err != nil {
		h.respondError(w, err, "failed to persist user", "userId", payload.UserID)
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: payload.UserID})
}

func (h *APIHandlers) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	profile, err := h.profiles.ProfileByID(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "failed to fetch user", "userId", userID)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, userResponse{
		UserID:      profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		CreatedAt:   formatTime(profile.CreatedAt),
		UpdatedAt:   formatTime(profile.UpdatedAt),
	})
}

// respondError maps service errors onto HTTP statuses. Unexpected failures
// log at error level and surface a generic message.
func (h *APIHandlers) respondError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// actorFromRequest resolves the caller from gateway-set headers. Requests
// without the headers act as an anonymous user; the services reject the
// operations that require identity.
func actorFromRequest(r *http.Request) service.Actor {
	role := service.Role(r.Header.Get("X-User-Role"))
	if role == "" {
		role = service.RoleUser
	}
	return service.Actor{
		UserID: r.Header.Get("X-User-Id"),
		Role:   role,
	}
}

// --- Request & Response DTOs ---

type calculateRequest struct {
	UserID string `json:"userId"`
}

type issueCertificateRequest struct {
	UserID string `json:"userId"`
}

type blockchainTxRequest struct {
	TxHash string `json:"txHash"`
}

type createEndorsementRequest struct {
	UserID  string `json:"userId"`
	Skill   string `json:"skill"`
	Message string `json:"message"`
}

type updateEndorsementRequest struct {
	Status string   `json:"status"`
	Weight *float64 `json:"weight"`
}

type userRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type userResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type scoreResponse struct {
	ID               string                `json:"id"`
	UserID           string                `json:"userId"`
	CognitiveScore   *float64              `json:"cognitiveScore"`
	PortfolioScore   *float64              `json:"portfolioScore"`
	EndorsementScore *float64              `json:"endorsementScore"`
	CompositeScore   float64               `json:"compositeScore"`
	ScoreBreakdown   domain.ScoreBreakdown `json:"scoreBreakdown"`
	Rank             *int                  `json:"rank"`
	Percentile       *float64              `json:"percentile"`
	CreatedAt        string                `json:"createdAt"`
}

type historyResponse struct {
	UserID string               `json:"userId"`
	Scores []scoreResponse      `json:"scores"`
	Growth domain.GrowthMetrics `json:"growthMetrics"`
}

type leaderboardResponse struct {
	Entries []leaderboardEntryResponse `json:"entries"`
}

type leaderboardEntryResponse struct {
	UserID           string   `json:"userId"`
	DisplayName      string   `json:"displayName"`
	Email            string   `json:"email"`
	CompositeScore   float64  `json:"compositeScore"`
	CognitiveScore   *float64 `json:"cognitiveScore"`
	PortfolioScore   *float64 `json:"portfolioScore"`
	EndorsementScore *float64 `json:"endorsementScore"`
	Rank             int      `json:"rank"`
	Percentile       float64  `json:"percentile"`
}

type certificateResponse struct {
	ID               string                     `json:"id"`
	UserID           string                     `json:"userId"`
	LifeScoreID      string                     `json:"lifescoreId"`
	CertificateHash  string                     `json:"certificateHash"`
	Score            float64                    `json:"score"`
	IssuedAt         string                     `json:"issuedAt"`
	ExpiresAt        string                     `json:"expiresAt,omitempty"`
	Status           string                     `json:"status"`
	Metadata         domain.CertificateMetadata `json:"metadata"`
	BlockchainTxHash string                     `json:"blockchainTxHash,omitempty"`
	VerificationURL  string                     `json:"verificationUrl"`
	CreatedAt        string                     `json:"createdAt"`
}

type certificateListResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

type verificationResponse struct {
	Valid       bool                 `json:"valid"`
	Certificate *certificateResponse `json:"certificate,omitempty"`
	Message     string               `json:"message"`
}

type endorsementResponse struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	EndorserUserID string   `json:"endorserUserId"`
	Skill          string   `json:"skill"`
	Message        string   `json:"message,omitempty"`
	Status         string   `json:"status"`
	Weight         float64  `json:"weight"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

type endorsementListResponse struct {
	Endorsements []endorsementResponse `json:"endorsements"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// --- Helpers ---

func toScoreResponse(rec domain.LifeScoreRecord) scoreResponse {
	return scoreResponse{
		ID:               rec.ID,
		UserID:           rec.UserID,
		CognitiveScore:   rec.CognitiveScore,
		PortfolioScore:   rec.PortfolioScore,
		EndorsementScore: rec.EndorsementScore,
		CompositeScore:   rec.CompositeScore,
		ScoreBreakdown:   rec.Breakdown,
		Rank:             rec.Rank,
		Percentile:       rec.Percentile,
		CreatedAt:        formatTime(rec.CreatedAt),
	}
}

func (h *APIHandlers) toCertificateResponse(cert domain.Certificate) certificateResponse {
	return certificateResponse{
		ID:               cert.ID,
		UserID:           cert.UserID,
		LifeScoreID:      cert.LifeScoreID,
		CertificateHash:  cert.CertificateHash,
		Score:            cert.Score,
		IssuedAt:         formatTime(cert.IssuedAt),
		ExpiresAt:        formatTimePtr(cert.ExpiresAt),
		Status:           string(cert.Status),
		Metadata:         cert.Metadata,
		BlockchainTxHash: cert.BlockchainTxHash,
		VerificationURL:  h.certificates.VerificationURL(cert.ID),
		CreatedAt:        formatTime(cert.CreatedAt),
	}
}

func toEndorsementResponse(e domain.Endorsement) endorsementResponse {
	return endorsementResponse{
		ID:             e.ID,
		UserID:         e.SubjectUserID,
		EndorserUserID: e.EndorserUserID,
		Skill:          e.Skill,
		Message:        e.Message,
		Status:         string(e.Status),
		Weight:         e.Weight,
		CreatedAt:      formatTime(e.CreatedAt),
		UpdatedAt:      formatTime(e.UpdatedAt),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
