// Package api exposes HTTP handlers for the pact service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/pact/internal/auth"
	"example.com/pact/internal/clients"
	"example.com/pact/internal/contract"
	"example.com/pact/internal/domain"
	"example.com/pact/internal/pipeline"
	"example.com/pact/internal/stake"
	"example.com/pact/internal/verify"
)

// Handler coordinates HTTP requests with the contract pipeline.
type Handler struct {
	builder   *contract.Builder
	pipe      *pipeline.Pipeline
	contracts domain.ContractRepository
	feed      domain.FeedRepository
	stats     domain.StatsRepository
	stakes    *stake.Manager
	now       func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(builder *contract.Builder, pipe *pipeline.Pipeline, contracts domain.ContractRepository,
	feed domain.FeedRepository, stats domain.StatsRepository, stakes *stake.Manager) *Handler {
	return &Handler{
		builder:   builder,
		pipe:      pipe,
		contracts: contracts,
		feed:      feed,
		stats:     stats,
		stakes:    stakes,
		now:       time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/negotiate", h.negotiate)
	mux.HandleFunc("/v1/contracts", h.contractsRoot)
	mux.HandleFunc("/v1/contracts/", h.contractByID)
	mux.HandleFunc("/v1/verify", h.verifyContract)
	mux.HandleFunc("/v1/feed", h.feedRecent)
	mux.HandleFunc("/v1/leaderboard", h.leaderboard)
	mux.HandleFunc("/v1/stake/", h.stakeByUser)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) negotiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeContractsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope contracts:write required")
		return
	}

	var req NegotiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.GoalText) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "goal_text is required")
		return
	}

	draft, err := h.builder.Negotiate(r.Context(), req.GoalText)
	if err != nil {
		if errors.Is(err, clients.ErrParserUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "parser_unavailable", "goal parser is not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NegotiateResponse{Draft: *draft})
}

func (h *Handler) contractsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.commitContract(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) commitContract(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeContractsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope contracts:write required")
		return
	}

	var req CommitContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	deadline, err := domain.ParseDeadline(req.DeadlineUTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "deadline_utc: "+err.Error())
		return
	}

	signed := domain.Contract{
		ID:                   uuid.NewString(),
		UserID:               claims.Subject,
		GoalType:             domain.GoalType(req.GoalType),
		GoalDescription:      req.GoalDescription,
		TargetDistanceKm:     req.TargetDistanceKm,
		AllowedActivityTypes: req.AllowedActivityTypes,
		DeadlineUTC:          deadline,
		MinHeartRateAvg:      req.MinHeartRateAvg,
		ConfidenceRequired:   req.ConfidenceRequired,
		Penalty:              req.Penalty,
		IsPublic:             req.IsPublic,
		Status:               domain.ContractStatusActive,
		CreatedAt:            h.now().UTC(),
	}
	if signed.ConfidenceRequired == 0 {
		signed.ConfidenceRequired = domain.DefaultConfidenceRequired
	}
	if len(signed.AllowedActivityTypes) == 0 {
		signed.AllowedActivityTypes = []string{"General"}
	}

	if err := signed.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.contracts.Create(r.Context(), signed); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if err := h.stats.IncrementSigned(r.Context(), signed.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CommitContractResponse{
		ContractID: signed.ID,
		Status:     string(signed.Status),
		Contract:   signed,
	})
}

func (h *Handler) contractByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/contracts/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing contract id")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeContractsRead) && !claims.HasScope(auth.ScopeContractsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope contracts:read required")
		return
	}

	found, err := h.contracts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) verifyContract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeContractsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope contracts:write required")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.ContractID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "contract_id is required")
		return
	}

	subject, err := h.contracts.Get(r.Context(), req.ContractID)
	if err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if subject.Status.Terminal() {
		writeError(w, http.StatusConflict, "contract_terminal", "contract is already resolved")
		return
	}

	input := verify.Input{ActivityID: req.ActivityID}
	if req.TextEvidence != "" || len(req.ImageURLs) > 0 {
		input.Evidence = &domain.Evidence{
			TextEvidence: req.TextEvidence,
			ImageURLs:    req.ImageURLs,
		}
	}

	outcome := h.pipe.Run(r.Context(), *subject, input)
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) feedRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	limit := parseLimit(r, 20, 100)
	entries, err := h.feed.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, FeedResponse{Items: entries})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	limit := parseLimit(r, 10, 50)
	rows, err := h.stats.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LeaderboardResponse{Items: rows})
}

func (h *Handler) stakeByUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/v1/stake/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing user id")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeContractsRead) && !claims.HasScope(auth.ScopeContractsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope contracts:read required")
		return
	}

	ledger, events, err := h.stakes.Snapshot(r.Context(), userID, parseLimit(r, 20, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StakeResponse{Ledger: *ledger, Events: events})
}

func parseLimit(r *http.Request, fallback, max int) int {
	limit := fallback
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// NegotiateRequest is the payload for POST /v1/negotiate.
type NegotiateRequest struct {
	GoalText string `json:"goal_text"`
}

// NegotiateResponse carries the parsed draft back for user review. Nothing
// is persisted until the draft is committed.
type NegotiateResponse struct {
	Draft domain.Contract `json:"draft"`
}

// CommitContractRequest is the payload for POST /v1/contracts. The deadline
// arrives as a string and tolerates timezone-naive timestamps.
type CommitContractRequest struct {
	GoalType             string         `json:"goal_type"`
	GoalDescription      string         `json:"goal_description"`
	TargetDistanceKm     *float64       `json:"target_distance_km"`
	AllowedActivityTypes []string       `json:"allowed_activity_types"`
	DeadlineUTC          string         `json:"deadline_utc"`
	MinHeartRateAvg      *float64       `json:"min_heart_rate_avg"`
	ConfidenceRequired   float64        `json:"confidence_required"`
	Penalty              domain.Penalty `json:"penalty"`
	IsPublic             bool           `json:"is_public"`
}

// CommitContractResponse describes the response body for commit.
type CommitContractResponse struct {
	ContractID string          `json:"contract_id"`
	Status     string          `json:"status"`
	Contract   domain.Contract `json:"contract"`
}

// VerifyRequest is the payload for POST /v1/verify. Callers submit a tracker
// activity ID, free-text/image evidence, or both.
type VerifyRequest struct {
	ContractID   string   `json:"contract_id"`
	ActivityID   string   `json:"activity_id,omitempty"`
	TextEvidence string   `json:"text_evidence,omitempty"`
	ImageURLs    []string `json:"image_urls,omitempty"`
}

// FeedResponse packages recent public feed entries.
type FeedResponse struct {
	Items []domain.FeedEntry `json:"items"`
}

// LeaderboardResponse packages the completion leaderboard.
type LeaderboardResponse struct {
	Items []domain.UserStats `json:"items"`
}

// StakeResponse exposes a user's ledger plus recent events.
type StakeResponse struct {
	Ledger domain.StakeLedger  `json:"ledger"`
	Events []domain.StakeEvent `json:"events"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
