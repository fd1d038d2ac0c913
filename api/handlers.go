/*
handlers.go - HTTP handlers for the loyalty engine

PURPOSE:
  Exposes the engine over REST plus the generic command-dispatch
  endpoint. Handlers parse HTTP, delegate to the Program or the command
  Dispatcher, and serialize responses.

ERROR HANDLING:
  Engine errors map to HTTP status:
  - 400: invalid arguments, malformed bodies
  - 403: admin role missing
  - 404: unknown member, unknown item, unknown command
  - 409: duplicate catalog id, insufficient balance
  - 500: storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/krisflyer/loyalty-engine/commands"
	"github.com/krisflyer/loyalty-engine/loyalty"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	logger     *zap.Logger
	program    *loyalty.Program
	dispatcher *commands.Dispatcher
}

// NewHandler creates a handler over the program and its dispatcher.
func NewHandler(logger *zap.Logger, program *loyalty.Program, dispatcher *commands.Dispatcher) *Handler {
	return &Handler{logger: logger, program: program, dispatcher: dispatcher}
}

// logRequests is a minimal structured access log.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// actor reconstructs the invoker from the identity headers.
func actor(r *http.Request) (loyalty.MemberID, string, []string) {
	id := loyalty.MemberID(r.Header.Get("X-Member-ID"))
	name := r.Header.Get("X-Member-Name")
	var roles []string
	if raw := r.Header.Get("X-Member-Roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
	}
	return id, name, roles
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// DispatchCommand runs one named command through the dispatcher.
// POST /api/commands/{name}
func (h *Handler) DispatchCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	id, name, roles := actor(r)
	inv := commands.Invocation{
		Command:    chi.URLParam(r, "name"),
		ActorID:    id,
		ActorName:  name,
		ActorRoles: roles,
		Options:    req.Options,
	}

	reply, err := h.dispatcher.Dispatch(r.Context(), inv)
	if err != nil {
		if rejection, ok := commands.RejectionReply(err); ok {
			writeJSON(w, statusFor(err), rejection)
			return
		}
		h.logger.Error("command failed", zap.String("command", inv.Command), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Command failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// =============================================================================
// MEMBER READS
// =============================================================================

// GetAccount returns an account with tier and progress.
// GET /api/members/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := loyalty.MemberID(chi.URLParam(r, "id"))
	view, err := h.program.Account(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(view))
}

// GetInventory returns a member's purchases.
// GET /api/members/{id}/inventory
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	id := loyalty.MemberID(chi.URLParam(r, "id"))
	entries, err := h.program.Inventory(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]InventoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = InventoryEntryDTO{ItemID: string(e.ItemID), Quantity: e.Quantity}
		if e.Item != nil {
			item := toShopItemDTO(*e.Item)
			dtos[i].Item = &item
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTransactions returns a member's audit trail, newest first.
// GET /api/members/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := loyalty.MemberID(chi.URLParam(r, "id"))
	txs, err := h.program.History(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			ID:        tx.ID,
			Type:      string(tx.Type),
			Delta:     tx.Delta,
			Balance:   tx.Balance,
			Reason:    tx.Reason,
			ItemID:    string(tx.ItemID),
			Actor:     tx.Actor,
			CreatedAt: tx.CreatedAt.Format(time.RFC3339Nano),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PROGRAM DATA
// =============================================================================

// GetLeaderboard returns one ranking page.
// GET /api/leaderboard?page=N
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}
	board, err := h.program.Leaderboard(r.Context(), page)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardDTO{
		Page:         board.Page,
		TotalPages:   board.TotalPages,
		TotalMembers: board.TotalMembers,
		Entries:      board.Entries,
	})
}

// GetTiers dumps the tier table.
// GET /api/tiers
func (h *Handler) GetTiers(w http.ResponseWriter, r *http.Request) {
	tiers := h.program.Tiers().All()
	dtos := make([]TierDTO, len(tiers))
	for i, t := range tiers {
		dtos[i] = toTierDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetShop dumps the catalog.
// GET /api/shop
func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	items, err := h.program.Catalog(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]ShopItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toShopItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Calculate runs the mileage calculator.
// GET /api/calculate?base_miles=N&cabin=C&bonus=true
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	base, err := strconv.ParseInt(r.URL.Query().Get("base_miles"), 10, 64)
	if err != nil || base < 0 {
		writeError(w, http.StatusBadRequest, "base_miles must be a non-negative integer", nil)
		return
	}
	cabin := loyalty.CabinClass(r.URL.Query().Get("cabin"))
	bonus, _ := strconv.ParseBool(r.URL.Query().Get("bonus"))

	calc := loyalty.CalculateMiles(base, cabin, bonus)
	writeJSON(w, http.StatusOK, CalculationDTO{
		BaseMiles:       calc.BaseMiles,
		Cabin:           string(calc.Cabin),
		Bonus:           calc.Bonus,
		CabinMultiplier: calc.CabinMultiplier.String(),
		BonusMultiplier: calc.BonusMultiplier.String(),
		TotalMultiplier: calc.TotalMultiplier.String(),
		EarnedMiles:     calc.EarnedMiles,
	})
}

// =============================================================================
// PURCHASE
// =============================================================================

// Purchase buys one item for the member in the URL.
// POST /api/members/{id}/purchase
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	id := loyalty.MemberID(chi.URLParam(r, "id"))
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.program.Purchase(r.Context(), id, loyalty.ItemID(req.ItemID))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PurchaseDTO{
		MemberID:   string(id),
		Item:       toShopItemDTO(res.Item),
		NewBalance: res.NewBalance,
		Quantity:   res.Quantity,
	})
}

// =============================================================================
// ADMIN MUTATIONS
// =============================================================================

// requireAdmin enforces the role gate for the REST admin routes using
// the same authorization the dispatcher applies to admin commands.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, name, roles := actor(r)
	inv := commands.Invocation{ActorID: id, ActorName: name, ActorRoles: roles}
	if err := h.dispatcher.Authorize(inv); err != nil {
		writeError(w, http.StatusForbidden, "Admin role required", err)
		return "", false
	}
	if name == "" {
		name = string(id)
	}
	return name, true
}

// AwardMiles credits miles to a member.
// POST /api/admin/award
func (h *Handler) AwardMiles(w http.ResponseWriter, r *http.Request) {
	actorName, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.program.Award(r.Context(), actorName, loyalty.MemberID(req.MemberID),
		req.Miles, req.Reason, req.FlightCompletion)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMutationDTO(loyalty.MemberID(req.MemberID), res))
}

// RemoveMiles debits miles from a member.
// POST /api/admin/remove
func (h *Handler) RemoveMiles(w http.ResponseWriter, r *http.Request) {
	actorName, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.program.Remove(r.Context(), actorName, loyalty.MemberID(req.MemberID),
		req.Miles, req.Reason)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMutationDTO(loyalty.MemberID(req.MemberID), res))
}

// SetMiles assigns a member's balance directly.
// POST /api/admin/set
func (h *Handler) SetMiles(w http.ResponseWriter, r *http.Request) {
	actorName, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.program.Set(r.Context(), actorName, loyalty.MemberID(req.MemberID), req.Miles)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMutationDTO(loyalty.MemberID(req.MemberID), res))
}

// AddItem creates a catalog entry.
// POST /api/admin/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item := loyalty.ShopItem{
		ID:          loyalty.ItemID(req.ID),
		Name:        req.Name,
		Description: req.Description,
		Emoji:       req.Emoji,
		Cost:        req.Cost,
	}
	if err := h.program.AddItem(r.Context(), item); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "created"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	if !loyalty.IsClientError(err) {
		h.logger.Error("engine error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
		return
	}
	writeError(w, statusFor(err), err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, loyalty.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, loyalty.ErrItemNotFound),
		errors.Is(err, loyalty.ErrMemberNotFound),
		errors.Is(err, commands.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, loyalty.ErrDuplicateItem),
		errors.Is(err, loyalty.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, loyalty.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
