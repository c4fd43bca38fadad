package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
	"github.com/erazemk/rewear/internal/swap"
)

// recentSwapsCount is how many swaps the admin activity feed shows.
const recentSwapsCount = 20

// AdminHandler handles moderation and platform administration.
type AdminHandler struct {
	DB    *sql.DB
	Swaps *swap.Service
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type adjustPointsRequest struct {
	Delta int `json:"delta"`
}

// PendingItems handles GET /api/admin/pending-items.
func (h *AdminHandler) PendingItems(w http.ResponseWriter, r *http.Request) {
	approved := false
	items, _, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		Status:   model.ItemStatusPending,
		Approved: &approved,
	})
	if err != nil {
		writeError(w, err, "list pending items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Approve handles PUT /api/admin/approve-item/{id}.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	item, ok := h.moderate(w, r, swap.DecisionApprove)
	if ok {
		jsonResponse(w, http.StatusOK, item)
	}
}

// Reject handles PUT /api/admin/reject-item/{id}.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	item, ok := h.moderate(w, r, swap.DecisionReject)
	if ok {
		jsonResponse(w, http.StatusOK, item)
	}
}

// Remove handles DELETE /api/admin/remove-item/{id}.
func (h *AdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.moderate(w, r, swap.DecisionRemove); ok {
		jsonMessage(w, "item removed")
	}
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, d swap.Decision) (*model.Item, bool) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	item, err := h.Swaps.Moderate(r.Context(), id, d)
	if err != nil {
		writeError(w, err, "moderate item")
		return nil, false
	}

	slog.Info("item moderated", "item", id, "decision", d, "admin", claims.UserID)
	return item, true
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetStats(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "get stats")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Users handles GET /api/admin/users.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// SetRole handles PUT /api/admin/users/{id}/role.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeError(w, err, "set role")
		return
	}

	// Prevent admins from locking themselves out.
	if id == claims.UserID && role != model.RoleAdmin {
		jsonError(w, http.StatusBadRequest, "cannot demote yourself")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, role); err != nil {
		writeError(w, err, "set role")
		return
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "set role")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	slog.Info("user role changed", "user", id, "role", role, "admin", claims.UserID)
	jsonResponse(w, http.StatusOK, user)
}

// AdjustPoints handles POST /api/admin/users/{id}/points.
func (h *AdminHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	var req adjustPointsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := h.Swaps.AdjustBalance(r.Context(), id, req.Delta)
	if err != nil {
		writeError(w, err, "adjust points")
		return
	}

	slog.Info("points adjusted", "user", id, "delta", req.Delta, "balance", balance, "admin", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]int{"points": balance})
}

// RecentSwaps handles GET /api/admin/recent-swaps.
func (h *AdminHandler) RecentSwaps(w http.ResponseWriter, r *http.Request) {
	swaps, err := store.ListRecentSwaps(r.Context(), h.DB, recentSwapsCount)
	if err != nil {
		writeError(w, err, "list recent swaps")
		return
	}
	if swaps == nil {
		swaps = []model.Swap{}
	}
	jsonResponse(w, http.StatusOK, swaps)
}
