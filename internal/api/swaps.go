package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
	"github.com/erazemk/rewear/internal/swap"
	"github.com/erazemk/rewear/internal/textutil"
)

// SwapsHandler handles swap request endpoints.
type SwapsHandler struct {
	DB    *sql.DB
	Swaps *swap.Service
}

type createSwapRequest struct {
	ItemRequestedID string `json:"itemRequestedId"`
	ItemOfferedID   string `json:"itemOfferedId"`
	SwapType        string `json:"swapType"`
	PointsUsed      int    `json:"pointsUsed"`
	Message         string `json:"message"`
}

// Create handles POST /api/swaps.
func (h *SwapsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	swapType, err := model.ParseSwapType(req.SwapType)
	if err != nil {
		writeError(w, err, "create swap")
		return
	}

	sw, err := h.Swaps.RequestSwap(r.Context(), swap.Request{
		RequesterID:     claims.UserID,
		ItemRequestedID: req.ItemRequestedID,
		Type:            swapType,
		ItemOfferedID:   req.ItemOfferedID,
		PointsUsed:      req.PointsUsed,
		Message:         textutil.Clean(req.Message),
	})
	if err != nil {
		writeError(w, err, "create swap")
		return
	}

	slog.Info("swap requested", "swap", sw.ID, "requester", claims.UserID,
		"item", sw.ItemRequestedID, "type", sw.Type, "points", sw.PointsUsed)
	jsonResponse(w, http.StatusCreated, sw)
}

// MyRequests handles GET /api/swaps/my-requests.
func (h *SwapsHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	swaps, err := store.ListSwapsByRequester(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "list own swap requests")
		return
	}
	if swaps == nil {
		swaps = []model.Swap{}
	}
	jsonResponse(w, http.StatusOK, swaps)
}

// MyItems handles GET /api/swaps/my-items: pending requests for the caller's items.
func (h *SwapsHandler) MyItems(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	swaps, err := store.ListPendingSwapsForOwner(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "list incoming swap requests")
		return
	}
	if swaps == nil {
		swaps = []model.Swap{}
	}
	jsonResponse(w, http.StatusOK, swaps)
}

// Get handles GET /api/swaps/{id}. Only the requester, the requested item's
// owner and admins may see a swap.
func (h *SwapsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	sw, err := store.GetSwapDetail(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get swap")
		return
	}
	if sw == nil {
		jsonError(w, http.StatusNotFound, "swap not found")
		return
	}

	participant := sw.RequesterID == claims.UserID ||
		(sw.ItemRequested != nil && sw.ItemRequested.OwnerID == claims.UserID)
	if !participant && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "not authorized")
		return
	}
	jsonResponse(w, http.StatusOK, sw)
}

// Accept handles PUT /api/swaps/{id}/accept.
func (h *SwapsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept", h.Swaps.Accept)
}

// Reject handles PUT /api/swaps/{id}/reject.
func (h *SwapsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject", h.Swaps.Reject)
}

// Cancel handles PUT /api/swaps/{id}/cancel.
func (h *SwapsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel", h.Swaps.Cancel)
}

type transitionFunc func(ctx context.Context, swapID, actorID string) (*model.Swap, error)

func (h *SwapsHandler) transition(w http.ResponseWriter, r *http.Request, action string, fn transitionFunc) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	sw, err := fn(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, err, action+" swap")
		return
	}

	slog.Info("swap "+string(sw.Status), "swap", id, "actor", claims.UserID, "points", sw.PointsUsed)
	jsonResponse(w, http.StatusOK, sw)
}
