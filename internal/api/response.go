package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/rewear/internal/imaging"
	"github.com/erazemk/rewear/internal/model"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"message": message})
}

// jsonMessage writes a 200 response carrying only a message.
func jsonMessage(w http.ResponseWriter, message string) {
	jsonResponse(w, http.StatusOK, map[string]string{"message": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(target)
}

// writeError maps a domain error to a status code. Unrecognized errors are
// logged with action and reported as a generic 500.
func writeError(w http.ResponseWriter, err error, action string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrNotAuthorized):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrAlreadyProcessed),
		errors.Is(err, model.ErrEmailTaken),
		errors.Is(err, model.ErrItemUnavailable),
		errors.Is(err, model.ErrNotAwaitingModeration):
		jsonError(w, http.StatusConflict, rootMessage(err))
	case errors.Is(err, model.ErrSelfSwap),
		errors.Is(err, model.ErrInsufficientOfferedPoints),
		errors.Is(err, model.ErrInsufficientBalance),
		errors.Is(err, model.ErrInvalidOfferedItem):
		jsonError(w, http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, imaging.ErrTooLarge.Error())
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, imaging.ErrUnsupported.Error())
	default:
		slog.Error("request failed", "action", action, "error", err)
		jsonError(w, http.StatusInternalServerError, "server error")
	}
}

// rootMessage returns the message of the domain sentinel inside err, so
// that storage details wrapped around it are not exposed.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		model.ErrAlreadyProcessed, model.ErrEmailTaken, model.ErrItemUnavailable,
		model.ErrNotAwaitingModeration,
		model.ErrSelfSwap, model.ErrInsufficientOfferedPoints,
		model.ErrInsufficientBalance, model.ErrInvalidOfferedItem,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
