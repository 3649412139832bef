package httpx

import (
	"log/slog"
	"net/http"

	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	"github.com/genrelay/genrelay/internal/service"
)

// CallbackHandlers receives asynchronous status notifications from the
// generation provider.
type CallbackHandlers struct {
	Svc    *service.CallbackService
	Logger *slog.Logger
}

// Receive accepts one provider notification. Malformed payloads answer 400;
// everything else answers 200 regardless of internal outcome, because a
// non-2xx would make the provider redeliver a callback we have already
// absorbed or parked. The reconciler repairs whatever went wrong here.
func (h *CallbackHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	var cb model.ProviderCallback
	if !DecodeJSON(w, r, &cb) {
		return
	}

	if err := h.Svc.Handle(r.Context(), &cb); err != nil {
		if apperrors.IsValidation(err) {
			WriteAppError(w, err)
			return
		}
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "callback processing failed",
				"task_id", cb.TaskID,
				"status", cb.Status,
				"error", err,
			)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
