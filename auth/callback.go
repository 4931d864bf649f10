package auth

import (
	"log/slog"
	"net/http"
)

// Fixed plain-text bodies the callback answers with. The page is shown
// in the browser tab the user authorized in.
const (
	callbackSuccessBody = "Successfully authenticated! \nYou can close this tab now!"
	callbackErrorBody   = "Failed to authenticate, please try again"
	callbackInvalidBody = "Invalid code, please try again"
)

// CallbackHandler serves the OAuth redirect URL: it pulls the
// authorization code out of the query and hands it to the Manager.
// Mount it at the path of the configured redirect URL.
type CallbackHandler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewCallbackHandler creates the handler for the OAuth redirect URL.
func NewCallbackHandler(manager *Manager) *CallbackHandler {
	return &CallbackHandler{
		manager: manager,
		logger:  manager.logger,
	}
}

var _ http.Handler = (*CallbackHandler)(nil)

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("callback without authorization code",
			"remote", r.RemoteAddr)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(callbackInvalidBody))
		return
	}

	token, err := h.manager.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("authorization code exchange failed",
			"error", err)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(callbackErrorBody))
		return
	}

	h.logger.Info("callback authenticated principal",
		"principal", token.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(callbackSuccessBody))
}
