package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/auth"
	"github.com/streamkit/helix/roles"
)

// queryHandler exposes the role resolver over HTTP.
type queryHandler struct {
	manager  *auth.Manager
	resolver *roles.Resolver
	logger   *slog.Logger
}

func newQueryRouter(manager *auth.Manager, resolver *roles.Resolver, logger *slog.Logger) http.Handler {
	h := &queryHandler{manager: manager, resolver: resolver, logger: logger}

	router := chi.NewRouter()
	router.Get("/authorize", h.authorize)
	router.Route("/channels/{channel}", func(r chi.Router) {
		r.Get("/moderators", h.listRelations(h.resolver.Moderators))
		r.Get("/vips", h.listRelations(h.resolver.VIPs))
		r.Get("/editors", h.listRelations(h.resolver.Editors))
		r.Get("/subscribers", h.listRelations(h.resolver.Subscribers))
		r.Get("/followers", h.listRelations(h.resolver.Followers))

		r.Post("/moderators/{user}", h.mutate(h.resolver.AddModerator))
		r.Delete("/moderators/{user}", h.mutate(h.resolver.RemoveModerator))
		r.Post("/vips/{user}", h.mutate(h.resolver.AddVIP))
		r.Delete("/vips/{user}", h.mutate(h.resolver.RemoveVIP))
	})
	return router
}

func (h *queryHandler) authorize(w http.ResponseWriter, r *http.Request) {
	scopes, err := helix.ParseScopes(r.URL.Query().Get("scopes"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": h.manager.AuthorizationURL(scopes...),
	})
}

type relationLister func(ctx context.Context, channel helix.Principal) ([]helix.RelationRecord, error)

func (h *queryHandler) listRelations(list relationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, ok := h.principalParam(w, r, "channel")
		if !ok {
			return
		}
		records, err := list(r.Context(), channel)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": records})
	}
}

type relationMutator func(ctx context.Context, channel, user helix.Principal) (bool, error)

func (h *queryHandler) mutate(apply relationMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, ok := h.principalParam(w, r, "channel")
		if !ok {
			return
		}
		user, ok := h.principalParam(w, r, "user")
		if !ok {
			return
		}
		verified, err := apply(r.Context(), channel, user)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"verified": verified})
	}
}

func (h *queryHandler) principalParam(w http.ResponseWriter, r *http.Request, name string) (helix.Principal, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "malformed principal id: "+raw, http.StatusBadRequest)
		return 0, false
	}
	return helix.Principal(id), true
}

func (h *queryHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var scopeErr *helix.InsufficientScopeError
	switch {
	case errors.Is(err, helix.ErrMissingToken):
		status = http.StatusUnauthorized
	case errors.As(err, &scopeErr):
		status = http.StatusForbidden
	}
	h.logger.Warn("query failed", "error", err, "status", status)
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
