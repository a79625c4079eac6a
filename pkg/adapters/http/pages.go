package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/lemon/internal/presentation/web"
	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/aretw0/lemon/pkg/invite"
	"github.com/go-chi/chi/v5"
)

func (s *Server) html(w http.ResponseWriter, status int, render func(http.ResponseWriter) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := render(w); err != nil {
		s.Logger.Error("Render failed", "err", err)
	}
}

// getLanding handles GET /.
func (s *Server) getLanding(w http.ResponseWriter, r *http.Request) {
	s.html(w, http.StatusOK, func(w http.ResponseWriter) error { return s.Renderer.Landing(w) })
}

// getHub handles GET on the hub path.
func (s *Server) getHub(w http.ResponseWriter, r *http.Request) {
	visited := sessionFrom(r).Visited(r.Context())
	statuses := s.Gate.Statuses(visited)
	entries := make([]web.HubEntry, len(statuses))
	for i, st := range statuses {
		entries[i] = web.HubEntry{PageStatus: st, Title: s.title(st.Key)}
	}
	s.html(w, http.StatusOK, func(w http.ResponseWriter) error { return s.Renderer.Hub(w, entries) })
}

// getPage handles GET /pages/{key}. Locked pages answer 403 with a notice
// that refreshes to the hub.
func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	sess := sessionFrom(r)
	visited := sess.Visited(r.Context())

	err := s.Gate.EnsureUnlocked(r.Context(), key, visited)
	var locked *gate.LockedError
	switch {
	case errors.Is(err, domain.ErrUnknownPage):
		s.html(w, http.StatusNotFound, func(w http.ResponseWriter) error {
			return s.Renderer.Error(w, "Not found", "There is no surprise here.")
		})
		return
	case errors.As(err, &locked):
		s.html(w, http.StatusForbidden, func(w http.ResponseWriter) error {
			return s.Renderer.Locked(w, locked.Message, locked.Redirect, locked.Delay)
		})
		return
	case err != nil:
		s.Logger.Error("Gate check failed", "page", key, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := s.Pages[key]
	view := web.PageView{
		Key:     key,
		Title:   s.title(key),
		Body:    page.Body,
		Gallery: page.Gallery,
		Invite:  s.Invite != "" && s.isLast(key),
	}
	if page.Gallery {
		view.Images = sess.Images(r.Context())
	}
	s.html(w, http.StatusOK, func(w http.ResponseWriter) error { return s.Renderer.Page(w, view) })
}

// getInvite handles GET /invite.
func (s *Server) getInvite(w http.ResponseWriter, r *http.Request) {
	dest, err := invite.Decode(s.Invite)
	if errors.Is(err, invite.ErrNotConfigured) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.Logger.Error("Invite decode failed", "err", err)
		http.Error(w, "invite unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Referrer-Policy", "no-referrer")
	http.Redirect(w, r, dest, http.StatusFound)
}

func (s *Server) title(key string) string {
	if p, ok := s.Pages[key]; ok && p.Title != "" {
		return p.Title
	}
	return key
}

func (s *Server) isLast(key string) bool {
	order := s.Gate.Order()
	return len(order) > 0 && order[len(order)-1] == key
}
