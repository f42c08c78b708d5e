package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const testToken = "secret-token"

// fakePlatform is an in-memory platform API routed with chi.
type fakePlatform struct {
	mu          sync.Mutex
	comparisons map[string]comparisonBody
	requestIDs  []string
	statsCalls  int
	getFailures int // GETs answered with 503 before serving normally
	settings    map[string]any
}

func newFakePlatform(t *testing.T) (*fakePlatform, *httptest.Server) {
	t.Helper()
	p := &fakePlatform{comparisons: make(map[string]comparisonBody)}

	r := chi.NewRouter()
	r.Use(p.recordRequestID)
	r.Get("/polls/{name}/", p.getPoll)
	r.Get("/stats/", p.getStats)
	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Get("/users/me/settings/", p.getSettings)
		r.Post("/users/me/comparisons/{poll}/", p.createComparison)
		r.Get("/users/me/comparisons/{poll}/{a}/{b}/", p.getComparison)
		r.Put("/users/me/comparisons/{poll}/{a}/{b}/", p.updateComparison(false))
		r.Patch("/users/me/comparisons/{poll}/{a}/{b}/", p.updateComparison(true))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return p, srv
}

func (p *fakePlatform) recordRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requestIDs = append(p.requestIDs, r.Header.Get("X-Request-ID"))
		fail := r.Method == http.MethodGet && p.getFailures > 0
		if fail {
			p.getFailures--
		}
		p.mu.Unlock()
		if fail {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func key(poll, a, b string) string { return poll + "/" + a + "/" + b }

func (p *fakePlatform) getPoll(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "name") != "videos" {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "videos",
		"criterias": []map[string]any{
			{"name": "largely_recommended", "label": "Should be largely recommended", "optional": false},
			{"name": "reliability", "label": "Reliable and not misleading", "optional": true},
			{"name": "importance", "label": "Important and actionable", "optional": true},
		},
	})
}

func (p *fakePlatform) getStats(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	p.statsCalls++
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"active_users": map[string]int{"total": 1}})
}

func (p *fakePlatform) getSettings(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, p.settings)
}

func (p *fakePlatform) getComparison(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.comparisons[key(chi.URLParam(r, "poll"), chi.URLParam(r, "a"), chi.URLParam(r, "b"))]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (p *fakePlatform) createComparison(w http.ResponseWriter, r *http.Request) {
	var body comparisonBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {err.Error()}})
		return
	}
	if body.EntityA.UID == body.EntityB.UID {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"You cannot compare an entity with itself."}})
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	k := key(chi.URLParam(r, "poll"), body.EntityA.UID, body.EntityB.UID)
	if _, exists := p.comparisons[k]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"The comparison already exists."}})
		return
	}
	p.comparisons[k] = body
	writeJSON(w, http.StatusCreated, body)
}

func (p *fakePlatform) updateComparison(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"criteria_scores": {err.Error()}})
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		k := key(chi.URLParam(r, "poll"), chi.URLParam(r, "a"), chi.URLParam(r, "b"))
		c, ok := p.comparisons[k]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		if !partial {
			c.CriteriaScores = nil
		}
		for _, s := range body.CriteriaScores {
			replaced := false
			for i := range c.CriteriaScores {
				if c.CriteriaScores[i].Criteria == s.Criteria {
					c.CriteriaScores[i] = s
					replaced = true
				}
			}
			if !replaced {
				c.CriteriaScores = append(c.CriteriaScores, s)
			}
		}
		p.comparisons[k] = c
		writeJSON(w, http.StatusOK, c)
	}
}
