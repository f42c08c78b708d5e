package api

import (
	"context"
	"math"
	"net/http"
	"net/url"

	"github.com/tournesol-app/comparo/internal/domain"
)

type entityRef struct {
	UID string `json:"uid"`
}

type criteriaScore struct {
	Criteria string   `json:"criteria"`
	Score    *float64 `json:"score"`
	ScoreMax int      `json:"score_max"`
	Weight   float64  `json:"weight"`
}

type comparisonBody struct {
	EntityA        entityRef       `json:"entity_a"`
	EntityB        entityRef       `json:"entity_b"`
	CriteriaScores []criteriaScore `json:"criteria_scores"`
	DurationMs     int64           `json:"duration_ms"`
}

type updateBody struct {
	CriteriaScores []criteriaScore `json:"criteria_scores"`
	DurationMs     int64           `json:"duration_ms,omitempty"`
}

func toWire(scores []domain.CriterionScore) []criteriaScore {
	out := make([]criteriaScore, 0, len(scores))
	for _, cs := range scores {
		w := criteriaScore{Criteria: cs.Criterion, ScoreMax: cs.ScoreMax, Weight: float64(cs.Weight)}
		if cs.Score != nil {
			v := float64(*cs.Score)
			w.Score = &v
		}
		if w.Weight == 0 {
			w.Weight = 1
		}
		out = append(out, w)
	}
	return out
}

func fromWire(poll string, b *comparisonBody) *domain.ComparisonDraft {
	d := &domain.ComparisonDraft{
		Poll:       poll,
		EntityA:    b.EntityA.UID,
		EntityB:    b.EntityB.UID,
		DurationMs: b.DurationMs,
	}
	for _, w := range b.CriteriaScores {
		cs := domain.CriterionScore{Criterion: w.Criteria, ScoreMax: w.ScoreMax, Weight: int(math.Round(w.Weight))}
		if w.Score != nil {
			cs.Score = domain.IntPtr(int(math.Round(*w.Score)))
		}
		d.CriteriaScores = append(d.CriteriaScores, cs)
	}
	d.Encoding = uniformEncoding(d.CriteriaScores)
	return d
}

// uniformEncoding returns the encoding shared by every score, or zero when
// scores disagree or carry an unknown score_max.
func uniformEncoding(scores []domain.CriterionScore) domain.ScoreEncoding {
	var enc domain.ScoreEncoding
	for _, cs := range scores {
		e := domain.ScoreEncoding(cs.ScoreMax)
		if !e.Valid() || (enc != 0 && e != enc) {
			return 0
		}
		enc = e
	}
	return enc
}

func comparisonPath(poll, entityA, entityB string) string {
	return "/users/me/comparisons/" + url.PathEscape(poll) + "/" +
		url.PathEscape(entityA) + "/" + url.PathEscape(entityB) + "/"
}

// GetComparison fetches the contributor's comparison of a pair.
func (c *Client) GetComparison(ctx context.Context, poll, entityA, entityB string) (*domain.ComparisonDraft, error) {
	var body comparisonBody
	if err := c.do(ctx, http.MethodGet, comparisonPath(poll, entityA, entityB), nil, &body); err != nil {
		return nil, err
	}
	return fromWire(poll, &body), nil
}

func (c *Client) CreateComparison(ctx context.Context, d *domain.ComparisonDraft) (*domain.ComparisonDraft, error) {
	req := comparisonBody{
		EntityA:        entityRef{UID: d.EntityA},
		EntityB:        entityRef{UID: d.EntityB},
		CriteriaScores: toWire(d.CriteriaScores),
		DurationMs:     d.DurationMs,
	}
	var body comparisonBody
	if err := c.do(ctx, http.MethodPost, "/users/me/comparisons/"+url.PathEscape(d.Poll)+"/", req, &body); err != nil {
		return nil, err
	}
	return fromWire(d.Poll, &body), nil
}

// UpdateComparison replaces the comparison's scores (PUT) or, when partial,
// merges the given scores into it (PATCH).
func (c *Client) UpdateComparison(ctx context.Context, poll, entityA, entityB string, scores []domain.CriterionScore, partial bool) (*domain.ComparisonDraft, error) {
	method := http.MethodPut
	if partial {
		method = http.MethodPatch
	}
	var body comparisonBody
	err := c.do(ctx, method, comparisonPath(poll, entityA, entityB), updateBody{CriteriaScores: toWire(scores)}, &body)
	if err != nil {
		return nil, err
	}
	return fromWire(poll, &body), nil
}
