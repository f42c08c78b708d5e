package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tournesol-app/comparo/internal/domain"
)

type pollBody struct {
	Name      string `json:"name"`
	Criterias []struct {
		Name     string `json:"name"`
		Label    string `json:"label"`
		Optional bool   `json:"optional"`
	} `json:"criterias"`
}

// GetPoll fetches a poll's criteria. The API lists the main criterion first.
func (c *Client) GetPoll(ctx context.Context, name string) (*domain.Poll, error) {
	var body pollBody
	if err := c.do(ctx, http.MethodGet, "/polls/"+url.PathEscape(name)+"/", nil, &body); err != nil {
		return nil, err
	}
	if len(body.Criterias) == 0 {
		return nil, fmt.Errorf("poll %s has no criteria", name)
	}
	p := &domain.Poll{Name: body.Name, MainCriterion: body.Criterias[0].Name}
	for i, cr := range body.Criterias {
		p.Criteria = append(p.Criteria, domain.Criterion{
			Name:     cr.Name,
			Label:    cr.Label,
			Optional: cr.Optional,
			Position: i,
		})
	}
	return p, nil
}

type pollSettings struct {
	CriteriaOrder *[]string `json:"comparison__criteria_order"`
}

// GetPreferences reads the contributor's settings for poll. Settings never
// saved for that poll yield empty preferences.
func (c *Client) GetPreferences(ctx context.Context, poll string) (*domain.Preferences, error) {
	var body map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/users/me/settings/", nil, &body); err != nil {
		return nil, err
	}
	raw, ok := body[poll]
	if !ok {
		return &domain.Preferences{}, nil
	}
	var s pollSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding %s settings: %w", poll, err)
	}
	p := &domain.Preferences{}
	if s.CriteriaOrder != nil {
		p.CriteriaOrder = *s.CriteriaOrder
	}
	return p, nil
}

// RefreshStats fetches the platform statistics so that cached aggregates are
// recomputed. The body is discarded.
func (c *Client) RefreshStats(ctx context.Context, poll string) error {
	return c.do(ctx, http.MethodGet, "/stats/?poll="+url.QueryEscape(poll), nil, nil)
}
