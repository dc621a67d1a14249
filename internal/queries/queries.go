// Package queries provides agent and organization scoped claim queries built on an injected APIClient.
//
// Arguments are validated before any request is made; results are returned exactly as decoded by the client.
package queries

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/claims-center/claimsapi/internal/validation"
)

const DefaultGlobalClosedClaimsLimit = 100

// APIClient is implemented by *client.Client
type APIClient interface {
	Get(ctx context.Context, endpoint string, params url.Values) (any, error)
}

type Queries struct {
	api    APIClient
	logger *slog.Logger
}

func New(api APIClient, logger *slog.Logger) *Queries {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queries{
		api:    api,
		logger: logger.With(slog.String("component", "claims-queries")),
	}
}

// GlobalClosedClaimsOptions - a zero Limit uses DefaultGlobalClosedClaimsLimit
type GlobalClosedClaimsOptions struct {
	Limit int `json:"limit" validate:"omitempty,min=1"`
}

// ActivityFilter - a blank Status means no status filter
type ActivityFilter struct {
	Status string `json:"status" validate:"omitempty,max=64"`
}

// GetClosedClaimsByAgent returns the closed claims of one agent.
//
// GET {base}/claims/closed/{agentID}
func (q *Queries) GetClosedClaimsByAgent(ctx context.Context, agentID string) (any, error) {
	id, err := validation.AgentID(agentID)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("fetching closed claims for agent", slog.String("agent_id", id))

	return q.api.Get(ctx, "/claims/closed/"+url.PathEscape(id), nil)
}

// GetGlobalClosedClaims returns closed claims across the organization.
//
// GET {base}/claims/closed?limit=<n>
func (q *Queries) GetGlobalClosedClaims(ctx context.Context, opts GlobalClosedClaimsOptions) (any, error) {
	if err := validation.Struct(opts); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultGlobalClosedClaimsLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	return q.api.Get(ctx, "/claims/closed", params)
}

// GetActivitiesByAgent returns the activities of one agent, optionally filtered by status (e.g. "open", "closed").
//
// GET {base}/activities/{agentID}[?status=<s>]
func (q *Queries) GetActivitiesByAgent(ctx context.Context, agentID string, filter ActivityFilter) (any, error) {
	id, err := validation.AgentID(agentID)
	if err != nil {
		return nil, err
	}

	filter.Status = strings.TrimSpace(filter.Status)
	if err := validation.Struct(filter); err != nil {
		return nil, err
	}

	var params url.Values
	if filter.Status != "" {
		params = url.Values{}
		params.Set("status", filter.Status)
	}

	return q.api.Get(ctx, "/activities/"+url.PathEscape(id), params)
}
