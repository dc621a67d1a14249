package client

import (
	"context"
	"net/url"

	"github.com/claims-center/claimsapi/internal/validation"
)

const (
	claimsEndpoint     = "/claims"
	activitiesEndpoint = "/activities"
)

// GetClosedClaims returns closed claims, optionally filtered by agent.
//
// A nil agentID means no agent filter. A non-nil agentID is trimmed and must not be empty.
//
// GET {base}/claims?status=closed[&agentId=<id>]
func (c *Client) GetClosedClaims(ctx context.Context, agentID *string) (any, error) {
	params := url.Values{}
	params.Set("status", "closed")

	if agentID != nil {
		id, err := validation.AgentID(*agentID)
		if err != nil {
			return nil, err
		}
		params.Set("agentId", id)
	}

	return c.Get(ctx, claimsEndpoint, params)
}

// GetAgentActivities returns the activities created and closed by an agent.
//
// GET {base}/activities?agentId=<id>
func (c *Client) GetAgentActivities(ctx context.Context, agentID string) (any, error) {
	id, err := validation.AgentID(agentID)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("agentId", id)

	return c.Get(ctx, activitiesEndpoint, params)
}
