// Package discovery implements the LLM-guided pipeline: identify target
// companies for a role, search each one against a listing source, and stream
// ordered progress events to the caller.
package discovery

import (
	"context"

	"github.com/jobsift/jobsift/internal/model"
)

// Researcher is the LLM target-discovery collaborator. Implementations
// return a *model.ServiceError when the service is unreachable or its output
// is unusable; that failure is fatal for a whole discovery run.
type Researcher interface {
	IdentifyTargets(ctx context.Context, role, location string) ([]model.Target, error)
}

// targetResearchPrompt asks for employers worth searching directly.
const targetResearchPrompt = `You are a career research analyst. Given a job role and optional location,
identify the top companies that are excellent employers for this role.

Consider:
- Companies known for strong engineering/professional culture
- Market leaders and well-funded startups in relevant industries
- Companies actively hiring for this type of role
- Mix of large enterprises, mid-size companies, and promising startups
- If a location is specified, prioritize companies with presence there

Respond with a single JSON object:
{
  "companies": [
    {
      "name": "Company Name",
      "reason": "Brief reason why this is a good company for this role (1 sentence)",
      "industry": "e.g. Tech, Finance, Healthcare"
    }
  ]
}

Return 8-12 companies. Use well-known, real company names only.`

// maxTargets caps how many companies one run will search, whatever the
// model returns.
const maxTargets = 15
