package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ActivityPort defines the interface for reading activity counters.
// Consumers should use this interface instead of directly referencing the Module.
type ActivityPort interface {
	Summary(ctx context.Context, limit int) (Summary, error)
}

// activityAdapter implements ActivityPort using the service container.
type activityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates a new adapter for the activity service.
func NewActivityAdapter(container mono.ServiceContainer) ActivityPort {
	return &activityAdapter{container: container}
}

// Summary retrieves the activity summary, limited to the busiest limit rooms.
func (a *activityAdapter) Summary(ctx context.Context, limit int) (Summary, error) {
	req := GetSummaryRequest{Limit: limit}
	var resp GetSummaryResponse
	err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetSummary,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("%s service call failed: %w", ServiceGetSummary, err)
	}
	return resp.Summary, nil
}
