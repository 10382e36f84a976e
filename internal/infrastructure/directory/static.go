// Package directory holds the configuration-backed assistant directory
// used when no database is configured.
package directory

import (
	"context"
	"strings"

	"github.com/turtacn/leadscore/pkg/errors"
)

// StaticDirectory maps subscriptions to assistants from a fixed table.
// Lookups are case insensitive because configuration keys are lowercased
// when the file is loaded.
type StaticDirectory struct {
	assistants map[string]string
}

func NewStaticDirectory(assistants map[string]string) *StaticDirectory {
	m := make(map[string]string, len(assistants))
	for sub, id := range assistants {
		m[strings.ToLower(sub)] = strings.TrimSpace(id)
	}
	return &StaticDirectory{assistants: m}
}

// GetAssistantID implements the scoring AssistantDirectory port.
func (d *StaticDirectory) GetAssistantID(_ context.Context, subscriptionID string) (string, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return "", errors.InputError("subscription id is required")
	}
	id := d.assistants[strings.ToLower(subscriptionID)]
	if id == "" {
		return "", errors.New(errors.ErrCodeSubscriptionNotFound, "subscription not found").WithDetail(subscriptionID)
	}
	return id, nil
}

//Personal.AI order the ending
