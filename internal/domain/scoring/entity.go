// Package scoring holds the domain model of the lead scoring pipeline: work
// items parsed from a batch document, the normalized per-item outcome, the
// batch aggregate, and the ports through which the pipeline reaches its
// external collaborators.
package scoring

import "time"

// Placeholder values used when the assistant reply omits a field or when an
// item ends without a usable reply.
const (
	PlaceholderDescription = "No description"
	PlaceholderScore       = "No score"
	PlaceholderCategory    = "Uncategorized"
	NotAvailable           = "N/A"
)

// Descriptions of terminal failures.
const (
	DescPromptMissing    = "Prompt missing"
	DescMaxRetries       = "Max retries reached"
	DescInvalidJSON      = "Invalid JSON"
	DescNoMessageContent = "No message content"
	DescRunFailedPrefix  = "Run failed: "
	DescUpstreamPrefix   = "Upstream error: "
	DescCredentials      = "Credentials unavailable"
	DescAborted          = "Run aborted"
	DescInternal         = "Internal error"
)

// RequesterContext carries the per-batch context an item is scored under.
type RequesterContext struct {
	SubscriptionID string
	CampaignID     string
	SystemPrompt   string
}

// WorkItem is the immutable input unit of a batch, one per lead. A Malformed
// item came from a lead record that did not decode; it always fails with
// DescInvalidJSON.
type WorkItem struct {
	ID         string
	PromptText string
	Context    RequesterContext
	Malformed  bool
}

// ItemOutcome is the normalized result of one WorkItem. Exactly one outcome
// is produced per item whatever the failure path.
type ItemOutcome struct {
	ItemID      string `json:"itemId"`
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Score       string `json:"score"`
	Category    string `json:"category"`
}

// Succeeded builds a success outcome, substituting placeholders for empty fields.
func Succeeded(itemID, description, score, category string) ItemOutcome {
	if description == "" {
		description = PlaceholderDescription
	}
	if score == "" {
		score = PlaceholderScore
	}
	if category == "" {
		category = PlaceholderCategory
	}
	return ItemOutcome{
		ItemID:      itemID,
		Success:     true,
		Description: description,
		Score:       score,
		Category:    category,
	}
}

// Failed builds a failure outcome with "N/A" score and category.
func Failed(itemID, description string) ItemOutcome {
	return ItemOutcome{
		ItemID:      itemID,
		Success:     false,
		Description: description,
		Score:       NotAvailable,
		Category:    NotAvailable,
	}
}

// BatchAggregate is the ordered collection of outcomes of one batch.
// Items[i] is the outcome of the i-th submitted WorkItem.
type BatchAggregate struct {
	BatchID          string        `json:"batchId"`
	CorrelationToken string        `json:"-"`
	SubscriptionID   string        `json:"subscriptionId"`
	CampaignID       string        `json:"campaignId"`
	Items            []ItemOutcome `json:"items"`
	// Incomplete marks a degenerate aggregate produced after a catastrophic
	// join failure. Items is empty in that case.
	Incomplete  bool      `json:"incomplete"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// Succeeded counts successful outcomes.
func (a *BatchAggregate) Succeeded() int {
	n := 0
	for _, it := range a.Items {
		if it.Success {
			n++
		}
	}
	return n
}

// Failed counts failed outcomes.
func (a *BatchAggregate) Failed() int {
	return len(a.Items) - a.Succeeded()
}

// Duration is the wall time between start and completion.
func (a *BatchAggregate) Duration() time.Duration {
	if a.CompletedAt.IsZero() {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt)
}

//Personal.AI order the ending
