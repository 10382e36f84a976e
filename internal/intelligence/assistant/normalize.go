package assistant

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/pkg/errors"
)

// Keys of the JSON object the assistant is instructed to reply with.
const (
	KeyDescription = "AI Description"
	KeyScore       = "AI Score"
	KeyCategory    = "AI Category"
)

// Classify maps a terminal RunResult to the outcome reported for itemID.
// It has no side effects.
func Classify(itemID string, res RunResult) scoring.ItemOutcome {
	switch res.State {
	case StateCompleted:
		outcome, err := NormalizeReply(itemID, res.Content)
		if err != nil {
			return scoring.Failed(itemID, scoring.DescInvalidJSON)
		}
		return outcome
	case StateExpired:
		return scoring.Failed(itemID, scoring.DescMaxRetries)
	}

	switch res.Reason {
	case ReasonPromptMissing:
		return scoring.Failed(itemID, scoring.DescPromptMissing)
	case ReasonMalformedInput:
		return scoring.Failed(itemID, scoring.DescInvalidJSON)
	case ReasonRemoteStatus:
		return scoring.Failed(itemID, scoring.DescRunFailedPrefix+string(res.RemoteStatus))
	case ReasonNoContent:
		return scoring.Failed(itemID, scoring.DescNoMessageContent)
	case ReasonCredentials:
		return scoring.Failed(itemID, scoring.DescCredentials)
	case ReasonCreateThread, ReasonPostMessage, ReasonStartRun, ReasonPoll, ReasonFetch:
		return scoring.Failed(itemID, scoring.DescUpstreamPrefix+strings.ReplaceAll(res.Reason.String(), "_", " "))
	case ReasonExhausted:
		return scoring.Failed(itemID, scoring.DescMaxRetries)
	case ReasonAborted:
		return scoring.Failed(itemID, scoring.DescAborted)
	default:
		return scoring.Failed(itemID, scoring.DescInternal)
	}
}

// NormalizeReply parses an assistant reply into a success outcome. The reply
// must be a JSON object. Absent fields and falsy values (null, false, 0, "")
// take the placeholder values; other non-string values are rendered as their
// JSON text.
func NormalizeReply(itemID, content string) (scoring.ItemOutcome, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return scoring.ItemOutcome{}, errors.ParseError("assistant reply is not a JSON object", err)
	}
	if fields == nil {
		return scoring.ItemOutcome{}, errors.ParseError("assistant reply is null", nil)
	}
	if dec.More() {
		return scoring.ItemOutcome{}, errors.ParseError("assistant reply has trailing data", nil)
	}

	return scoring.Succeeded(itemID,
		fieldText(fields[KeyDescription]),
		fieldText(fields[KeyScore]),
		fieldText(fields[KeyCategory]),
	), nil
}

// fieldText renders a decoded JSON value as text. Falsy values render as the
// empty string so the caller substitutes a placeholder.
func fieldText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	case bool:
		if !t {
			return ""
		}
		return strconv.FormatBool(t)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return ""
		}
		return strings.TrimSpace(buf.String())
	}
}

//Personal.AI order the ending
