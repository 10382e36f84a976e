package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/turtacn/leadscore/pkg/errors"
)

// BlobLocation identifies a batch document in the object store.
type BlobLocation struct {
	Bucket   string `json:"bucketName"`
	Filename string `json:"filename"`
}

// Validate checks that both coordinates are present.
func (l BlobLocation) Validate() error {
	if strings.TrimSpace(l.Bucket) == "" {
		return errors.InputError("bucketName is required")
	}
	if strings.TrimSpace(l.Filename) == "" {
		return errors.InputError("filename is required")
	}
	return nil
}

// FlexString decodes a JSON string or number into a string. Marketo sends
// lead ids and campaign ids as numbers or strings depending on the flow.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the underlying string.
func (f FlexString) String() string { return string(f) }

// BatchDocument is the JSON document a submission points at.
type BatchDocument struct {
	Token          string          `json:"token"`
	APICallbackKey string          `json:"apiCallBackKey"`
	CampaignID     FlexString      `json:"campaignId"`
	CallbackURL    string          `json:"callbackUrl"`
	Context        DocumentContext `json:"context"`
	ObjectData     ObjectData      `json:"objectData"`
}

// DocumentContext is the requester context block of a batch document.
type DocumentContext struct {
	Subscription struct {
		MunchkinID FlexString `json:"munchkinId"`
	} `json:"subscription"`
	Admin struct {
		ChatGPTSystemPrompt string `json:"ChatGPTSystemPrompt"`
	} `json:"admin"`
}

// ObjectEntry is one lead record of a batch document. DecodeErr is set when
// the record could not be decoded; such a record still yields a WorkItem.
type ObjectEntry struct {
	Key             string          `json:"-"`
	ObjectContext   ObjectContext   `json:"objectContext"`
	FlowStepContext FlowStepContext `json:"flowStepContext"`
	DecodeErr       error           `json:"-"`
}

// ObjectContext carries the lead identity and its own prompt fragment.
type ObjectContext struct {
	ID     FlexString `json:"id"`
	Prompt FlexString `json:"Prompt"`
}

// FlowStepContext carries the flow-level prompt fragment.
type FlowStepContext struct {
	ChatGPTPrompt FlexString `json:"ChatGPTPrompt"`
}

// decodeEntry decodes one lead record. A record that does not decode keeps
// whatever id can be recovered from it and carries the error.
func decodeEntry(key string, raw json.RawMessage) ObjectEntry {
	var e ObjectEntry
	err := json.Unmarshal(raw, &e)
	if err == nil {
		e.Key = key
		return e
	}
	e = ObjectEntry{Key: key, DecodeErr: fmt.Errorf("objectData[%q]: %w", key, err)}

	var loose struct {
		ObjectContext struct {
			ID json.RawMessage `json:"id"`
		} `json:"objectContext"`
	}
	if json.Unmarshal(raw, &loose) == nil && len(loose.ObjectContext.ID) > 0 {
		var id FlexString
		if id.UnmarshalJSON(loose.ObjectContext.ID) == nil {
			e.ObjectContext.ID = id
		}
	}
	return e
}

// ObjectData is the ordered list of lead records. It decodes from either a
// JSON object (keys kept in document order) or a JSON array.
type ObjectData []ObjectEntry

// UnmarshalJSON implements json.Unmarshaler.
func (d *ObjectData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = nil
		return nil
	}

	switch b[0] {
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(b, &raws); err != nil {
			return err
		}
		entries := make([]ObjectEntry, 0, len(raws))
		for i, raw := range raws {
			entries = append(entries, decodeEntry(fmt.Sprintf("%d", i), raw))
		}
		*d = entries
		return nil
	case '{':
		return d.decodeOrdered(b)
	default:
		return fmt.Errorf("objectData must be an object or an array")
	}
}

func (d *ObjectData) decodeOrdered(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}

	var entries []ObjectEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("objectData: unexpected key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("objectData[%q]: %w", key, err)
		}
		entries = append(entries, decodeEntry(key, raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = entries
	return nil
}

// ParseBatchDocument decodes raw document bytes.
func ParseBatchDocument(data []byte) (*BatchDocument, error) {
	var doc BatchDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "batch document is not valid JSON")
	}
	return &doc, nil
}

// Validate checks the fields the pipeline cannot do without.
func (d *BatchDocument) Validate() error {
	if strings.TrimSpace(d.CallbackURL) == "" {
		return errors.InputError("callbackUrl is required")
	}
	return nil
}

// SubscriptionID returns the subscription the batch belongs to.
func (d *BatchDocument) SubscriptionID() string {
	return d.Context.Subscription.MunchkinID.String()
}

// RequesterContext builds the context shared by every item of the batch.
func (d *BatchDocument) RequesterContext() RequesterContext {
	return RequesterContext{
		SubscriptionID: d.SubscriptionID(),
		CampaignID:     d.CampaignID.String(),
		SystemPrompt:   d.Context.Admin.ChatGPTSystemPrompt,
	}
}

// WorkItems turns the lead records into work items, in document order.
// An entry without an id falls back to its key. An entry that did not decode
// becomes a Malformed item.
func (d *BatchDocument) WorkItems() []WorkItem {
	rc := d.RequesterContext()
	items := make([]WorkItem, 0, len(d.ObjectData))
	for _, e := range d.ObjectData {
		id := e.ObjectContext.ID.String()
		if id == "" {
			id = e.Key
		}
		if e.DecodeErr != nil {
			items = append(items, WorkItem{ID: id, Context: rc, Malformed: true})
			continue
		}
		items = append(items, WorkItem{
			ID:         id,
			PromptText: ComposePrompt(e.FlowStepContext.ChatGPTPrompt.String(), e.ObjectContext.Prompt.String()),
			Context:    rc,
		})
	}
	return items
}

// ComposePrompt joins the flow prompt and the lead prompt with a newline and
// trims surrounding whitespace. Either part may be empty.
func ComposePrompt(flowPrompt, leadPrompt string) string {
	return strings.TrimSpace(flowPrompt + "\n" + leadPrompt)
}

//Personal.AI order the ending
