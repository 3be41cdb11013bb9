package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const invoiceDataType = "subscription-invoices"

// DecodeEvent parses a verified webhook body. Only a non-object body or a
// missing meta.event_name fail; every other attribute decodes to nil when it
// is absent, null or of an unexpected JSON type.
func DecodeEvent(payload []byte) (*Event, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformedPayload)
	}

	var meta struct {
		EventName  json.RawMessage `json:"event_name"`
		TestMode   json.RawMessage `json:"test_mode"`
		CustomData json.RawMessage `json:"custom_data"`
	}
	_ = decodeObject(root["meta"], &meta)

	name := rawText(meta.EventName)
	if name == nil {
		return nil, fmt.Errorf("%w: meta.event_name is missing", ErrMalformedPayload)
	}

	out := &Event{
		EventName: EventName(strings.ToLower(*name)),
		TestMode:  rawBool(meta.TestMode),
	}

	var custom struct {
		UserID json.RawMessage `json:"user_id"`
	}
	if decodeObject(meta.CustomData, &custom) {
		out.AccountID = rawString(custom.UserID)
	}

	var data struct {
		ID         json.RawMessage `json:"id"`
		Type       json.RawMessage `json:"type"`
		Attributes json.RawMessage `json:"attributes"`
	}
	if !decodeObject(root["data"], &data) {
		return out, nil
	}
	out.DataType = derefString(rawString(data.Type))
	out.SubscriptionID = rawString(data.ID)

	var attrs struct {
		VariantID      json.RawMessage `json:"variant_id"`
		SubscriptionID json.RawMessage `json:"subscription_id"`
		Status         json.RawMessage `json:"status"`
		EndsAt         json.RawMessage `json:"ends_at"`
		RenewsAt       json.RawMessage `json:"renews_at"`
	}
	if !decodeObject(data.Attributes, &attrs) {
		return out, nil
	}

	// Invoice payloads carry the invoice id in data.id.
	if out.DataType == invoiceDataType {
		if subID := rawString(attrs.SubscriptionID); subID != nil {
			out.SubscriptionID = subID
		}
	}
	out.VariantID = rawString(attrs.VariantID)
	if status := rawString(attrs.Status); status != nil {
		out.ProviderStatus = stringPtr(strings.ToLower(*status))
	}
	out.EndsAt = rawTime(attrs.EndsAt)
	out.RenewsAt = rawTime(attrs.RenewsAt)

	return out, nil
}

// ExpiryHint returns ends_at when known, otherwise renews_at.
func (e *Event) ExpiryHint() *time.Time {
	if e.EndsAt != nil {
		return e.EndsAt
	}
	return e.RenewsAt
}

func decodeObject(raw json.RawMessage, dst interface{}) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// rawString accepts a JSON string or number and returns it trimmed.
// Blank strings, null and other types yield nil.
func rawString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var s string
	switch {
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		s = n.String()
	default:
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// rawText is rawString restricted to JSON strings.
func rawText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil
	}
	return rawString(raw)
}

func rawBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func rawTime(raw json.RawMessage) *time.Time {
	s := rawString(raw)
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
