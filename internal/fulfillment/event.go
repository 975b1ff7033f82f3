package fulfillment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/vendbot/internal/payment"
	"github.com/user/vendbot/internal/types"
)

// EventLinkPaid is the only event kind that triggers fulfillment.
const EventLinkPaid = "payment_link.paid"

// Event is the subset of a gateway notification the dispatcher reads.
type Event struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity LinkEntity `json:"entity"`
		} `json:"payment_link"`
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// LinkEntity is the payment link inside a notification. Notes is kept raw
// because the gateway sends an empty array when no notes were set.
type LinkEntity struct {
	ID     string          `json:"id"`
	Amount int64           `json:"amount"`
	Status string          `json:"status"`
	Notes  json.RawMessage `json:"notes"`
}

type PaymentEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// ParseEvent decodes a verified notification body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("parsing event: %w", err)
	}
	return &ev, nil
}

// Correlation returns the buyer and item carried in the link notes.
func (l LinkEntity) Correlation() (types.ActorID, types.ItemID, error) {
	notes, err := decodeNotes(l.Notes)
	if err != nil {
		return 0, 0, err
	}
	buyerRaw, ok := notes[payment.NoteBuyer]
	if !ok {
		return 0, 0, fmt.Errorf("notes missing %s", payment.NoteBuyer)
	}
	itemRaw, ok := notes[payment.NoteItem]
	if !ok {
		return 0, 0, fmt.Errorf("notes missing %s", payment.NoteItem)
	}
	buyer, err := types.ParseActorID(buyerRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %s %q: %w", payment.NoteBuyer, buyerRaw, err)
	}
	item, err := types.ParseItemID(itemRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %s %q: %w", payment.NoteItem, itemRaw, err)
	}
	return buyer, item, nil
}

// decodeNotes flattens note values to strings. Numbers are accepted since
// some integrations send ids unquoted.
func decodeNotes(raw json.RawMessage) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" {
		return map[string]string{}, nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parsing notes: %w", err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			out[k] = strings.TrimSpace(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}
