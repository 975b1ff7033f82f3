// internal/types/models.go
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentType tags the payload variant of an Item.
type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentLink  ContentType = "link"
)

// ParseContentType accepts "video" or "link", case-insensitively.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentVideo:
		return ContentVideo, true
	case ContentLink:
		return ContentLink, true
	}
	return "", false
}

// Payload is the content sold by an Item. Exactly one of VideoPayload or
// LinkPayload.
type Payload interface {
	ContentType() ContentType
	validate() error
}

// VideoPayload references a video already stored by the chat transport.
type VideoPayload struct {
	FileID string `json:"file_id"`
}

// LinkPayload is a URL handed to the buyer as text.
type LinkPayload struct {
	URL string `json:"url"`
}

func (VideoPayload) ContentType() ContentType { return ContentVideo }
func (LinkPayload) ContentType() ContentType  { return ContentLink }

func (p VideoPayload) validate() error {
	if p.FileID == "" {
		return errors.New("video payload requires a file id")
	}
	return nil
}

func (p LinkPayload) validate() error {
	if p.URL == "" {
		return errors.New("link payload requires a url")
	}
	return nil
}

// Item is a sellable unit. Items are created once and never updated.
type Item struct {
	ID         ItemID
	Label      string
	Payload    Payload
	PriceMinor int64
}

// ContentType reports the tag of the item's payload variant.
func (i *Item) ContentType() ContentType {
	if i.Payload == nil {
		return ""
	}
	return i.Payload.ContentType()
}

// NewItem validates the fields of a new item. The id is left zero for the
// store to assign.
func NewItem(label string, payload Payload, priceMinor int64) (*Item, error) {
	if strings.TrimSpace(label) == "" {
		return nil, errors.New("label must not be empty")
	}
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	if priceMinor <= 0 {
		return nil, fmt.Errorf("price must be positive, got %d", priceMinor)
	}
	return &Item{Label: label, Payload: payload, PriceMinor: priceMinor}, nil
}

// ItemSummary is the listing projection of an Item.
type ItemSummary struct {
	ID         ItemID `json:"id"`
	Label      string `json:"label"`
	PriceMinor int64  `json:"price_minor"`
}

// FormatRupees renders an amount in paise as whole rupees, e.g. "₹299".
func FormatRupees(minor int64) string {
	return fmt.Sprintf("₹%d", minor/100)
}

// Stage is the state of an authoring session.
type Stage string

const (
	StageAwaitingType    Stage = "awaiting_type"
	StageAwaitingContent Stage = "awaiting_content"
	StageAwaitingLabel   Stage = "awaiting_label"
	StageAwaitingPrice   Stage = "awaiting_price"
)

// Draft accumulates item fields across authoring stages.
type Draft struct {
	ContentType ContentType `json:"content_type,omitempty"`
	FileID      string      `json:"file_id,omitempty"`
	URL         string      `json:"url,omitempty"`
	Label       string      `json:"label,omitempty"`
}

// Payload returns the variant selected by the draft's content type.
func (d Draft) Payload() Payload {
	switch d.ContentType {
	case ContentVideo:
		return VideoPayload{FileID: d.FileID}
	case ContentLink:
		return LinkPayload{URL: d.URL}
	}
	return nil
}

// Session is the ephemeral authoring state of one actor.
type Session struct {
	ActorID   ActorID   `json:"actor_id"`
	Stage     Stage     `json:"stage"`
	Draft     Draft     `json:"draft"`
	StartedAt time.Time `json:"started_at"`
}

// MessageKind classifies an inbound chat message.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageVideo MessageKind = "video"
	MessageOther MessageKind = "other"
)

// ActorMessage is a transport-neutral inbound chat message.
type ActorMessage struct {
	ActorID ActorID
	Kind    MessageKind
	Text    string
	// VideoFileID is set when Kind is MessageVideo.
	VideoFileID string
}

// VisualCode is a scannable payment code: inline image bytes or a remote URL.
type VisualCode struct {
	Bytes  []byte
	URL    string
	Source string
}

// PaymentArtifact is the payable object handed to a buyer.
type PaymentArtifact struct {
	LinkID     LinkID
	ShortURL   string
	VisualCode *VisualCode
}

// Sale records one fulfilled payment, keyed by payment link id.
type Sale struct {
	LinkID      LinkID    `json:"link_id"`
	PaymentID   string    `json:"payment_id,omitempty"`
	BuyerID     ActorID   `json:"buyer_id"`
	ItemID      ItemID    `json:"item_id"`
	AmountMinor int64     `json:"amount_minor"`
	CreatedAt   time.Time `json:"created_at"`
}

// SalesSummary aggregates sales over a window.
type SalesSummary struct {
	Count      int64
	TotalMinor int64
}
