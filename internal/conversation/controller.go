// Package conversation implements the operator's guided item-authoring flow.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/user/vendbot/internal/types"
)

// Prompts sent to the operator.
const (
	PromptType         = "What type of item is this? Reply with video or link."
	PromptTypeRetry    = "Please reply with either video or link."
	PromptVideo        = "Send the video now."
	PromptVideoRetry   = "Please send a video file."
	PromptLink         = "Send the link now."
	PromptLinkRetry    = "Please send the link as text."
	PromptLabel        = "Send the button name for this item."
	PromptLabelRetry   = "The button name cannot be empty. Send the button name."
	PromptPrice        = "Send the price in rupees (whole number)."
	PromptPriceRetry   = "Please send a valid price in rupees, e.g. 299."
	MessageCancelled   = "Item creation cancelled."
	MessageNothing     = "Nothing to cancel."
	MessageStoreFailed = "Could not save the item, please send the price again."
)

// Controller drives one authoring session per operator. Calls for the same
// actor must not run concurrently; the chat adapter serializes them.
type Controller struct {
	operator types.ActorID
	sessions types.SessionStore
	catalog  types.CatalogStore
	notifier types.Notifier
	now      func() time.Time
}

// New creates a Controller that accepts authoring input from operator only.
func New(operator types.ActorID, sessions types.SessionStore, catalog types.CatalogStore, notifier types.Notifier) *Controller {
	return &Controller{
		operator: operator,
		sessions: sessions,
		catalog:  catalog,
		notifier: notifier,
		now:      time.Now,
	}
}

// IsOperator reports whether actor may author items.
func (c *Controller) IsOperator(actor types.ActorID) bool {
	return actor == c.operator
}

// Begin starts a new session for the operator, replacing any in progress.
// Other actors are ignored.
func (c *Controller) Begin(ctx context.Context, actor types.ActorID) error {
	if !c.IsOperator(actor) {
		return nil
	}
	session := &types.Session{
		ActorID:   actor,
		Stage:     types.StageAwaitingType,
		StartedAt: c.now(),
	}
	if err := c.sessions.Set(ctx, session); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	return c.notifier.SendText(ctx, actor, PromptType)
}

// Cancel discards the operator's session, if any.
func (c *Controller) Cancel(ctx context.Context, actor types.ActorID) error {
	if !c.IsOperator(actor) {
		return nil
	}
	_, ok, err := c.sessions.Get(ctx, actor)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return c.notifier.SendText(ctx, actor, MessageNothing)
	}
	if err := c.sessions.Delete(ctx, actor); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return c.notifier.SendText(ctx, actor, MessageCancelled)
}

// InSession reports whether actor has an authoring session in progress.
func (c *Controller) InSession(ctx context.Context, actor types.ActorID) (bool, error) {
	if !c.IsOperator(actor) {
		return false, nil
	}
	_, ok, err := c.sessions.Get(ctx, actor)
	return ok, err
}

// OnActorMessage advances the actor's session by one turn. Messages from
// non-operators or from actors without a session are ignored. Every handled
// turn sends exactly one message back to the actor.
func (c *Controller) OnActorMessage(ctx context.Context, msg types.ActorMessage) error {
	if !c.IsOperator(msg.ActorID) {
		return nil
	}
	session, ok, err := c.sessions.Get(ctx, msg.ActorID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return nil
	}

	switch session.Stage {
	case types.StageAwaitingType:
		return c.onType(ctx, session, msg)
	case types.StageAwaitingContent:
		return c.onContent(ctx, session, msg)
	case types.StageAwaitingLabel:
		return c.onLabel(ctx, session, msg)
	case types.StageAwaitingPrice:
		return c.onPrice(ctx, session, msg)
	}

	slog.Warn("session in unknown stage, restarting", "actor_id", msg.ActorID, "stage", session.Stage)
	return c.Begin(ctx, msg.ActorID)
}

func (c *Controller) onType(ctx context.Context, session *types.Session, msg types.ActorMessage) error {
	ct, ok := types.ParseContentType(msg.Text)
	if msg.Kind != types.MessageText || !ok {
		return c.reply(ctx, session.ActorID, PromptTypeRetry)
	}
	session.Draft.ContentType = ct
	session.Stage = types.StageAwaitingContent
	if err := c.sessions.Set(ctx, session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if ct == types.ContentVideo {
		return c.reply(ctx, session.ActorID, PromptVideo)
	}
	return c.reply(ctx, session.ActorID, PromptLink)
}

func (c *Controller) onContent(ctx context.Context, session *types.Session, msg types.ActorMessage) error {
	switch session.Draft.ContentType {
	case types.ContentVideo:
		if msg.Kind != types.MessageVideo || msg.VideoFileID == "" {
			return c.reply(ctx, session.ActorID, PromptVideoRetry)
		}
		session.Draft.FileID = msg.VideoFileID
	case types.ContentLink:
		url := strings.TrimSpace(msg.Text)
		if msg.Kind != types.MessageText || url == "" {
			return c.reply(ctx, session.ActorID, PromptLinkRetry)
		}
		session.Draft.URL = url
	default:
		slog.Warn("draft without content type, restarting", "actor_id", session.ActorID)
		return c.Begin(ctx, session.ActorID)
	}

	session.Stage = types.StageAwaitingLabel
	if err := c.sessions.Set(ctx, session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return c.reply(ctx, session.ActorID, PromptLabel)
}

func (c *Controller) onLabel(ctx context.Context, session *types.Session, msg types.ActorMessage) error {
	label := strings.TrimSpace(msg.Text)
	if msg.Kind != types.MessageText || label == "" {
		return c.reply(ctx, session.ActorID, PromptLabelRetry)
	}
	session.Draft.Label = label
	session.Stage = types.StageAwaitingPrice
	if err := c.sessions.Set(ctx, session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return c.reply(ctx, session.ActorID, PromptPrice)
}

func (c *Controller) onPrice(ctx context.Context, session *types.Session, msg types.ActorMessage) error {
	priceMinor, ok := parsePrice(msg.Text)
	if msg.Kind != types.MessageText || !ok {
		return c.reply(ctx, session.ActorID, PromptPriceRetry)
	}

	item, err := types.NewItem(session.Draft.Label, session.Draft.Payload(), priceMinor)
	if err != nil {
		slog.Error("draft failed validation, restarting", "actor_id", session.ActorID, "error", err)
		return c.Begin(ctx, session.ActorID)
	}

	id, err := c.catalog.Create(ctx, item)
	if err != nil {
		slog.Error("failed to store item", "actor_id", session.ActorID, "label", item.Label, "error", err)
		return c.reply(ctx, session.ActorID, MessageStoreFailed)
	}

	if err := c.sessions.Delete(ctx, session.ActorID); err != nil {
		slog.Warn("failed to delete finished session", "actor_id", session.ActorID, "error", err)
	}
	slog.Info("item created", "item_id", id, "label", item.Label, "content_type", item.ContentType(), "price_minor", item.PriceMinor)

	return c.reply(ctx, session.ActorID, summary(item))
}

func (c *Controller) reply(ctx context.Context, to types.ActorID, text string) error {
	if err := c.notifier.SendText(ctx, to, text); err != nil {
		return fmt.Errorf("replying to %s: %w", to, err)
	}
	return nil
}

// parsePrice parses whole rupees and returns paise. Zero, negative and
// values that overflow when scaled are rejected.
func parsePrice(text string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt64/100 {
		return 0, false
	}
	return n * 100, true
}

func summary(item *types.Item) string {
	return fmt.Sprintf("Item saved ✅\n\nName: %s\nType: %s\nPrice: %s",
		item.Label, item.ContentType(), types.FormatRupees(item.PriceMinor))
}
