package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/vendbot/internal/dispatch"
	"github.com/user/vendbot/internal/state"
	"github.com/user/vendbot/internal/types"
)

const maxTelegramMessage = 4096

// Replies shown to buyers.
const (
	MessageWelcome     = "Hello! What would you like? Pick an item below 👇"
	MessageNoItems     = "No items are available right now."
	MessageNotFound    = "Item not found."
	MessageUnavailable = "Payment service is unavailable, please try again later."
	MessagePreparing   = "Creating your payment link…"
	captionScanToPay   = "Scan to pay"
)

var _ types.Notifier = (*Adapter)(nil)

var buyPattern = regexp.MustCompile(`^buy_(\d+)$`)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Authoring is the operator's item-creation flow.
type Authoring interface {
	IsOperator(actor types.ActorID) bool
	Begin(ctx context.Context, actor types.ActorID) error
	Cancel(ctx context.Context, actor types.ActorID) error
	OnActorMessage(ctx context.Context, msg types.ActorMessage) error
}

// Acquirer creates a payable artifact for a buyer.
type Acquirer interface {
	CreatePayable(ctx context.Context, item *types.Item, buyer types.ActorID) (*types.PaymentArtifact, error)
}

// Handlers are the domain services updates are routed to.
type Handlers struct {
	Authoring Authoring
	Catalog   types.CatalogStore
	Acquirer  Acquirer
}

// Adapter bridges Telegram to the store. It also implements types.Notifier
// so other components can message chat actors.
type Adapter struct {
	bot      botAPI
	queue    *dispatch.Queue[tgbotapi.Update]
	handlers Handlers
}

// New creates a Telegram adapter. Updates from one actor are processed in
// order; up to maxConcurrent actors are served at once.
func New(token string, maxConcurrent int64) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return newAdapter(bot, maxConcurrent), nil
}

func newAdapter(bot botAPI, maxConcurrent int64) *Adapter {
	a := &Adapter{
		bot:   bot,
		queue: dispatch.NewQueue[tgbotapi.Update]("telegram", maxConcurrent),
	}
	a.queue.SetProcessor(a.handleUpdate)
	return a
}

// SetHandlers wires the domain services. Must be called before Start.
func (a *Adapter) SetHandlers(h Handlers) {
	a.handlers = h
}

// Start long-polls for updates until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	a.queue.Start(ctx)
	defer a.queue.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			actor, ok := updateActor(update)
			if !ok {
				continue
			}
			if err := a.queue.Enqueue("actor:"+actor.String(), update); err != nil {
				slog.Warn("dropping telegram update", "actor_id", actor, "error", err)
			}
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func updateActor(update tgbotapi.Update) (types.ActorID, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return types.ActorID(update.CallbackQuery.From.ID), true
	case update.Message != nil && update.Message.From != nil:
		return types.ActorID(update.Message.From.ID), true
	}
	return 0, false
}

func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return a.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message != nil {
		return a.handleMessage(ctx, update.Message)
	}
	return nil
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	actor := types.ActorID(msg.From.ID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return a.sendCatalog(ctx, msg.Chat.ID)
		case "add":
			if a.handlers.Authoring != nil {
				return a.handlers.Authoring.Begin(ctx, actor)
			}
			return nil
		case "cancel":
			if a.handlers.Authoring != nil {
				return a.handlers.Authoring.Cancel(ctx, actor)
			}
			return nil
		}
	}

	if a.handlers.Authoring == nil || !a.handlers.Authoring.IsOperator(actor) {
		return nil
	}
	return a.handlers.Authoring.OnActorMessage(ctx, toActorMessage(msg))
}

func toActorMessage(msg *tgbotapi.Message) types.ActorMessage {
	am := types.ActorMessage{ActorID: types.ActorID(msg.From.ID), Kind: types.MessageOther}
	switch {
	case msg.Video != nil:
		am.Kind = types.MessageVideo
		am.VideoFileID = msg.Video.FileID
	case msg.Text != "":
		am.Kind = types.MessageText
		am.Text = msg.Text
	}
	return am
}

func (a *Adapter) sendCatalog(ctx context.Context, chatID int64) error {
	items, err := a.handlers.Catalog.List(ctx)
	if err != nil {
		a.sendText(chatID, MessageUnavailable)
		return fmt.Errorf("listing items: %w", err)
	}
	if len(items) == 0 {
		a.sendText(chatID, MessageNoItems)
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items))
	for _, it := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonText(it), "buy_"+it.ID.String()),
		))
	}
	out := tgbotapi.NewMessage(chatID, MessageWelcome)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := a.bot.Send(out); err != nil {
		return fmt.Errorf("sending catalog: %w", err)
	}
	return nil
}

func buttonText(it types.ItemSummary) string {
	return fmt.Sprintf("%s - %s", it.Label, types.FormatRupees(it.PriceMinor))
}

// parseBuyToken extracts the item id from callback data of the form buy_<id>.
func parseBuyToken(data string) (types.ItemID, bool) {
	m := buyPattern.FindStringSubmatch(data)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return types.ItemID(n), true
}

func (a *Adapter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	buyer := types.ActorID(cb.From.ID)
	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	itemID, ok := parseBuyToken(cb.Data)
	if !ok {
		a.answer(cb.ID, MessageNotFound, true)
		return nil
	}

	item, err := a.handlers.Catalog.Get(ctx, itemID)
	if errors.Is(err, state.ErrNotFound) {
		a.answer(cb.ID, MessageNotFound, true)
		return nil
	}
	if err != nil {
		a.answer(cb.ID, "", false)
		a.sendText(chatID, MessageUnavailable)
		return fmt.Errorf("loading item %s: %w", itemID, err)
	}

	// Link and code creation can outlast Telegram's callback window.
	a.answer(cb.ID, MessagePreparing, false)

	artifact, err := a.handlers.Acquirer.CreatePayable(ctx, item, buyer)
	if err != nil {
		a.sendText(chatID, MessageUnavailable)
		return fmt.Errorf("creating payable for item %s: %w", itemID, err)
	}

	a.sendText(chatID, paymentText(item, artifact))
	if artifact.VisualCode != nil {
		if err := a.sendPhoto(chatID, artifact.VisualCode, captionScanToPay); err != nil {
			slog.Warn("sending payment code failed, link only", "link_id", artifact.LinkID, "source", artifact.VisualCode.Source, "error", err)
		}
	}
	return nil
}

func paymentText(item *types.Item, artifact *types.PaymentArtifact) string {
	return fmt.Sprintf("Payment Details:\n\nItem: %s\nAmount: %s\n\nPayment link: %s\n\nYou will receive the content here once the payment is complete ✅",
		item.Label, types.FormatRupees(item.PriceMinor), artifact.ShortURL)
}

func (a *Adapter) answer(callbackID, text string, alert bool) {
	var cfg tgbotapi.CallbackConfig
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	} else {
		cfg = tgbotapi.NewCallback(callbackID, text)
	}
	if _, err := a.bot.Request(cfg); err != nil {
		slog.Warn("answer callback failed", "error", err)
	}
}

func (a *Adapter) sendText(chatID int64, text string) error {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := a.bot.Send(msg); err != nil {
			slog.Error("send message failed", "chat_id", chatID, "error", err)
			return err
		}
	}
	return nil
}

func (a *Adapter) sendPhoto(chatID int64, code *types.VisualCode, caption string) error {
	var file tgbotapi.RequestFileData
	switch {
	case len(code.Bytes) > 0:
		file = tgbotapi.FileBytes{Name: "payment-code.png", Bytes: code.Bytes}
	case code.URL != "":
		file = tgbotapi.FileURL(code.URL)
	default:
		return errors.New("visual code has neither bytes nor url")
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = caption
	_, err := a.bot.Send(photo)
	return err
}

// SendText implements types.Notifier.
func (a *Adapter) SendText(_ context.Context, to types.ActorID, text string) error {
	return a.sendText(int64(to), text)
}

// SendVideo implements types.Notifier.
func (a *Adapter) SendVideo(_ context.Context, to types.ActorID, fileID, caption string) error {
	video := tgbotapi.NewVideo(int64(to), tgbotapi.FileID(fileID))
	video.Caption = caption
	if _, err := a.bot.Send(video); err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}

// SendPhoto implements types.Notifier.
func (a *Adapter) SendPhoto(_ context.Context, to types.ActorID, code *types.VisualCode, caption string) error {
	if err := a.sendPhoto(int64(to), code, caption); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end >= len(text) {
			end = len(text)
		} else {
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
