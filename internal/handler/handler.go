package handler

import (
	"context"
	"time"

	"trainingbot/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// EventHandler processes one normalized event and yields a renderable
// response
type EventHandler interface {
	Handle(ctx context.Context, sender domain.Sender, ev domain.Event) (domain.Response, error)
}

// Handler bridges telebot updates and the event dispatcher. It only
// normalizes updates and renders responses; all conversation logic lives
// behind the dispatcher.
type Handler struct {
	bot        *tele.Bot
	dispatcher EventHandler
	timeout    time.Duration
	logger     *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(bot *tele.Bot, dispatcher EventHandler, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Handler{
		bot:        bot,
		dispatcher: dispatcher,
		timeout:    timeout,
		logger:     logger,
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/menu", h.handleMenu)
	h.bot.Handle("/admin", h.handleAdmin)

	// Text messages
	h.bot.Handle(tele.OnText, h.handleText)

	// Callback queries (inline buttons)
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

func (h *Handler) handleStart(c tele.Context) error {
	return h.dispatch(c, domain.Event{Kind: domain.EventStart})
}

func (h *Handler) handleMenu(c tele.Context) error {
	return h.dispatch(c, domain.Event{Kind: domain.EventText, Text: "/menu"})
}

func (h *Handler) handleAdmin(c tele.Context) error {
	return h.dispatch(c, domain.Event{Kind: domain.EventText, Text: "/admin"})
}

func (h *Handler) handleText(c tele.Context) error {
	return h.dispatch(c, domain.Event{Kind: domain.EventText, Text: c.Text()})
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	token := cleanCallbackData(callback.Unique)
	if token == "" {
		token = cleanCallbackData(callback.Data)
	}
	if token == "" {
		h.logger.Warn("Empty callback token", zap.Int64("user_id", c.Sender().ID))
		return c.Respond()
	}

	return h.dispatch(c, domain.Event{Kind: domain.EventCallback, Token: token})
}

// dispatch runs the event through the dispatcher and renders the outcome
func (h *Handler) dispatch(c tele.Context, ev domain.Event) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	// Dispatcher failures still come back with a usable retry response,
	// so the error is only logged here.
	resp, err := h.dispatcher.Handle(ctx, domain.Sender{
		ID:           sender.ID,
		Username:     sender.Username,
		FirstName:    sender.FirstName,
		LastName:     sender.LastName,
		LanguageCode: sender.LanguageCode,
	}, ev)
	if err != nil {
		h.logger.Debug("Dispatcher returned error", zap.Int64("user_id", sender.ID), zap.Error(err))
	}

	return h.send(c, resp)
}

// send renders a response, editing in place for callbacks when possible
func (h *Handler) send(c tele.Context, resp domain.Response) error {
	if resp.Text == "" {
		if c.Callback() != nil {
			return c.Respond()
		}
		return nil
	}

	if resp.Alert && c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: resp.Text, ShowAlert: true})
	}

	markup := renderMarkup(resp.Buttons)

	if c.Callback() != nil {
		if err := h.edit(c, resp.Text, markup); err != nil {
			return h.sendNew(c, resp.Text, markup)
		}
		return c.Respond()
	}
	return h.sendNew(c, resp.Text, markup)
}

func (h *Handler) sendNew(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup != nil {
		return c.Send(text, markup)
	}
	return c.Send(text)
}

func (h *Handler) edit(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	var err error
	if markup != nil {
		err = c.Edit(text, markup)
	} else {
		err = c.Edit(text)
	}
	return h.handleEditError(err, c)
}

// renderMarkup converts abstract button rows into an inline keyboard
func renderMarkup(rows [][]domain.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	teleRows := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		teleRow := make(tele.Row, 0, len(row))
		for _, b := range row {
			teleRow = append(teleRow, markup.Data(b.Label, b.Token))
		}
		teleRows = append(teleRows, teleRow)
	}
	markup.Inline(teleRows...)
	return markup
}
