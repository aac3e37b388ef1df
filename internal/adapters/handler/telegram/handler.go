package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

// Sender is the part of the Bot API the handler talks to. *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	bot         Sender
	botUsername string
	plannings   ports.PlanningService
	options     ports.OptionService
	logger      *slog.Logger
}

func NewHandler(bot Sender, botUsername string, plannings ports.PlanningService, options ports.OptionService, logger *slog.Logger) *Handler {
	return &Handler{
		bot:         bot,
		botUsername: botUsername,
		plannings:   plannings,
		options:     options,
		logger:      logger,
	}
}

// HandleUpdate processes one update. Failures are reported to the user and
// logged, never returned.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.InlineQuery != nil:
		h.handleInlineQuery(ctx, update.InlineQuery)
	case update.CallbackQuery != nil:
		h.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		h.logger.Debug("ignoring update", "update_id", update.UpdateID)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	var err error
	if msg.IsCommand() {
		h.logger.Info("command received", "command", msg.Command(), "user_id", msg.From.ID)
		switch msg.Command() {
		case "start", "help":
			err = h.reply(msg.Chat.ID, helpAnswer)
		case "new":
			err = h.newPlanning(ctx, msg)
		case "plannings":
			err = h.listPlannings(ctx, msg)
		case "cancel":
			err = h.cancel(ctx, msg)
		case "done":
			err = h.done(ctx, msg)
		case "close":
			err = h.closePlanning(ctx, msg)
		default:
			err = h.reply(msg.Chat.ID, dontUnderstandAnswer)
		}
	} else {
		err = h.addOption(ctx, msg)
	}

	if err != nil {
		h.fail(msg.Chat.ID, err)
	}
}

func (h *Handler) newPlanning(ctx context.Context, msg *tgbotapi.Message) error {
	title := strings.TrimSpace(msg.CommandArguments())

	planning, err := h.plannings.Create(ctx, msg.From.ID, title)
	switch {
	case errors.Is(err, domain.ErrPlanningInProgress):
		return h.reply(msg.Chat.ID, newInProgressAnswer)
	case errors.Is(err, domain.ErrEmptyTitle):
		return h.reply(msg.Chat.ID, newUsageAnswer)
	case err != nil:
		return err
	}

	h.logger.Info("planning created", "planning_id", planning.ID(), "user_id", msg.From.ID)
	return h.reply(msg.Chat.ID, fmt.Sprintf(newAnswer, planning.Title()))
}

func (h *Handler) listPlannings(ctx context.Context, msg *tgbotapi.Message) error {
	plannings, err := h.plannings.FindByOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if len(plannings) == 0 {
		return h.reply(msg.Chat.ID, noPlanningsAnswer)
	}

	lines := make([]string, 0, len(plannings))
	for i, p := range plannings {
		lines = append(lines, p.ShortDescription(i))
	}
	return h.reply(msg.Chat.ID, fmt.Sprintf(planningsAnswer, len(plannings), strings.Join(lines, "\n")))
}

func (h *Handler) cancel(ctx context.Context, msg *tgbotapi.Message) error {
	current, err := h.plannings.FindUnderConstructionForOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return h.reply(msg.Chat.ID, noCurrentPlanningAnswer)
	}

	if err := h.plannings.Remove(ctx, current); err != nil {
		return err
	}

	h.logger.Info("planning canceled", "planning_id", current.ID(), "user_id", msg.From.ID)
	return h.reply(msg.Chat.ID, cancelAnswer)
}

func (h *Handler) done(ctx context.Context, msg *tgbotapi.Message) error {
	current, err := h.plannings.FindUnderConstructionForOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return h.reply(msg.Chat.ID, noCurrentPlanningAnswer)
	}

	options, err := h.plannings.Options(ctx, current)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return h.reply(msg.Chat.ID, doneNoOptionAnswer)
	}

	if err := h.plannings.Open(ctx, current); err != nil {
		return err
	}
	h.logger.Info("planning opened", "planning_id", current.ID(), "options", len(options))

	description, err := h.plannings.FullDescription(ctx, current)
	if err != nil {
		return err
	}
	if err := h.reply(msg.Chat.ID, description); err != nil {
		return err
	}

	answer := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(doneAnswer, h.botUsername))
	answer.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonSwitch(publishButton, current.InlineQueryID()),
		),
	)
	_, err = h.bot.Send(answer)
	return err
}

func (h *Handler) closePlanning(ctx context.Context, msg *tgbotapi.Message) error {
	position, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || position < 1 {
		return h.reply(msg.Chat.ID, closeUsageAnswer)
	}

	plannings, err := h.plannings.FindByOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if position > len(plannings) {
		return h.reply(msg.Chat.ID, closeUsageAnswer)
	}

	planning := plannings[position-1]
	if err := h.plannings.Close(ctx, planning); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return h.reply(msg.Chat.ID, closeNotOpenedAnswer)
		}
		return err
	}
	h.logger.Info("planning closed", "planning_id", planning.ID())

	description, err := h.plannings.FullDescription(ctx, planning)
	if err != nil {
		return err
	}
	return h.reply(msg.Chat.ID, fmt.Sprintf(closedAnswer, description))
}

func (h *Handler) addOption(ctx context.Context, msg *tgbotapi.Message) error {
	current, err := h.plannings.FindUnderConstructionForOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return h.reply(msg.Chat.ID, dontUnderstandAnswer)
	}

	opt, err := h.plannings.AddOption(ctx, current, msg.Text)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyOptionText) {
			return h.reply(msg.Chat.ID, dontUnderstandAnswer)
		}
		return err
	}

	h.logger.Debug("option added", "planning_id", current.ID(), "ordinal", opt.Ordinal())
	return h.reply(msg.Chat.ID, optionAnswer)
}

func (h *Handler) handleInlineQuery(ctx context.Context, query *tgbotapi.InlineQuery) {
	results, err := h.inlineResults(ctx, query.Query)
	if err != nil {
		h.logger.Error("failed to build inline results", "query", query.Query, "error", err)
		results = []interface{}{}
	}

	answer := tgbotapi.InlineConfig{
		InlineQueryID: query.ID,
		Results:       results,
		IsPersonal:    true,
	}
	if _, err := h.bot.Request(answer); err != nil {
		h.logger.Error("failed to answer inline query", "query", query.Query, "error", err)
	}
}

// inlineResults returns one article for an opened planning designated by
// query, and nothing for any other query.
func (h *Handler) inlineResults(ctx context.Context, query string) ([]interface{}, error) {
	results := []interface{}{}

	id, ok := domain.ParseInlineQueryID(query)
	if !ok {
		return results, nil
	}

	planning, err := h.plannings.FindOpenedByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if planning == nil {
		return results, nil
	}

	options, err := h.plannings.Options(ctx, planning)
	if err != nil {
		return nil, err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options)+1)
	for _, opt := range options {
		label, err := h.options.ShortDescription(ctx, opt)
		if err != nil {
			return nil, err
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, voteData(planning.ID(), opt.Ordinal())),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(withdrawButton, withdrawData(planning.ID())),
	))

	description, err := h.plannings.FullDescription(ctx, planning)
	if err != nil {
		return nil, err
	}

	article := tgbotapi.NewInlineQueryResultArticle(strconv.FormatInt(planning.ID(), 10), planning.Title(), description)
	article.Description = fmt.Sprintf("%d options", len(options))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	article.ReplyMarkup = &keyboard

	return append(results, article), nil
}

func (h *Handler) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}

	notice, err := h.callbackNotice(ctx, query)
	if err != nil {
		h.logger.Error("failed to handle callback query", "data", query.Data, "user_id", query.From.ID, "error", err)
		notice = errorAnswer
	}

	if _, err := h.bot.Request(tgbotapi.NewCallback(query.ID, notice)); err != nil {
		h.logger.Error("failed to answer callback query", "data", query.Data, "error", err)
	}
}

func (h *Handler) callbackNotice(ctx context.Context, query *tgbotapi.CallbackQuery) (string, error) {
	cb, err := parseCallbackData(query.Data)
	if err != nil {
		return "", err
	}

	switch cb.action {
	case actionVote:
		return h.vote(ctx, cb, query.From)
	case actionWithdraw:
		return h.withdraw(ctx, cb, query.From)
	}
	return "", fmt.Errorf("unhandled callback action %q", cb.action)
}

func (h *Handler) vote(ctx context.Context, cb callbackData, from *tgbotapi.User) (string, error) {
	opt, err := h.options.FindByPlanningAndOrdinal(ctx, cb.planningID, cb.ordinal)
	if err != nil {
		return "", err
	}
	if opt == nil {
		return optionGoneNotice, nil
	}

	voter, err := domain.NewVoter(from.ID, from.FirstName, from.LastName)
	if err != nil {
		return "", err
	}

	_, err = h.options.AddVote(ctx, opt, voter)
	switch {
	case errors.Is(err, domain.ErrMultipleVote):
		return voteAlreadyNotice, nil
	case errors.Is(err, domain.ErrLogic):
		return voteClosedNotice, nil
	case err != nil:
		return "", err
	}

	h.logger.Info("vote registered", "planning_id", cb.planningID, "ordinal", cb.ordinal, "voter_id", from.ID)
	return voteRegisteredNotice, nil
}

func (h *Handler) withdraw(ctx context.Context, cb callbackData, from *tgbotapi.User) (string, error) {
	planning, err := h.plannings.FindByID(ctx, cb.planningID)
	if err != nil {
		return "", err
	}
	if planning == nil {
		return optionGoneNotice, nil
	}

	removed, err := h.plannings.WithdrawVotes(ctx, planning, from.ID)
	if errors.Is(err, domain.ErrLogic) {
		return voteClosedNotice, nil
	}
	if err != nil {
		return "", err
	}
	if removed == 0 {
		return nothingToWithdraw, nil
	}

	h.logger.Info("votes withdrawn", "planning_id", planning.ID(), "voter_id", from.ID, "count", removed)
	return withdrawnNotice, nil
}

func (h *Handler) reply(chatID int64, text string) error {
	_, err := h.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// fail logs err and sends a generic apology. Store inconsistencies are
// logged separately so they stand out.
func (h *Handler) fail(chatID int64, err error) {
	if errors.Is(err, domain.ErrConsistency) {
		h.logger.Error("store consistency violated", "chat_id", chatID, "error", err)
	} else {
		h.logger.Error("failed to handle message", "chat_id", chatID, "error", err)
	}

	if _, sendErr := h.bot.Send(tgbotapi.NewMessage(chatID, errorAnswer)); sendErr != nil {
		h.logger.Error("failed to send error message", "chat_id", chatID, "error", sendErr)
	}
}
