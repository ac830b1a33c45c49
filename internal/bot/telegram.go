package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stripe/stripe-go/v72"

	"diet-planner/internal/models"
	"diet-planner/pkg/logger"
)

// sender is the part of *tgbotapi.BotAPI the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type planStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	SavePayment(ctx context.Context, payment *models.Payment) error
	CompletePayment(ctx context.Context, stripePaymentID string) error
	GetPaymentByStripeID(ctx context.Context, stripePaymentID string) (*models.Payment, error)
	SaveActivePlan(ctx context.Context, userID int64, profile models.UserProfile, plan *models.WeeklyPlan) error
	GetActivePlan(ctx context.Context, userID int64) (*models.WeeklyPlan, error)
	FinishActivePlan(ctx context.Context, userID int64) error
	DiscardActivePlan(ctx context.Context, userID int64) error
	ListHistory(ctx context.Context, userID int64, limit int) ([]models.PlanHistoryEntry, error)
}

type planRequester interface {
	RequestPlan(ctx context.Context, profile models.UserProfile, targetCalories int) (*models.WeeklyPlan, error)
}

// checkout is nil when plans are free.
type checkout interface {
	CreateCheckoutSession(userID int64, successURL, cancelURL string) (string, string, error)
	VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error)
	Price() (int64, string)
}

type TelegramBot struct {
	api      sender
	updates  func(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	stop     func()
	username string

	store    planStore
	planner  planRequester
	checkout checkout
	logger   *logger.Logger

	stateMutex sync.Mutex
	userStates map[int64]*models.UserState

	// generateTimeout bounds one plan request including its fallback.
	generateTimeout time.Duration
	wg              sync.WaitGroup
}

// NewTelegramBot connects to Telegram. checkout may be nil.
func NewTelegramBot(token string, store planStore, planner planRequester, checkout checkout, logger *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Infow("Authorized on Telegram", "username", api.Self.UserName)

	t := newBot(api, api.Self.UserName, store, planner, checkout, logger)
	t.updates = api.GetUpdatesChan
	t.stop = api.StopReceivingUpdates
	return t, nil
}

func newBot(api sender, username string, store planStore, planner planRequester, checkout checkout, logger *logger.Logger) *TelegramBot {
	return &TelegramBot{
		api:             api,
		username:        username,
		store:           store,
		planner:         planner,
		checkout:        checkout,
		logger:          logger,
		userStates:      make(map[int64]*models.UserState),
		generateTimeout: 5 * time.Minute,
	}
}

// Start begins receiving updates from Telegram via polling.
func (t *TelegramBot) Start(ctx context.Context) error {
	t.logger.Info("Removing any existing webhook")
	_, err := t.api.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.updates(updateConfig)
	t.logger.Info("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		t.wg.Add(1)
		go func(update tgbotapi.Update) {
			defer t.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.logger.Errorw("Recovered from panic while processing update", "error", r)
				}
			}()
			t.handleUpdate(ctx, update)
		}(update)
	}
}

func (t *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		t.logger.Debugw("Received message",
			"chat_id", update.Message.Chat.ID,
			"from", update.Message.From.UserName,
			"text", update.Message.Text)

		if update.Message.IsCommand() {
			t.handleCommand(ctx, update.Message)
		} else {
			t.handleMessage(ctx, update.Message)
		}
	case update.CallbackQuery != nil:
		t.logger.Debugw("Received callback query",
			"from", update.CallbackQuery.From.UserName,
			"data", update.CallbackQuery.Data)
		if _, err := t.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			t.logger.Warnw("Failed to answer callback query", "error", err)
		}
	}
}

// Stop stops polling and waits for in-flight updates until ctx expires.
func (t *TelegramBot) Stop(ctx context.Context) error {
	if t.stop != nil {
		t.stop()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (t *TelegramBot) state(userID int64) (models.UserState, bool) {
	t.stateMutex.Lock()
	defer t.stateMutex.Unlock()
	s, ok := t.userStates[userID]
	if !ok {
		return models.UserState{}, false
	}
	return *s, true
}

func (t *TelegramBot) setState(s models.UserState) {
	t.stateMutex.Lock()
	defer t.stateMutex.Unlock()
	t.userStates[s.TelegramID] = &s
}

// tryBeginProcessing moves the user to StateProcessing unless a generation
// is already running for them. The check and the transition happen under
// one lock so concurrent updates cannot both start a generation.
func (t *TelegramBot) tryBeginProcessing(user *models.User) bool {
	t.stateMutex.Lock()
	defer t.stateMutex.Unlock()
	if s, ok := t.userStates[user.TelegramID]; ok && s.CurrentState == StateProcessing {
		return false
	}
	t.userStates[user.TelegramID] = &models.UserState{
		TelegramID:   user.TelegramID,
		ChatID:       user.ChatID,
		CurrentState: StateProcessing,
		Profile:      user.Profile,
	}
	return true
}

func (t *TelegramBot) clearState(userID int64) {
	t.stateMutex.Lock()
	defer t.stateMutex.Unlock()
	delete(t.userStates, userID)
}

func (t *TelegramBot) reply(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Errorw("Failed to send message", "error", err, "chat_id", chatID)
	}
}
