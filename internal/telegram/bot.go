package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/earnhub/backend/internal/config"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/service"
)

type Bot struct {
	bot       *tele.Bot
	cfg       *config.Config
	userSvc   *service.UserService
	ledgerSvc *service.LedgerService
	quotaSvc  *service.QuotaService
	log       *zap.Logger
}

func NewBot(
	cfg *config.Config,
	userSvc *service.UserService,
	ledgerSvc *service.LedgerService,
	quotaSvc *service.QuotaService,
	log *zap.Logger,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Telegram.BotToken,
		Poller: &tele.LongPoller{Timeout: 60 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Warn("telegram handler failed", zap.Error(err))
		},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:       bot,
		cfg:       cfg,
		userSvc:   userSvc,
		ledgerSvc: ledgerSvc,
		quotaSvc:  quotaSvc,
		log:       log,
	}

	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/balance", b.handleBalance)
	b.bot.Handle("/help", b.handleHelp)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) StartPolling(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.bot.Start()
}

func (b *Bot) GetBotUsername() string {
	return b.bot.Me.Username
}

func (b *Bot) openAppButton(keyboard *tele.ReplyMarkup, label string) tele.Row {
	return keyboard.Row(keyboard.WebApp(label, &tele.WebApp{URL: b.cfg.Telegram.WebAppURL}))
}

func (b *Bot) handleStart(c tele.Context) error {
	user := c.Sender()

	firstName := user.FirstName
	lastName := user.LastName
	username := user.Username
	langCode := user.LanguageCode

	_, isNew, err := b.userSvc.GetOrCreateUser(context.Background(), service.TelegramUser{
		ID:           user.ID,
		Username:     &username,
		FirstName:    &firstName,
		LastName:     &lastName,
		LanguageCode: &langCode,
	})
	if err != nil {
		return err
	}
	if isNew {
		b.log.Info("user registered via bot", zap.Int64("user_id", user.ID))
	}

	text := fmt.Sprintf(`Hi, %s! 👋

💰 <b>Earn real money in Telegram</b>

📺 Watch short ads
🎡 Spin the wheel every day
✅ Complete partner offers

Withdraw to bKash or TON once you reach the minimum.`, html.EscapeString(user.FirstName))

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		b.openAppButton(keyboard, "📱 Start earning"),
		keyboard.Row(
			keyboard.Data("💰 Balance", "balance"),
		),
	)

	return c.Send(text, keyboard, tele.ModeHTML)
}

func (b *Bot) handleBalance(c tele.Context) error {
	ctx := context.Background()
	userID := c.Sender().ID

	balance, err := b.ledgerSvc.BalanceOf(ctx, userID)
	if err != nil {
		return c.Send("You have no account yet. Send /start to begin.")
	}
	limits, err := b.quotaSvc.Limits(ctx, userID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`💰 <b>Balance:</b> %s

📺 Ads left today: %d of %d
🎡 Spins left today: %d of %d`,
		money(balance.StringFixed(model.MoneyPlaces)),
		limits.Ads.Remaining, limits.Ads.DailyLimit,
		limits.Spins.Remaining, limits.Spins.DailyLimit,
	)

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(b.openAppButton(keyboard, "📱 Open app"))

	return c.Send(text, keyboard, tele.ModeHTML)
}

func (b *Bot) handleHelp(c tele.Context) error {
	text := `📖 <b>How it works</b>

1️⃣ Open the mini app
2️⃣ Watch ads, spin the wheel or finish offers
3️⃣ Request a withdrawal to bKash or TON

Daily limits reset at midnight.

<b>📱 Commands:</b>
/start - Main menu
/balance - Balance and today's limits
/help - This message`

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(b.openAppButton(keyboard, "📱 Open app"))

	return c.Send(text, keyboard, tele.ModeHTML)
}

func (b *Bot) handleCallback(c tele.Context) error {
	defer c.Respond()

	// telebot prefixes callback data with \f
	switch strings.TrimPrefix(c.Callback().Data, "\f") {
	case "balance":
		return b.handleBalance(c)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	_, err := b.bot.Send(&tele.User{ID: chatID}, text, tele.ModeHTML)
	return err
}

// NotifyWithdrawalRequested tells the admins a new request is waiting.
func (b *Bot) NotifyWithdrawalRequested(w *model.Withdrawal) error {
	text := withdrawalRequestedText(w)

	recipients := b.cfg.App.AdminIDs
	if b.cfg.Telegram.AdminChatID != 0 {
		recipients = []int64{b.cfg.Telegram.AdminChatID}
	}

	var firstErr error
	for _, id := range recipients {
		if _, err := b.bot.Send(tele.ChatID(id), text, tele.ModeHTML); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NotifyWithdrawalStatus tells the owner their request moved.
func (b *Bot) NotifyWithdrawalStatus(w *model.Withdrawal) error {
	text := withdrawalStatusText(w)
	if text == "" {
		return nil
	}

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(b.openAppButton(keyboard, "📱 Open app"))

	_, err := b.bot.Send(&tele.User{ID: w.UserID}, text, keyboard, tele.ModeHTML)
	return err
}

func money(amount string) string {
	return "৳" + amount
}

func withdrawalRequestedText(w *model.Withdrawal) string {
	return fmt.Sprintf(`🆕 <b>New withdrawal request</b>

👤 User: <code>%d</code>
💵 Amount: %s (fee %s, payout %s)
🏦 Method: %s
📍 Destination: <code>%s</code>
🆔 <code>%s</code>`,
		w.UserID,
		money(w.Amount.StringFixed(model.MoneyPlaces)),
		money(w.Fee.StringFixed(model.MoneyPlaces)),
		money(w.NetAmount.StringFixed(model.MoneyPlaces)),
		methodName(w.Method),
		html.EscapeString(w.Destination),
		w.ID,
	)
}

func withdrawalStatusText(w *model.Withdrawal) string {
	amount := money(w.Amount.StringFixed(model.MoneyPlaces))

	var text string
	switch w.Status {
	case model.WithdrawalStatusApproved:
		text = fmt.Sprintf("✅ <b>Withdrawal approved</b>\n\nYour withdrawal of %s via %s is approved and will be paid soon.", amount, methodName(w.Method))
	case model.WithdrawalStatusCompleted:
		text = fmt.Sprintf("💸 <b>Withdrawal paid</b>\n\n%s has been sent to %s.", money(w.NetAmount.StringFixed(model.MoneyPlaces)), html.EscapeString(w.Destination))
	case model.WithdrawalStatusRejected:
		text = fmt.Sprintf("❌ <b>Withdrawal rejected</b>\n\n%s has been returned to your balance.", amount)
	default:
		return ""
	}

	if w.AdminNotes != nil && *w.AdminNotes != "" {
		text += "\n\n📝 " + html.EscapeString(*w.AdminNotes)
	}
	return text
}

func methodName(m model.PaymentMethod) string {
	switch m {
	case model.PaymentMethodBkash:
		return "bKash"
	case model.PaymentMethodTON:
		return "TON"
	}
	return string(m)
}
