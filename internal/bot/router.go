package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"earnquick-bot/internal/ledger"
	"earnquick-bot/internal/membership"
	"earnquick-bot/internal/models"
	"earnquick-bot/internal/repository"
	"earnquick-bot/internal/session"
	"earnquick-bot/internal/worker"
)

// Callback data carried by the inline buttons.
const (
	CallbackCheckJoin = "check_join"
	CallbackDaily     = "daily_reward"
	CallbackAccount   = "my_account"
	CallbackWithdraw  = "withdraw_request"
	CallbackMainMenu  = "start_menu_btn"
)

// Menu selects the inline keyboard sent with a reply.
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuBack
	MenuJoin
)

// From identifies the Telegram user behind an event.
type From struct {
	ID   int64
	Name string
}

// Reply is what the router wants shown to the user. An empty Text means "send nothing".
type Reply struct {
	Text     string
	Menu     Menu
	Balance  int64
	Markdown bool
}

type RouterDeps struct {
	Ledger      *ledger.Ledger
	Users       ledger.Store
	Membership  membership.Checker
	Sessions    session.Store
	Operator    worker.Sender
	Broadcaster *worker.Broadcaster
	AdminID     int64
	BotUsername string
	InviteLink  string
}

// Router maps user actions to ledger operations. It keeps no state between events besides what
// the user store and the session flag hold.
type Router struct {
	RouterDeps
}

func NewRouter(deps RouterDeps) *Router {
	return &Router{RouterDeps: deps}
}

const (
	msgTryAgain     = "⚠️ Something went wrong. Please try again in a moment."
	msgStartFirst   = "⛔ Your data was not found. Please send /start."
	msgAdminOnly    = "❌ Admin only."
	msgBroadcastUse = "/broadcast <message>"
)

func (r *Router) joinPrompt() Reply {
	return Reply{
		Text: fmt.Sprintf("⛔ Join our channel to start earning!\n%s", r.InviteLink),
		Menu: MenuJoin,
	}
}

// Start handles /start with an optional referral payload and the menu buttons that re-open it.
func (r *Router) Start(ctx context.Context, from From, payload string) Reply {
	if !r.Membership.IsMember(ctx, from.ID) {
		if payload != "" {
			if err := r.Sessions.SavePendingReferral(ctx, from.ID, payload); err != nil {
				log.Printf("Failed to keep referral payload for %d: %v", from.ID, err)
			}
		}
		return r.joinPrompt()
	}

	if payload == "" {
		pending, err := r.Sessions.TakePendingReferral(ctx, from.ID)
		if err != nil {
			log.Printf("Failed to read pending referral for %d: %v", from.ID, err)
		}
		payload = pending
	}

	name := strings.TrimSpace(from.Name)
	if name == "" {
		name = "New User"
	}

	user, created, err := r.Ledger.Register(ctx, from.ID, name, payload)
	if err != nil {
		log.Printf("Failed to register user %d: %v", from.ID, err)
		return Reply{Text: msgTryAgain}
	}
	if created {
		log.Printf("New user %d (%s)", from.ID, name)
	}

	return Reply{
		Text:    fmt.Sprintf("🎉 Welcome, %s!\n✅ Use the menu to start earning.", name),
		Menu:    MenuMain,
		Balance: user.Balance,
	}
}

// Callback handles an inline button press.
func (r *Router) Callback(ctx context.Context, from From, data string) Reply {
	switch data {
	case CallbackCheckJoin, CallbackMainMenu:
		return r.Start(ctx, from, "")
	case CallbackDaily, CallbackAccount, CallbackWithdraw:
	default:
		return Reply{}
	}

	if !r.Membership.IsMember(ctx, from.ID) {
		return r.joinPrompt()
	}

	user, reply, ok := r.loadUser(ctx, from.ID)
	if !ok {
		return reply
	}

	switch data {
	case CallbackDaily:
		return r.claim(ctx, user)
	case CallbackAccount:
		return r.account(user)
	default:
		return r.withdraw(ctx, user)
	}
}

func (r *Router) loadUser(ctx context.Context, id int64) (models.User, Reply, bool) {
	user, err := r.Users.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.User{}, Reply{Text: msgStartFirst}, false
	case err != nil:
		log.Printf("Failed to load user %d: %v", id, err)
		return models.User{}, Reply{Text: msgTryAgain}, false
	}
	return user, Reply{}, true
}

func (r *Router) claim(ctx context.Context, user models.User) Reply {
	res, err := r.Ledger.ClaimDaily(ctx, user.ID)
	switch {
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return Reply{Text: "❌ Today's reward has already been claimed. Come back tomorrow.", Menu: MenuMain, Balance: res.Balance}
	case errors.Is(err, repository.ErrNotFound):
		return Reply{Text: msgStartFirst}
	case err != nil:
		log.Printf("Failed to claim daily bonus for %d: %v", user.ID, err)
		return Reply{Text: "❌ Could not update your points. Please try again.", Menu: MenuMain, Balance: user.Balance}
	}
	return Reply{
		Text:    fmt.Sprintf("✅ %d points added. Current balance: %d", res.Awarded, res.Balance),
		Menu:    MenuMain,
		Balance: res.Balance,
	}
}

func (r *Router) account(user models.User) Reply {
	link := ledger.ReferralLink(r.BotUsername, user.ID)
	return Reply{
		Text:     fmt.Sprintf("📊 Your points: %d\n🔗 Referral link: `%s`", user.Balance, link),
		Menu:     MenuBack,
		Balance:  user.Balance,
		Markdown: true,
	}
}

func (r *Router) withdraw(ctx context.Context, user models.User) Reply {
	e := r.Ledger.CheckWithdrawal(user.Balance)
	if !e.Allowed {
		return Reply{
			Text:    fmt.Sprintf("❌ You need at least %d points. Your points: %d (%d more to go).", e.Minimum, e.Balance, e.Shortfall),
			Menu:    MenuBack,
			Balance: user.Balance,
		}
	}

	if err := r.Sessions.MarkAwaitingWithdrawal(ctx, user.ID); err != nil {
		log.Printf("Failed to open withdrawal prompt for %d: %v", user.ID, err)
		return Reply{Text: msgTryAgain, Menu: MenuBack, Balance: user.Balance}
	}
	return Reply{
		Text:    "💸 Send your withdrawal request in one message (payment method and account number).",
		Menu:    MenuBack,
		Balance: user.Balance,
	}
}

// Text handles a free-text message. It is relayed to the operator only right after a withdrawal prompt.
func (r *Router) Text(ctx context.Context, from From, text string) Reply {
	user, reply, ok := r.loadUser(ctx, from.ID)
	if !ok {
		return reply
	}

	awaiting, err := r.Sessions.ConsumeAwaitingWithdrawal(ctx, from.ID)
	if err != nil {
		log.Printf("Failed to read withdrawal prompt for %d: %v", from.ID, err)
		return Reply{Text: msgTryAgain, Menu: MenuMain, Balance: user.Balance}
	}
	if !awaiting {
		return Reply{
			Text:    "ℹ️ Use the menu below. To request a withdrawal tap 💸 Withdraw first.",
			Menu:    MenuMain,
			Balance: user.Balance,
		}
	}

	ref := uuid.New().String()
	relay := fmt.Sprintf("💸 Withdrawal request %s\nUser: %d (%s)\nPoints: %d\nMessage: %s",
		ref, user.ID, user.DisplayName, user.Balance, text)
	if err := r.Operator.SendText(ctx, r.AdminID, relay); err != nil {
		log.Printf("Failed to relay withdrawal request %s from %d: %v", ref, user.ID, err)
		if err := r.Sessions.MarkAwaitingWithdrawal(ctx, user.ID); err != nil {
			log.Printf("Failed to reopen withdrawal prompt for %d: %v", user.ID, err)
		}
		return Reply{Text: "❌ Could not reach the admin. Please send your request again.", Menu: MenuBack, Balance: user.Balance}
	}

	log.Printf("Relayed withdrawal request %s from %d", ref, user.ID)
	return Reply{
		Text:    "✅ Your message has been sent to the admin.",
		Menu:    MenuMain,
		Balance: user.Balance,
	}
}

func (r *Router) isOperator(id int64) bool {
	return id == r.AdminID
}

// Stats handles /stats for the operator.
func (r *Router) Stats(ctx context.Context, from From) Reply {
	if !r.isOperator(from.ID) {
		return Reply{Text: msgAdminOnly}
	}
	stats, err := r.Ledger.Stats(ctx)
	if err != nil {
		log.Printf("Failed to fetch stats: %v", err)
		return Reply{Text: msgTryAgain}
	}
	return Reply{Text: fmt.Sprintf("📊 Users: %d\nPoints: %d", stats.Users, stats.TotalBalance)}
}

// Broadcast handles /broadcast <message> for the operator.
func (r *Router) Broadcast(ctx context.Context, from From, text string) Reply {
	if !r.isOperator(from.ID) {
		return Reply{Text: msgAdminOnly}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: msgBroadcastUse}
	}

	report, err := r.Broadcaster.Broadcast(ctx, text)
	if err != nil {
		log.Printf("Failed to start broadcast: %v", err)
		return Reply{Text: msgTryAgain}
	}
	return Reply{Text: fmt.Sprintf("✅ Sent to %d users (%d delivered, %d failed).", report.Attempted, report.Delivered, report.Failed)}
}
