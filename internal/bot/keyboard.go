package bot

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Links are the outbound URLs shown on the keyboards.
type Links struct {
	Promo  string
	Task   string
	Invite string
}

func mainKeyboard(links Links, balance int64) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 Daily bonus").WithCallbackData(CallbackDaily),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📰 Track 1").WithURL(links.Promo),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔗 Track 2").WithURL(links.Task),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🧠 Track 3").WithURL(links.Task),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("📊 Balance: %d", balance)).WithCallbackData(CallbackAccount),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💸 Withdraw").WithCallbackData(CallbackWithdraw),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🏠 Main menu").WithCallbackData(CallbackMainMenu),
		),
	)
}

func backKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🏠 Main menu").WithCallbackData(CallbackMainMenu),
		),
	)
}

func joinKeyboard(links Links) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📢 Open channel").WithURL(links.Invite),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ I have joined").WithCallbackData(CallbackCheckJoin),
		),
	)
}

// keyboardFor returns nil for MenuNone.
func keyboardFor(links Links, reply Reply) *telego.InlineKeyboardMarkup {
	switch reply.Menu {
	case MenuMain:
		return mainKeyboard(links, reply.Balance)
	case MenuBack:
		return backKeyboard()
	case MenuJoin:
		return joinKeyboard(links)
	}
	return nil
}
