package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply-keyboard button labels. handleText must recognize these so a
// menu tap is never treated as a search query.
const (
	buttonSearch = "🔎 Qidiruv"
	buttonStats  = "📊 Statistika"
	buttonChart  = "📉 Grafik"
)

// Callback payloads.
const (
	pagePrefix     = "pg|"
	callbackExport = "export_excel"

	callbackAdminStats   = "admin_stats"
	callbackAdminEditRow = "admin_edit_row"
	callbackAdminExit    = "admin_exit"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSearch),
			tgbotapi.NewKeyboardButton(buttonStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonChart),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// paginationKeyboard builds prev/next buttons for the current window
// plus the export button.
func paginationKeyboard(page, totalPages int) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	if page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Oldingi", fmt.Sprintf("%s%d", pagePrefix, page-1)))
	}
	if page < totalPages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Keyingi ➡️", fmt.Sprintf("%s%d", pagePrefix, page+1)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("📤 Excel'ga eksport", callbackExport))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Statistika ma'lumotlari", callbackAdminStats),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Qatorlarni tahrirlash", callbackAdminEditRow),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Chiqish", callbackAdminExit),
		),
	)
}
