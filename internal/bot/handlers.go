package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shohabbosdev/registrybot/internal/chart"
	"github.com/shohabbosdev/registrybot/internal/export"
	"github.com/shohabbosdev/registrybot/internal/paging"
	"github.com/shohabbosdev/registrybot/internal/registry"
	"github.com/shohabbosdev/registrybot/internal/session"
)

const (
	msgGreeting = "👋 *Assalomu alaykum!*\n\n" +
		"Ism/familiya (qismi bo'lsa ham), HEMIS ID yoki JSHSHIR yuboring — men jadvaldan topib beraman.\n\n" +
		"📌 Pastdagi tugmalardan foydalanishingiz mumkin:"
	msgSearchHint     = "🔎 Qidiruvni boshlash uchun: *ism/familiya (qismi)* yoki *HEMIS ID / JSHSHIR* yuboring."
	msgEmptyQuery     = "📝 Iltimos, qidirish uchun matn yuboring."
	msgNoResults      = "❌ *Hech qanday ma'lumot topilmadi.*"
	msgEmptySheet     = "❌ *Jadval bo'sh.*"
	msgGenericError   = "❌ Xatolik yuz berdi. Iltimos, qaytadan urinib ko'ring."
	msgSourceError    = "❌ Jadvaldan ma'lumot olishda xato. Iltimos, birozdan so'ng qaytadan urinib ko'ring."
	msgExportNothing  = "❌ Eksport qilish uchun natijalar topilmadi."
	msgExportTooLarge = "❌ Fayl hajmi juda katta (50 MB dan ortiq). Iltimos, qidiruvni qisqartiring."
	msgNotAdmin       = "❌ Sizda admin paneliga kirish huquqi yo'q."
	msgEditFormat     = "📝 Tahrir qilmoqchi bo'lgan qator indeksini va yangi ma'lumotlarni kiriting.\n" +
		"Format: `row_index|hemisuid|fio|hemis|jshshir|status|lavozim|tashkilot|sanasi`\n" +
		"Masalan: `2|12345|Aliyev Ali|67890|12345678901234|Faol|Muhandis|ABC kompaniyasi|2023-10-01`"
)

func (s *Service) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			s.handleStart(chatID)
		case "stat":
			s.handleStat(ctx, chatID)
		case "grafik":
			s.handleChart(ctx, chatID)
		case "admin":
			s.handleAdminPanel(chatID)
		default:
			log.Printf("[bot] unknown command %q from %d", msg.Command(), chatID)
		}
		return
	}

	s.handleText(ctx, chatID, strings.TrimSpace(msg.Text))
}

func (s *Service) handleText(ctx context.Context, chatID int64, text string) {
	switch text {
	case buttonSearch, "Qidiruv":
		s.sendMarkdown(chatID, msgSearchHint)
		return
	case buttonStats, "Statistika":
		s.handleStat(ctx, chatID)
		return
	case buttonChart, "Grafik", "grafik":
		s.handleChart(ctx, chatID)
		return
	case "":
		s.sendMarkdown(chatID, msgEmptyQuery)
		return
	}

	if s.sessions.Get(chatID).AdminAction() == session.AdminActionEditRow {
		s.handleAdminEdit(ctx, chatID, text)
		return
	}

	s.handleSearch(ctx, chatID, text)
}

// ---------------- /start ----------------

func (s *Service) handleStart(chatID int64) {
	s.sessions.Clear(chatID)

	reply := tgbotapi.NewMessage(chatID, msgGreeting)
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = mainMenuKeyboard()
	if _, err := s.bot.Send(reply); err != nil {
		log.Printf("[bot] send greeting to %d failed: %v", chatID, err)
	}
	s.logAction(chatID, "start")
}

// ---------------- search ----------------

func (s *Service) handleSearch(ctx context.Context, chatID int64, query string) {
	s.sendChatAction(chatID, tgbotapi.ChatTyping)

	snap, err := s.cache.Snapshot(ctx, s.key)
	if err != nil {
		log.Printf("[bot] search snapshot for %d failed: %v", chatID, err)
		s.sendError(chatID, msgSourceError)
		return
	}

	results := s.engine.Search(snap, query)
	if len(results) == 0 {
		s.deletePreviousPage(chatID, s.sessions.Get(chatID))
		s.sendError(chatID, msgNoResults)
		return
	}

	sess := s.sessions.Get(chatID)
	sess.SetSearch(query, results)
	s.sendPage(chatID, sess, 1)
	s.logAction(chatID, "search_"+query)
}

// sendPage renders one page as a fresh message, deleting the previous
// page's message first.
func (s *Service) sendPage(chatID int64, sess *session.Session, page int) {
	results := sess.Results()
	if len(results) == 0 {
		return
	}
	view := paging.RenderPage(s.engine, sess, results, page, s.cfg.Registry.PageSize)
	text := formatPageHeader(view) + formatResultsBlock(view.Items)

	s.deletePreviousPage(chatID, sess)

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = paginationKeyboard(view.Page, view.TotalPages)
	sent, err := s.bot.Send(reply)
	if err != nil {
		log.Printf("[bot] send page %d to %d failed: %v", view.Page, chatID, err)
		return
	}
	sess.SetPageMsgID(sent.MessageID)
}

// deletePreviousPage removes the prior page's rendered message. A
// failed delete is logged and the page transition proceeds anyway.
func (s *Service) deletePreviousPage(chatID int64, sess *session.Session) {
	msgID := sess.TakePageMsgID()
	if msgID == 0 {
		return
	}
	if _, err := s.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		log.Printf("[bot] delete page message %d in %d failed: %v", msgID, chatID, err)
	}
}

// ---------------- callbacks ----------------

// parsePageCallback extracts the target page from a "pg|<n>" payload.
func parsePageCallback(data string) (int, error) {
	raw, ok := strings.CutPrefix(data, pagePrefix)
	if !ok {
		return 0, fmt.Errorf("not a page payload: %q", data)
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad page number %q: %w", raw, err)
	}
	return page, nil
}

func (s *Service) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		log.Printf("[bot] callback %q without message, dropped", cq.Data)
		return
	}
	if _, err := s.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("[bot] answer callback failed: %v", err)
	}

	chatID := cq.Message.Chat.ID
	data := cq.Data

	switch {
	case data == callbackExport:
		s.handleExport(chatID)
	case strings.HasPrefix(data, pagePrefix):
		s.handlePageCallback(chatID, cq.Message.MessageID, data)
	case strings.HasPrefix(data, "admin_"):
		s.handleAdminCallback(chatID, cq.Message.MessageID, data)
	default:
		log.Printf("[bot] unknown callback %q from %d, dropped", data, chatID)
	}
}

// handlePageCallback renders the requested window by editing the page
// message in place. Malformed payloads are dropped; out-of-range pages
// clamp inside RenderPage.
func (s *Service) handlePageCallback(chatID int64, messageID int, data string) {
	page, err := parsePageCallback(data)
	if err != nil {
		log.Printf("[bot] invalid page payload from %d: %v", chatID, err)
		return
	}

	sess := s.sessions.Get(chatID)
	results := sess.Results()
	if len(results) == 0 {
		log.Printf("[bot] page callback from %d with no active search", chatID)
		return
	}

	view := paging.RenderPage(s.engine, sess, results, page, s.cfg.Registry.PageSize)
	text := formatPageHeader(view) + formatResultsBlock(view.Items)

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, paginationKeyboard(view.Page, view.TotalPages))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.bot.Send(edit); err != nil {
		log.Printf("[bot] edit page message in %d failed: %v", chatID, err)
		s.sendError(chatID, msgGenericError)
		return
	}
	s.logAction(chatID, fmt.Sprintf("page_%d", view.Page))
}

// handleExport sends the full (unpaged) result set as an xlsx
// document. Session state is unchanged.
func (s *Service) handleExport(chatID int64) {
	results := s.sessions.Get(chatID).Results()
	if len(results) == 0 {
		s.sendError(chatID, msgExportNothing)
		return
	}

	s.sendChatAction(chatID, tgbotapi.ChatUploadDocument)

	buf, err := export.ResultsToXLSX(results)
	if err != nil {
		if errors.Is(err, export.ErrTooLarge) {
			log.Printf("[bot] export for %d rejected: %v", chatID, err)
			s.sendError(chatID, msgExportTooLarge)
			return
		}
		log.Printf("[bot] export for %d failed: %v", chatID, err)
		s.sendError(chatID, msgGenericError)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.Filename(time.Now()),
		Bytes: buf.Bytes(),
	})
	doc.Caption = "📤 Qidiruv natijalarini Excel fayl sifatida yuklab oling."
	if _, err := s.bot.Send(doc); err != nil {
		log.Printf("[bot] send export to %d failed: %v", chatID, err)
		s.sendError(chatID, msgGenericError)
		return
	}
	s.logAction(chatID, "export_excel")
}

// ---------------- statistics ----------------

func (s *Service) handleStat(ctx context.Context, chatID int64) {
	s.sendChatAction(chatID, tgbotapi.ChatTyping)

	snap, err := s.cache.Snapshot(ctx, s.key)
	if err != nil {
		log.Printf("[bot] stat snapshot for %d failed: %v", chatID, err)
		s.sendError(chatID, msgSourceError)
		return
	}
	if len(snap) <= 1 {
		s.sendError(chatID, msgEmptySheet)
		return
	}

	groups := s.engine.SummarizeGrouped(snap, registry.ColSpecialty)
	total := s.engine.SummarizeSnapshot(snap)

	s.deletePreviousPage(chatID, s.sessions.Get(chatID))
	s.splitAndSend(chatID, formatGroupedStats(total, groups))
	s.logAction(chatID, "stat")
}

// ---------------- chart ----------------

func (s *Service) handleChart(ctx context.Context, chatID int64) {
	s.sendChatAction(chatID, tgbotapi.ChatUploadPhoto)

	snap, err := s.cache.Snapshot(ctx, s.key)
	if err != nil {
		log.Printf("[bot] chart snapshot for %d failed: %v", chatID, err)
		s.sendError(chatID, msgSourceError)
		return
	}

	counts := registry.CountByColumn(snap, registry.ColSpecialty)
	buf, err := chart.DirectionBar(counts)
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			s.sendError(chatID, "❌ Grafik uchun ma'lumot topilmadi.")
			return
		}
		log.Printf("[bot] chart render for %d failed: %v", chatID, err)
		s.sendError(chatID, msgGenericError)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "taqsimot.png", Bytes: buf.Bytes()})
	photo.Caption = "📊 Yo'nalishlar kesimi bo'yicha taqsimot grafigi"
	if _, err := s.bot.Send(photo); err != nil {
		log.Printf("[bot] send chart to %d failed: %v", chatID, err)
		s.sendError(chatID, msgGenericError)
		return
	}
	s.logAction(chatID, "grafik")
}

// ---------------- admin ----------------

func (s *Service) handleAdminPanel(chatID int64) {
	if !s.isAdmin(chatID) {
		s.sendError(chatID, msgNotAdmin)
		return
	}

	s.sendChatAction(chatID, tgbotapi.ChatTyping)

	reply := tgbotapi.NewMessage(chatID, "🛠 *Admin paneli*\n\nQuyidagi amallarni tanlang:")
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = adminPanelKeyboard()
	if _, err := s.bot.Send(reply); err != nil {
		log.Printf("[bot] open admin panel for %d failed: %v", chatID, err)
		return
	}
	s.logAction(chatID, "admin_panel")
}

func (s *Service) handleAdminCallback(chatID int64, messageID int, data string) {
	if !s.isAdmin(chatID) {
		log.Printf("[bot] admin callback %q from non-admin %d", data, chatID)
		s.sendError(chatID, msgNotAdmin)
		return
	}

	switch data {
	case callbackAdminStats:
		stats, err := s.actions.Aggregate()
		if err != nil {
			log.Printf("[bot] aggregate action log failed: %v", err)
			s.sendError(chatID, msgGenericError)
			return
		}
		text := "❌ Hozircha statistika mavjud emas."
		if len(stats) > 0 {
			text = formatActionStats(stats)
		}
		s.editMarkdown(chatID, messageID, text)
		s.logAction(chatID, "admin_stats")

	case callbackAdminEditRow:
		s.editMarkdown(chatID, messageID, msgEditFormat)
		s.sessions.Get(chatID).SetAdminAction(session.AdminActionEditRow)
		s.logAction(chatID, "admin_edit_row")

	case callbackAdminExit:
		s.editMarkdown(chatID, messageID, "🛠 Admin panelidan chiqildi.")
		s.logAction(chatID, "admin_exit")

	default:
		log.Printf("[bot] unknown admin callback %q from %d", data, chatID)
		s.sendError(chatID, fmt.Sprintf("❌ Noma'lum buyruq: %s", data))
	}
}

// adminEditFields is the pipe-separated field count for a row edit:
// the row index plus eight column values.
const adminEditFields = 9

func (s *Service) handleAdminEdit(ctx context.Context, chatID int64, text string) {
	if !s.isAdmin(chatID) {
		s.sendError(chatID, msgNotAdmin)
		return
	}
	if s.updater == nil {
		s.sendError(chatID, msgGenericError)
		return
	}

	parts := strings.Split(text, "|")
	if len(parts) != adminEditFields {
		log.Printf("[bot] admin edit from %d has %d fields, want %d", chatID, len(parts), adminEditFields)
		s.sendError(chatID, "❌ Noto'g'ri format. Iltimos, to'g'ri formatda kiriting: `row_index|hemisuid|fio|hemis|jshshir|status|lavozim|tashkilot|sanasi`")
		return
	}

	rowIndex, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		s.sendError(chatID, "❌ Qator indeksi raqam bo'lishi kerak.")
		return
	}

	if err := s.updater.UpdateRow(ctx, s.key.SourceID, s.key.View, rowIndex, parts[1:]); err != nil {
		log.Printf("[bot] admin row update from %d failed: %v", chatID, err)
		s.sendError(chatID, msgGenericError)
		return
	}

	// The cached snapshot predates the edit; drop it so the next
	// search sees the new values.
	s.cache.Invalidate(s.key)

	s.sessions.Get(chatID).SetAdminAction(session.AdminActionNone)
	s.sendMarkdown(chatID, fmt.Sprintf("✅ Qator %d muvaffaqiyatli yangilandi.", rowIndex))
	s.logAction(chatID, fmt.Sprintf("edit_row_%d", rowIndex))
}

func formatActionStats(stats map[string]int) string {
	lines := []string{"📊 *Bot statistikasi*\n"}
	for _, action := range sortedKeys(stats) {
		lines = append(lines, fmt.Sprintf("✅ *%s*: %d marta", escapeMarkdown(action), stats[action]))
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------- send helpers ----------------

func (s *Service) sendMarkdown(chatID int64, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.bot.Send(reply); err != nil {
		log.Printf("[bot] send message to %d failed: %v", chatID, err)
	}
}

func (s *Service) sendError(chatID int64, text string) {
	s.sendMarkdown(chatID, text)
}

func (s *Service) editMarkdown(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.bot.Send(edit); err != nil {
		log.Printf("[bot] edit message %d in %d failed: %v", messageID, chatID, err)
	}
}

func (s *Service) splitAndSend(chatID int64, text string) {
	for _, part := range splitText(text, splitLimit) {
		s.sendMarkdown(chatID, part)
	}
}

func (s *Service) sendChatAction(chatID int64, action string) {
	if _, err := s.bot.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		log.Printf("[bot] chat action for %d failed: %v", chatID, err)
	}
}
