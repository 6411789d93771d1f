package bot

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shohabbosdev/registrybot/internal/config"
	"github.com/shohabbosdev/registrybot/internal/registry"
	"github.com/shohabbosdev/registrybot/internal/session"
)

// fakeBot records every chattable the service emits.
type fakeBot struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	nextMsgID int
	updates   chan tgbotapi.Update
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update)}
}

func (f *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextMsgID++
	return tgbotapi.Message{MessageID: f.nextMsgID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "testbot"}
}

func (f *fakeBot) sentMessages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msgs []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func (f *fakeBot) lastMessageText() string {
	msgs := f.sentMessages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

// stubFetcher serves a fixed snapshot and counts fetches.
type stubFetcher struct {
	snap  registry.Snapshot
	err   error
	calls int
}

func (s *stubFetcher) FetchSnapshot(ctx context.Context, sourceID, view string) (registry.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

// stubUpdater records admin row edits.
type stubUpdater struct {
	rowIndex int
	values   []string
	err      error
}

func (s *stubUpdater) UpdateRow(ctx context.Context, spreadsheetID, worksheet string, rowIndex int, values []string) error {
	s.rowIndex = rowIndex
	s.values = append([]string(nil), values...)
	return s.err
}

const testActivePhrase = "faol mehnat shartnomasiga ega"

func sheetRow(cells map[int]string) []string {
	r := make([]string, registry.SchemaWidth)
	for idx, v := range cells {
		r[idx] = v
	}
	return r
}

func testSheet(rows ...[]string) registry.Snapshot {
	snap := registry.Snapshot{make([]string, registry.SchemaWidth)}
	return append(snap, rows...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Telegram.Token = "test-token"
	cfg.Telegram.AdminIDs = []int64{900}
	cfg.Sheet.SpreadsheetID = "sheet"
	cfg.Registry.ActionLogPath = filepath.Join(t.TempDir(), "actions.json")
	return cfg
}

func newTestService(t *testing.T, fetcher registry.Fetcher, updater RowUpdater) (*Service, *fakeBot) {
	t.Helper()
	fb := newFakeBot()
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return fb, nil
	}
	svc, err := NewWithFactory(testConfig(t), fetcher, updater, factory)
	if err != nil {
		t.Fatalf("NewWithFactory: %v", err)
	}
	svc.SetBot(fb)
	return svc, fb
}

func TestNew_RequiresToken(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sheet.SpreadsheetID = "sheet"
	if _, err := New(cfg, &stubFetcher{}, nil); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestNew_RequiresSpreadsheet(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Telegram.Token = "tok"
	if _, err := New(cfg, &stubFetcher{}, nil); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
}

func TestParsePageCallback(t *testing.T) {
	tests := []struct {
		data    string
		want    int
		wantErr bool
	}{
		{"pg|1", 1, false},
		{"pg|42", 42, false},
		{"pg|-3", -3, false}, // clamped later, parse succeeds
		{"pg|", 0, true},
		{"pg|abc", 0, true},
		{"pg", 0, true},
		{"export_excel", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePageCallback(tt.data)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePageCallback(%q) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parsePageCallback(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestHandleText_MenuButtonIsNotASearch(t *testing.T) {
	fetcher := &stubFetcher{snap: testSheet()}
	svc, fb := newTestService(t, fetcher, nil)

	svc.handleText(context.Background(), 1, buttonSearch)

	if fetcher.calls != 0 {
		t.Errorf("menu tap triggered %d fetches, want 0", fetcher.calls)
	}
	if got := fb.lastMessageText(); got != msgSearchHint {
		t.Errorf("reply = %q, want search hint", got)
	}
}

func TestHandleSearch_SendsFirstPageAndStoresState(t *testing.T) {
	rows := make([][]string, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, sheetRow(map[int]string{
			registry.ColUID:      fmt.Sprintf("%d", i+1),
			registry.ColFullName: fmt.Sprintf("Aliyev %d", i+1),
			registry.ColStatus:   testActivePhrase,
		}))
	}
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet(rows...)}, nil)

	svc.handleSearch(context.Background(), 5, "aliyev")

	sess := svc.sessions.Get(5)
	if got := len(sess.Results()); got != 10 {
		t.Fatalf("session results = %d, want 10", got)
	}
	if sess.Page() != 1 {
		t.Errorf("session page = %d, want 1", sess.Page())
	}
	if sess.TakePageMsgID() == 0 {
		t.Error("rendered message handle not stored")
	}

	msgs := fb.sentMessages()
	if len(msgs) == 0 {
		t.Fatal("no page message sent")
	}
	page := msgs[len(msgs)-1]
	if !strings.Contains(page.Text, "Jami topilgan talabalar soni:* 10") {
		t.Errorf("page header missing whole-set total:\n%s", page.Text)
	}
	if !strings.Contains(page.Text, "Sahifa:* 1/2") {
		t.Errorf("page header missing cursor 1/2:\n%s", page.Text)
	}
	if _, ok := page.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Error("page message has no pagination keyboard")
	}
}

func TestHandleSearch_NoResults(t *testing.T) {
	snap := testSheet(sheetRow(map[int]string{registry.ColUID: "1", registry.ColFullName: "Karimov"}))
	svc, fb := newTestService(t, &stubFetcher{snap: snap}, nil)

	svc.handleSearch(context.Background(), 5, "yo'q-odam")

	if got := fb.lastMessageText(); got != msgNoResults {
		t.Errorf("reply = %q, want no-results message", got)
	}
	if svc.sessions.Get(5).Results() != nil {
		t.Error("failed search replaced the session result set")
	}
}

func TestHandleSearch_SourceUnavailable(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{err: fmt.Errorf("network down")}, nil)

	svc.handleSearch(context.Background(), 5, "aliyev")

	if got := fb.lastMessageText(); got != msgSourceError {
		t.Errorf("reply = %q, want source error message", got)
	}
}

func TestHandlePageCallback_ClampsAndEdits(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	results := make([]registry.Record, 20)
	for i := range results {
		results[i] = registry.Record{UID: fmt.Sprintf("%d", i), FullName: "Talaba"}
	}
	sess := svc.sessions.Get(7)
	sess.SetSearch("talaba", results)

	svc.handlePageCallback(7, 55, "pg|99")

	if got := sess.Page(); got != 3 {
		t.Errorf("session page = %d, want clamped 3", got)
	}

	var edit *tgbotapi.EditMessageTextConfig
	fb.mu.Lock()
	for _, c := range fb.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edit = &e
		}
	}
	fb.mu.Unlock()
	if edit == nil {
		t.Fatal("no edit sent for page navigation")
	}
	if !strings.Contains(edit.Text, "Sahifa:* 3/3") {
		t.Errorf("edited page header = %q, want page 3/3", edit.Text)
	}
}

func TestHandlePageCallback_MalformedPayloadDropped(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)
	sess := svc.sessions.Get(7)
	sess.SetSearch("x", []registry.Record{{UID: "1"}})
	sess.SetPage(1)

	svc.handlePageCallback(7, 55, "pg|banana")

	if len(fb.sentMessages()) != 0 {
		t.Error("malformed payload produced a user-visible message")
	}
	if sess.Page() != 1 {
		t.Errorf("malformed payload moved the cursor to %d", sess.Page())
	}
}

func TestHandlePageCallback_NoActiveSearch(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	svc.handlePageCallback(7, 55, "pg|2")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.sent) != 0 {
		t.Error("page callback without results produced output")
	}
}

func TestHandleExport_NoResults(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	svc.handleExport(3)

	if got := fb.lastMessageText(); got != msgExportNothing {
		t.Errorf("reply = %q, want export-nothing message", got)
	}
}

func TestHandleExport_SendsDocument(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)
	svc.sessions.Get(3).SetSearch("a", []registry.Record{
		{UID: "1", FullName: "Aliyev", Status: testActivePhrase,
			Contract: &registry.Contract{Position: "Muhandis"}},
		{UID: "2", FullName: "Karimov", Status: "nofaol"},
	})

	svc.handleExport(3)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	var doc *tgbotapi.DocumentConfig
	for _, c := range fb.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			doc = &d
		}
	}
	if doc == nil {
		t.Fatal("no document sent")
	}
	fileBytes, ok := doc.File.(tgbotapi.FileBytes)
	if !ok {
		t.Fatalf("document file is %T, want FileBytes", doc.File)
	}
	if !strings.HasSuffix(fileBytes.Name, ".xlsx") {
		t.Errorf("filename = %q, want .xlsx", fileBytes.Name)
	}
	if len(fileBytes.Bytes) == 0 {
		t.Error("document is empty")
	}
}

func TestHandleStart_ClearsSession(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)
	sess := svc.sessions.Get(4)
	sess.SetSearch("a", []registry.Record{{UID: "1"}})

	svc.handleStart(4)

	if sess.Results() != nil {
		t.Error("/start did not clear the session")
	}
	msgs := fb.sentMessages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Assalomu alaykum") {
		t.Errorf("greeting not sent: %v", msgs)
	}
	if _, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Error("greeting has no main menu keyboard")
	}
}

func TestHandleStat_GroupedOutput(t *testing.T) {
	snap := testSheet(
		sheetRow(map[int]string{registry.ColUID: "1", registry.ColSpecialty: "Informatika", registry.ColStatus: testActivePhrase}),
		sheetRow(map[int]string{registry.ColUID: "2", registry.ColSpecialty: "Informatika", registry.ColStatus: "nofaol"}),
		sheetRow(map[int]string{registry.ColUID: "3", registry.ColSpecialty: "Matematika", registry.ColStatus: testActivePhrase}),
	)
	svc, fb := newTestService(t, &stubFetcher{snap: snap}, nil)

	svc.handleStat(context.Background(), 8)

	text := fb.lastMessageText()
	if !strings.Contains(text, "Jami talabalar soni:* 3") {
		t.Errorf("stat output missing totals:\n%s", text)
	}
	if !strings.Contains(text, "Informatika") || !strings.Contains(text, "Matematika") {
		t.Errorf("stat output missing groups:\n%s", text)
	}
	if strings.Index(text, "Informatika") > strings.Index(text, "Matematika") {
		t.Error("groups not in lexicographic order")
	}
}

func TestHandleStat_EmptySheet(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	svc.handleStat(context.Background(), 8)

	if got := fb.lastMessageText(); got != msgEmptySheet {
		t.Errorf("reply = %q, want empty-sheet message", got)
	}
}

func TestAdminPanel_Unauthorized(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	svc.handleAdminPanel(1) // not in AdminIDs

	if got := fb.lastMessageText(); got != msgNotAdmin {
		t.Errorf("reply = %q, want not-admin message", got)
	}
}

func TestAdminCallback_Unauthorized(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	svc.handleAdminCallback(1, 10, callbackAdminStats)

	if got := fb.lastMessageText(); got != msgNotAdmin {
		t.Errorf("reply = %q, want not-admin message", got)
	}
}

func TestAdminEdit_UpdatesRowAndInvalidatesCache(t *testing.T) {
	fetcher := &stubFetcher{snap: testSheet(
		sheetRow(map[int]string{registry.ColUID: "1", registry.ColFullName: "Aliyev"}),
	)}
	updater := &stubUpdater{}
	svc, fb := newTestService(t, fetcher, updater)

	// Warm the cache, then edit.
	if _, err := svc.cache.Snapshot(context.Background(), svc.key); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	sess := svc.sessions.Get(900)
	sess.SetAdminAction(session.AdminActionEditRow)
	svc.handleAdminEdit(context.Background(), 900, "2|12345|Aliyev Ali|67890|12345678901234|Faol|Muhandis|ABC|2023-10-01")

	if updater.rowIndex != 2 {
		t.Errorf("updated row = %d, want 2", updater.rowIndex)
	}
	if len(updater.values) != 8 {
		t.Errorf("updated values = %d fields, want 8", len(updater.values))
	}
	if sess.AdminAction() != session.AdminActionNone {
		t.Error("admin action not cleared after edit")
	}
	if !strings.Contains(fb.lastMessageText(), "muvaffaqiyatli yangilandi") {
		t.Errorf("no success reply: %q", fb.lastMessageText())
	}

	// The cached snapshot must have been dropped.
	before := fetcher.calls
	if _, err := svc.cache.Snapshot(context.Background(), svc.key); err != nil {
		t.Fatalf("re-fetch: %v", err)
	}
	if fetcher.calls != before+1 {
		t.Error("cache entry survived the row edit")
	}
}

func TestAdminEdit_BadFieldCount(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, &stubUpdater{})
	svc.sessions.Get(900).SetAdminAction(session.AdminActionEditRow)

	svc.handleAdminEdit(context.Background(), 900, "2|only|three")

	if !strings.Contains(fb.lastMessageText(), "Noto'g'ri format") {
		t.Errorf("reply = %q, want format error", fb.lastMessageText())
	}
}

func TestAdminEdit_NonNumericIndex(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, &stubUpdater{})
	svc.sessions.Get(900).SetAdminAction(session.AdminActionEditRow)

	svc.handleAdminEdit(context.Background(), 900, "abc|1|2|3|4|5|6|7|8")

	if !strings.Contains(fb.lastMessageText(), "raqam bo'lishi kerak") {
		t.Errorf("reply = %q, want numeric-index error", fb.lastMessageText())
	}
}

func TestDeletePreviousPage_ToleratesMissingHandle(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)

	svc.deletePreviousPage(1, svc.sessions.Get(1))

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.requested) != 0 {
		t.Error("delete requested with no stored handle")
	}
}

func TestDeletePreviousPage_SendsDelete(t *testing.T) {
	svc, fb := newTestService(t, &stubFetcher{snap: testSheet()}, nil)
	sess := svc.sessions.Get(1)
	sess.SetPageMsgID(77)

	svc.deletePreviousPage(1, sess)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.requested) != 1 {
		t.Fatalf("got %d requests, want 1", len(fb.requested))
	}
	del, ok := fb.requested[0].(tgbotapi.DeleteMessageConfig)
	if !ok {
		t.Fatalf("request is %T, want DeleteMessageConfig", fb.requested[0])
	}
	if del.MessageID != 77 {
		t.Errorf("deleted message = %d, want 77", del.MessageID)
	}
	if sess.TakePageMsgID() != 0 {
		t.Error("handle not cleared after delete")
	}
}
