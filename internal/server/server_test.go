package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hoteldesk/conciergebot/internal/config"
	"github.com/hoteldesk/conciergebot/internal/conversation"
	"github.com/hoteldesk/conciergebot/internal/database"
	"github.com/hoteldesk/conciergebot/internal/server"
	"github.com/hoteldesk/conciergebot/internal/session"
)

type fakeClient struct {
	reply string
}

func (f *fakeClient) Reply(context.Context, []conversation.Turn) (string, error) {
	return f.reply, nil
}

type fakeStore struct {
	users   map[string]*database.User
	hotels  []database.Hotel
	history []database.HistoryEntry
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*database.User),
		hotels: []database.Hotel{
			{ID: 1, HotelName: "Grand Horizon Hotel", Details: "Pool and spa."},
		},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetUser(_ context.Context, username string) (*database.User, error) {
	return f.users[username], nil
}

func (f *fakeStore) UpsertUserActivity(_ context.Context, username string, at time.Time) error {
	if _, ok := f.users[username]; !ok {
		f.users[username] = &database.User{Username: username, AIEnabled: true}
	}
	return nil
}

func (f *fakeStore) SetUserAIEnabled(_ context.Context, username string, enabled bool) error {
	if u, ok := f.users[username]; ok {
		u.AIEnabled = enabled
	} else {
		f.users[username] = &database.User{Username: username, AIEnabled: enabled}
	}
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, username, password string) error {
	if _, ok := f.users[username]; ok {
		return database.ErrUsernameTaken
	}
	f.users[username] = &database.User{Username: username, Password: password, AIEnabled: true}
	return nil
}

func (f *fakeStore) Authenticate(_ context.Context, username, password string) (*database.User, error) {
	u, ok := f.users[username]
	if !ok || u.Password != password {
		return nil, database.ErrInvalidCredentials
	}
	return u, nil
}

func (f *fakeStore) FindHotelByName(_ context.Context, name string) (*database.Hotel, error) {
	for i := range f.hotels {
		if strings.EqualFold(f.hotels[i].HotelName, name) {
			h := f.hotels[i]
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListHotelNames(context.Context) ([]string, error) {
	names := make([]string, len(f.hotels))
	for i, h := range f.hotels {
		names[i] = h.HotelName
	}
	return names, nil
}

func (f *fakeStore) InsertHistoryEntry(_ context.Context, entry *database.HistoryEntry) error {
	e := *entry
	e.ID = uint(len(f.history) + 1)
	f.history = append(f.history, e)
	return nil
}

func (f *fakeStore) GetHistoryByUsername(_ context.Context, username string) ([]database.HistoryEntry, error) {
	var out []database.HistoryEntry
	for _, e := range f.history {
		if e.Username == username {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRecentHistory(_ context.Context, username string, limit int) ([]database.HistoryEntry, error) {
	all, _ := f.GetHistoryByUsername(context.Background(), username)
	var out []database.HistoryEntry
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:       ":0",
			AdminToken: "secret-token",
		},
		Messages: config.MessagesConfig{
			ManualModeReply: session.DefaultManualModeReply,
			HotelListHeader: session.DefaultHotelListHeader,
			WebhookApology:  "Sorry, we hit a snag. Please try again.",
		},
	}
}

func newTestServer(store *fakeStore, client *fakeClient) http.Handler {
	registry := session.NewRegistry(client)
	router := session.NewRouter(nil, store, registry, session.Options{})
	srv := server.NewServer(server.Deps{
		Store:  store,
		Router: router,
		Config: testConfig(),
	})
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "Welcome to the Grand Horizon!"})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"username":"alice","message":"Grand Horizon Hotel"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Response != "Welcome to the Grand Horizon!" {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestChatEndpointEmptyMessage(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"username":"alice","message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No message provided") {
		t.Errorf("body = %q, want the empty-message error", rec.Body.String())
	}
}

func TestChatEndpointInvalidBody(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	store.history = []database.HistoryEntry{
		{ID: 1, Username: "alice", Hotel: "Grand Horizon Hotel", Timestamp: ts, UserMessage: "hi", BotResponse: "hello"},
		{ID: 2, Username: "alice", Hotel: "Grand Horizon Hotel", Timestamp: ts.Add(time.Minute), UserMessage: "pool?", BotResponse: "7am"},
		{ID: 3, Username: "bob", Hotel: database.NoHotel, Timestamp: ts, UserMessage: "x", BotResponse: "y"},
	}
	h := newTestServer(store, &fakeClient{reply: "x"})

	rec := doJSON(t, h, http.MethodGet, "/chat/history?username=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		History []struct {
			UserMessage string `json:"user_message"`
			BotResponse string `json:"bot_response"`
			Timestamp   string `json:"timestamp"`
		} `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("history has %d items, want 2 (alice only)", len(resp.History))
	}
	if resp.History[0].UserMessage != "hi" || resp.History[1].UserMessage != "pool?" {
		t.Errorf("history not oldest-first: %+v", resp.History)
	}
	if resp.History[0].Timestamp != "2025-06-01 12:30:00" {
		t.Errorf("timestamp = %q, want formatted UTC", resp.History[0].Timestamp)
	}

	// A read must not change what a second read returns.
	rec2 := doJSON(t, h, http.MethodGet, "/chat/history?username=alice", "")
	if rec.Body.String() != rec2.Body.String() {
		t.Error("two consecutive history reads returned different bodies")
	}
}

func TestHistoryEndpointRequiresUsername(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})
	rec := doJSON(t, h, http.MethodGet, "/chat/history", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})
	form := url.Values{"username": {"alice"}, "password": {"hunter2"}}

	rec := doForm(t, h, "/signup", form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("signup status = %d, want 303: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/chat?username=alice" {
		t.Errorf("signup redirect = %q", loc)
	}

	rec = doForm(t, h, "/signup", form)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup status = %d, want 400", rec.Code)
	}

	rec = doForm(t, h, "/login", form)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("login status = %d, want 303: %s", rec.Code, rec.Body.String())
	}

	rec = doForm(t, h, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestWhatsAppWebhook(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "Welcome aboard!"})

	rec := doForm(t, h, "/webhook/whatsapp", url.Values{
		"From": {"whatsapp:+15551234567"},
		"Body": {"Grand Horizon Hotel"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("content type = %q, want application/xml", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Response><Message>Welcome aboard!</Message></Response>") {
		t.Errorf("body = %q, want TwiML message envelope", body)
	}
}

func TestWhatsAppWebhookErrorReturnsApology(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})

	// An empty body fails inside the router; the webhook still answers
	// with TwiML so the gateway delivers something readable.
	rec := doForm(t, h, "/webhook/whatsapp", url.Values{"From": {"whatsapp:+1555"}, "Body": {""}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sorry, we hit a snag.") {
		t.Errorf("body = %q, want configured apology", rec.Body.String())
	}
}

func TestAdminAIToggle(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	h := newTestServer(store, &fakeClient{reply: "x"})

	req := httptest.NewRequest(http.MethodPost, "/admin/users/bob/ai", strings.NewReader(`{"enabled":false}`))
	req.Header.Set("X-Admin-Token", "secret-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if u := store.users["bob"]; u == nil || u.AIEnabled {
		t.Errorf("user bob ai_enabled not switched off: %+v", u)
	}
}

func TestAdminAIToggleRejectsBadToken(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})

	req := httptest.NewRequest(http.MethodPost, "/admin/users/bob/ai", strings.NewReader(`{"enabled":false}`))
	req.Header.Set("X-Admin-Token", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestServer(newFakeStore(), &fakeClient{reply: "x"})
	rec := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
