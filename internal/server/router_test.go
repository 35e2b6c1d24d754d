package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qlndemo/coffeerun/backend/internal/auth"
	"github.com/qlndemo/coffeerun/backend/internal/cache"
	"github.com/qlndemo/coffeerun/backend/internal/catalog"
	"github.com/qlndemo/coffeerun/backend/internal/orders"
	"github.com/qlndemo/coffeerun/backend/internal/roster"
	"github.com/qlndemo/coffeerun/backend/internal/users"
)

type sequenceIDGenerator struct {
	next int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("srv-%04d", g.next), nil
}

type captureMailer struct {
	email string
	link  string
}

func (m *captureMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.email = email
	m.link = link
	return nil
}

type memoryCache struct {
	entries map[string][]byte
	hits    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, token string) ([]byte, bool) {
	payload, ok := c.entries[token]
	if ok {
		c.hits++
	}
	return payload, ok
}

func (c *memoryCache) Set(_ context.Context, token string, payload []byte) {
	c.sets++
	c.entries[token] = payload
}

type routerFixture struct {
	handler  http.Handler
	sessions *auth.Sessions
	accounts *users.Service
	catalog  *catalog.Service
	roster   *roster.Service
	orders   *orders.Service
	mailer   *captureMailer
	db       *gorm.DB
}

func newTestRouter(t *testing.T, sharedCache cache.SharedOrderCache) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:coffeerun_server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&catalog.DrinkType{}, &catalog.Size{}, &catalog.MilkOption{},
		&roster.Colleague{}, &roster.CoffeeOption{},
		&orders.Order{}, &orders.OrderItem{}, &orders.ConsolidatedLine{},
		&users.User{}, &users.MagicLinkToken{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	generator := &sequenceIDGenerator{}
	clock := func() time.Time { return time.Unix(1700000000, 0).UTC() }

	catalogService, err := catalog.NewService(catalog.ServiceConfig{Database: db, IDProvider: generator})
	if err != nil {
		t.Fatalf("failed to construct catalog service: %v", err)
	}
	rosterService, err := roster.NewService(roster.ServiceConfig{Database: db, IDProvider: generator})
	if err != nil {
		t.Fatalf("failed to construct roster service: %v", err)
	}
	orderService, err := orders.NewService(orders.ServiceConfig{
		Database:   db,
		Resolver:   rosterService,
		IDProvider: generator,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("failed to construct order service: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: generator,
		AdminEmail: "boss@example.com",
	})
	if err != nil {
		t.Fatalf("failed to construct user service: %v", err)
	}
	magicLinks, err := auth.NewMagicLinks(auth.MagicLinkConfig{
		Database:   db,
		Accounts:   userService,
		IDProvider: generator,
		TTL:        15 * time.Minute,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("failed to construct magic links: %v", err)
	}
	sessions, err := auth.NewSessions(auth.SessionsConfig{
		SigningSecret: []byte("test-secret"),
		CookieName:    "coffeerun_session",
		TTL:           time.Hour,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to construct sessions: %v", err)
	}

	mailer := &captureMailer{}
	handler, err := NewHTTPHandler(Dependencies{
		Sessions:    sessions,
		MagicLinks:  magicLinks,
		Mailer:      mailer,
		Accounts:    userService,
		Catalog:     catalogService,
		Roster:      rosterService,
		Orders:      orderService,
		SharedCache: sharedCache,
		FrontendURL: "http://localhost:5173",
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	return &routerFixture{
		handler:  handler,
		sessions: sessions,
		accounts: userService,
		catalog:  catalogService,
		roster:   rosterService,
		orders:   orderService,
		mailer:   mailer,
		db:       db,
	}
}

func (f *routerFixture) sessionCookie(t *testing.T, email string) *http.Cookie {
	t.Helper()
	user, err := f.accounts.GetOrCreateByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	token, err := f.sessions.Issue(user)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}
	return &http.Cookie{Name: f.sessions.CookieName(), Value: token}
}

func (f *routerFixture) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

// seedRunSetup creates one colleague with a resolvable coffee option and
// returns both ids.
func (f *routerFixture) seedRunSetup(t *testing.T) (string, string) {
	t.Helper()
	drink, err := f.catalog.CreateDrinkType(context.Background(), "Flat White", 0)
	if err != nil {
		t.Fatalf("failed to seed drink type: %v", err)
	}
	size, err := f.catalog.CreateSize(context.Background(), "Regular", "Reg", 0)
	if err != nil {
		t.Fatalf("failed to seed size: %v", err)
	}
	colleague, err := f.roster.CreateColleague(context.Background(), "Alice", true, 0)
	if err != nil {
		t.Fatalf("failed to seed colleague: %v", err)
	}
	option, err := f.roster.AddCoffeeOption(context.Background(), colleague.ID, roster.OptionInput{
		DrinkTypeID: drink.ID,
		SizeID:      size.ID,
	})
	if err != nil {
		t.Fatalf("failed to seed option: %v", err)
	}
	return colleague.ID, option.ID
}

func TestHealthEndpoint(t *testing.T) {
	fixture := newTestRouter(t, nil)

	recorder := fixture.do(t, http.MethodGet, "/api/health", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
}

func TestAuthedRoutesRejectAnonymousRequests(t *testing.T) {
	fixture := newTestRouter(t, nil)

	paths := []string{"/api/v1/colleagues", "/api/v1/orders", "/api/v1/stats/overview", "/api/v1/auth/me"}
	for _, path := range paths {
		recorder := fixture.do(t, http.MethodGet, path, nil, nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, recorder.Code)
		}
	}
}

func TestAdminRoutesRejectViewers(t *testing.T) {
	fixture := newTestRouter(t, nil)
	viewer := fixture.sessionCookie(t, "dev@example.com")

	recorder := fixture.do(t, http.MethodPost, "/api/v1/colleagues", gin.H{"name": "Mallory"}, viewer)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer mutation, got %d", recorder.Code)
	}

	recorder = fixture.do(t, http.MethodPost, "/api/v1/menu/drink-types", gin.H{"name": "Mocha"}, viewer)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer menu mutation, got %d", recorder.Code)
	}
}

func TestAdminCanManageRosterAndMenu(t *testing.T) {
	fixture := newTestRouter(t, nil)
	admin := fixture.sessionCookie(t, "boss@example.com")

	recorder := fixture.do(t, http.MethodPost, "/api/v1/menu/drink-types", gin.H{"name": "Mocha"}, admin)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating a drink type, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = fixture.do(t, http.MethodPost, "/api/v1/colleagues", gin.H{"name": "Alice"}, admin)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating a colleague, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var colleague roster.Colleague
	if err := json.Unmarshal(recorder.Body.Bytes(), &colleague); err != nil {
		t.Fatalf("failed to decode colleague: %v", err)
	}
	if !colleague.UsuallyIn {
		t.Fatalf("usually_in must default to true")
	}
}

func TestLoginVerifyFlowSetsSessionCookie(t *testing.T) {
	fixture := newTestRouter(t, nil)

	recorder := fixture.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "dev@example.com"}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if fixture.mailer.email != "dev@example.com" {
		t.Fatalf("mailer did not receive the address, got %q", fixture.mailer.email)
	}

	parsed, err := url.Parse(fixture.mailer.link)
	if err != nil {
		t.Fatalf("mailer link is not a URL: %v", err)
	}
	rawToken := parsed.Query().Get("token")
	if rawToken == "" {
		t.Fatalf("mailer link carries no token: %q", fixture.mailer.link)
	}

	recorder = fixture.do(t, http.MethodPost, "/api/v1/auth/verify", gin.H{"token": rawToken}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from verify, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var sessionCookie *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == fixture.sessions.CookieName() {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatalf("verify did not set the session cookie")
	}
	if !sessionCookie.HttpOnly {
		t.Fatalf("session cookie must be http only")
	}

	recorder = fixture.do(t, http.MethodGet, "/api/v1/auth/me", nil, sessionCookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from me, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var me users.User
	if err := json.Unmarshal(recorder.Body.Bytes(), &me); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if me.Email != "dev@example.com" || me.Role != users.RoleViewer {
		t.Fatalf("unexpected account %+v", me)
	}

	// The raw token is single use.
	recorder = fixture.do(t, http.MethodPost, "/api/v1/auth/verify", gin.H{"token": rawToken}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on token reuse, got %d", recorder.Code)
	}
}

func TestCreateOrderAndSharedView(t *testing.T) {
	fixture := newTestRouter(t, nil)
	colleagueID, optionID := fixture.seedRunSetup(t)
	viewer := fixture.sessionCookie(t, "dev@example.com")

	recorder := fixture.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{{"colleague_id": colleagueID, "coffee_option_id": optionID}},
	}, viewer)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating an order, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var created orders.Order
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if created.ShareToken == "" {
		t.Fatalf("created order carries no share token")
	}

	// The share view needs no session and exposes only the consolidated lines.
	recorder = fixture.do(t, http.MethodGet, "/api/v1/orders/share/"+created.ShareToken, nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from the share view, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var shared map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &shared); err != nil {
		t.Fatalf("failed to decode shared payload: %v", err)
	}
	if _, ok := shared["consolidated"]; !ok {
		t.Fatalf("shared payload misses consolidated lines: %s", recorder.Body.String())
	}
	if _, ok := shared["items"]; ok {
		t.Fatalf("shared payload must not expose the per-person breakdown")
	}
	if _, ok := shared["share_token"]; ok {
		t.Fatalf("shared payload must not echo the share token")
	}
	if strings.Contains(recorder.Body.String(), "Alice") {
		t.Fatalf("shared payload must not leak colleague names: %s", recorder.Body.String())
	}

	recorder = fixture.do(t, http.MethodGet, "/api/v1/orders/share/unknown-token", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown token, got %d", recorder.Code)
	}
}

func TestSharedViewPopulatesAndServesCache(t *testing.T) {
	sharedCache := newMemoryCache()
	fixture := newTestRouter(t, sharedCache)
	colleagueID, optionID := fixture.seedRunSetup(t)
	viewer := fixture.sessionCookie(t, "dev@example.com")

	recorder := fixture.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{{"colleague_id": colleagueID, "coffee_option_id": optionID}},
	}, viewer)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating an order, got %d", recorder.Code)
	}
	var created orders.Order
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	first := fixture.do(t, http.MethodGet, "/api/v1/orders/share/"+created.ShareToken, nil, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	if sharedCache.sets != 1 {
		t.Fatalf("expected the miss to populate the cache, sets=%d", sharedCache.sets)
	}

	second := fixture.do(t, http.MethodGet, "/api/v1/orders/share/"+created.ShareToken, nil, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.Code)
	}
	if sharedCache.hits != 1 {
		t.Fatalf("expected the second read to hit the cache, hits=%d", sharedCache.hits)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached response diverged from the rendered one")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	fixture := newTestRouter(t, nil)
	colleagueID, optionID := fixture.seedRunSetup(t)
	viewer := fixture.sessionCookie(t, "dev@example.com")

	recorder := fixture.do(t, http.MethodPost, "/api/v1/orders", gin.H{"items": []gin.H{}}, viewer)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty order, got %d", recorder.Code)
	}

	recorder = fixture.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{{"colleague_id": colleagueID, "coffee_option_id": "missing"}},
	}, viewer)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown option, got %d", recorder.Code)
	}

	recorder = fixture.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{{"colleague_id": "someone-else", "coffee_option_id": optionID}},
	}, viewer)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a mismatched selection, got %d", recorder.Code)
	}
}

func TestListAndGetOrders(t *testing.T) {
	fixture := newTestRouter(t, nil)
	colleagueID, optionID := fixture.seedRunSetup(t)
	viewer := fixture.sessionCookie(t, "dev@example.com")

	recorder := fixture.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{{"colleague_id": colleagueID, "coffee_option_id": optionID}},
	}, viewer)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}
	var created orders.Order
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	recorder = fixture.do(t, http.MethodGet, "/api/v1/orders", nil, viewer)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 listing orders, got %d", recorder.Code)
	}
	var summaries []orders.Summary
	if err := json.Unmarshal(recorder.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("failed to decode summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ItemCount != 1 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	recorder = fixture.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, nil, viewer)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 loading the order, got %d", recorder.Code)
	}
	var loaded orders.Order
	if err := json.Unmarshal(recorder.Body.Bytes(), &loaded); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].ColleagueName != "Alice" {
		t.Fatalf("the authed view must include the per-person breakdown: %+v", loaded.Items)
	}
}

func TestLoginValidatesEmailPayload(t *testing.T) {
	fixture := newTestRouter(t, nil)

	recorder := fixture.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "not-an-email"}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed email, got %d", recorder.Code)
	}
}
