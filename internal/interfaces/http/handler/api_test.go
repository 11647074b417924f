package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/application/account"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/express"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/shared/valueobject"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
	"github.com/pocketbook/backend/internal/infrastructure/blobstore"
	"github.com/pocketbook/backend/internal/infrastructure/config"
	"github.com/pocketbook/backend/internal/infrastructure/docstore"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/pocketbook/backend/internal/interfaces/http/middleware"
	"github.com/pocketbook/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	t           *testing.T
	engine      *gin.Engine
	store       *docstore.MemoryStore
	blobs       *blobstore.MemoryStore
	registry    *workspace.Registry
	tokens      *auth.TokenService
	revocations *auth.MemoryRevocations
}

func newAPI(t *testing.T) *api {
	t.Helper()
	s := docstore.NewMemoryStore()
	d := dispatch.New(nil)
	stamper := &shared.Stamper{Clock: shared.FixedClock(time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC))}
	registry := workspace.NewRegistry(workspace.Deps{Store: s, Dispatcher: d, Stamper: stamper})
	t.Cleanup(registry.Close)

	tokens := auth.NewTokenService(config.JWTConfig{Secret: "test-secret-at-least-32-bytes-long", Issuer: "pocketbook", Expiration: time.Hour})
	revocations := auth.NewMemoryRevocations()
	presenter := dto.Presenter{Currency: valueobject.MYR}
	base := NewWorkspaceHandler(registry, presenter)
	streamer := Streamer{Heartbeat: time.Second}
	blobs := blobstore.NewMemoryStore()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine, router.WithAuth(middleware.Session(middleware.SessionConfig{
		Tokens:            tokens,
		Revocations:       revocations,
		AllowUserIDHeader: true,
	}))).
		Register(NewSystemHandler("pocketbook", "test", nil)).
		Register(NewGuestHandler(blobs, "expressCart", presenter, express.WithStamper(stamper))).
		RegisterProtected(NewAccountHandler(account.NewService(s, d, nil), registry, tokens, revocations)).
		RegisterProtected(NewBudgetHandler(base, streamer)).
		RegisterProtected(NewBalanceHandler(base, streamer)).
		RegisterProtected(NewExpressHandler(base, streamer)).
		RegisterProtected(NewReceiptHandler(base, streamer)).
		RegisterProtected(NewChecklistHandler(base, streamer)).
		Setup()

	return &api{t: t, engine: engine, store: s, blobs: blobs, registry: registry, tokens: tokens, revocations: revocations}
}

// do sends a request as user (X-User-ID) and decodes the envelope
func (a *api) do(method, path, user string, body any) (int, dto.Response) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (a *api) ok(method, path, user string, body any) map[string]any {
	a.t.Helper()
	code, resp := a.do(method, path, user, body)
	require.Less(a.t, code, 300, "%s %s: %+v", method, path, resp.Error)
	if m, ok := resp.Data.(map[string]any); ok {
		return m
	}
	return nil
}

func (a *api) provision(user string) {
	a.t.Helper()
	code, resp := a.do(http.MethodPost, "/account", user, gin.H{"name": "Aisyah"})
	require.Equal(a.t, http.StatusCreated, code, "%+v", resp.Error)
}

func amount(v any) string {
	return v.(map[string]any)["amount"].(string)
}

func TestAPI_RequiresSession(t *testing.T) {
	a := newAPI(t)
	code, resp := a.do(http.MethodGet, "/budget", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)

	code, _ = a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_Account(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, false, a.ok(http.MethodGet, "/account", "u1", nil)["exists"])

	code, resp := a.do(http.MethodPost, "/account", "u1", gin.H{"name": " "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please enter your name", resp.Error.Message)

	a.provision("u1")
	assert.Equal(t, true, a.ok(http.MethodGet, "/account", "u1", nil)["exists"])

	a.ok(http.MethodPost, "/list/items", "u1", gin.H{"name": "Milk"})
	require.Equal(t, 1, a.registry.Len())

	a.ok(http.MethodDelete, "/account", "u1", nil)
	assert.Equal(t, 0, a.registry.Len())
	assert.Empty(t, a.store.Paths())
	assert.Equal(t, false, a.ok(http.MethodGet, "/account", "u1", nil)["exists"])
}

func TestAPI_Budget(t *testing.T) {
	a := newAPI(t)
	a.provision("u1")

	a.ok(http.MethodPost, "/budget/entries", "u1", gin.H{"section": "income", "name": "Salary", "value": 3000})
	a.ok(http.MethodPost, "/budget/entries", "u1", gin.H{"section": "expense", "name": "Rent", "value": "1200.50"})

	code, resp := a.do(http.MethodPost, "/budget/entries", "u1", gin.H{"section": "expense", "name": "Food", "value": "abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid value input", resp.Error.Message)
	assert.Equal(t, "value", resp.Error.Field)

	data := a.ok(http.MethodGet, "/budget", "u1", nil)
	assert.Equal(t, "1799.50", amount(data["balance"]))
	assert.Equal(t, map[string]any{"date": "4/3/2026", "time": "6:30 PM"}, data["lastModified"])

	// move Rent to income
	a.ok(http.MethodPut, "/budget/entries/expense/0", "u1", gin.H{"name": "Rent", "value": "1200.50", "to": "income"})
	data = a.ok(http.MethodGet, "/budget", "u1", nil)
	assert.Equal(t, "4200.50", amount(data["balance"]))
	sections := data["sections"].([]any)
	assert.Len(t, sections[0].(map[string]any)["entries"], 2)
	assert.Empty(t, sections[1].(map[string]any)["entries"])

	code, _ = a.do(http.MethodDelete, "/budget/entries/expense/0", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodDelete, "/budget/entries/savings/0", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	a.ok(http.MethodDelete, "/budget/entries/income/1", "u1", nil)
	a.ok(http.MethodPost, "/budget/clear", "u1", nil)
	data = a.ok(http.MethodGet, "/budget", "u1", nil)
	assert.Equal(t, "0.00", amount(data["balance"]))
}

func TestAPI_BudgetBeforeProvisioning(t *testing.T) {
	a := newAPI(t)
	code, resp := a.do(http.MethodGet, "/budget", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
}

func TestAPI_Balance(t *testing.T) {
	a := newAPI(t)
	a.provision("u1")

	a.ok(http.MethodPost, "/balance/items", "u1", gin.H{"itemName": "Coffee", "qty": 2, "price": "4.50"})
	a.ok(http.MethodPost, "/balance/items", "u1", gin.H{"itemName": "Bread", "qty": 1, "price": 3})

	data := a.ok(http.MethodGet, "/balance?start=10", "u1", nil)
	assert.Equal(t, "12.00", amount(data["total"]))
	assert.Equal(t, "-2.00", amount(data["remaining"]))
	assert.Equal(t, true, data["exceeded"])

	code, resp := a.do(http.MethodGet, "/balance?start=ten", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid value input", resp.Error.Message)

	code, resp = a.do(http.MethodPost, "/balance/items", "u1", gin.H{"itemName": "Tea", "qty": 0, "price": "1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Quantity cannot less than 1", resp.Error.Message)

	a.ok(http.MethodPut, "/balance/items/0", "u1", gin.H{"itemName": "Coffee", "qty": 1, "price": "4.50"})
	a.ok(http.MethodDelete, "/balance/items/1", "u1", nil)
	data = a.ok(http.MethodGet, "/balance", "u1", nil)
	assert.Equal(t, "4.50", amount(data["total"]))
	assert.Nil(t, data["remaining"])

	a.ok(http.MethodPost, "/balance/clear", "u1", nil)
	data = a.ok(http.MethodGet, "/balance", "u1", nil)
	assert.Empty(t, data["items"])
}

func TestAPI_ExpressAndReceipts(t *testing.T) {
	a := newAPI(t)
	a.provision("u1")

	code, resp := a.do(http.MethodPost, "/express/archive", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please insert at least one item", resp.Error.Message)

	for i := 0; i < 2; i++ {
		a.ok(http.MethodPost, "/express/items", "u1", gin.H{"itemName": "Noodles", "qty": 3, "price": "2.20"})
		a.ok(http.MethodPost, "/express/archive", "u1", nil)
	}
	data := a.ok(http.MethodGet, "/express", "u1", nil)
	assert.Len(t, data["items"], 2, "archiving leaves the cart as it is")
	assert.Equal(t, "13.20", amount(data["total"]))

	_, resp = a.do(http.MethodGet, "/receipts", "u1", nil)
	receipts := resp.Data.([]any)
	require.Len(t, receipts, 2)
	newest := receipts[0].(map[string]any)
	assert.EqualValues(t, 1, newest["no"])

	id := newest["id"].(string)
	got := a.ok(http.MethodGet, "/receipts/"+id, "u1", nil)
	assert.Len(t, got["items"], 2)

	_, resp = a.do(http.MethodGet, "/receipts?field=date&q=4/3", "u1", nil)
	assert.Len(t, resp.Data, 2)
	_, resp = a.do(http.MethodGet, "/receipts?field=time&q=9:", "u1", nil)
	assert.Empty(t, resp.Data)
	code, _ = a.do(http.MethodGet, "/receipts?field=colour&q=x", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	a.ok(http.MethodDelete, "/receipts/"+id, "u1", nil)
	code, _ = a.do(http.MethodGet, "/receipts/"+id, "u1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	a.ok(http.MethodPost, "/receipts/clear", "u1", nil)
	_, resp = a.do(http.MethodGet, "/receipts", "u1", nil)
	assert.Empty(t, resp.Data)
}

func TestAPI_Checklist(t *testing.T) {
	a := newAPI(t)
	for _, name := range []string{"Rice", "Eggs"} {
		a.ok(http.MethodPost, "/list/items", "u1", gin.H{"name": name})
	}
	a.ok(http.MethodPost, "/list/items/1/toggle", "u1", nil)
	a.ok(http.MethodPut, "/list/items/0", "u1", gin.H{"name": "Brown rice"})

	data := a.ok(http.MethodGet, "/list", "u1", nil)
	assert.EqualValues(t, 1, data["remaining"])
	items := data["items"].([]any)
	assert.Equal(t, "Brown rice", items[0].(map[string]any)["itemName"])
	assert.Equal(t, true, items[1].(map[string]any)["completed"])

	code, _ := a.do(http.MethodPost, "/list/items/5/toggle", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	a.ok(http.MethodDelete, "/list/items/0", "u1", nil)
	a.ok(http.MethodPost, "/list/clear", "u1", nil)
	data = a.ok(http.MethodGet, "/list", "u1", nil)
	assert.Empty(t, data["items"])
}

func TestAPI_UsersAreIsolated(t *testing.T) {
	a := newAPI(t)
	a.ok(http.MethodPost, "/list/items", "u1", gin.H{"name": "Milk"})
	data := a.ok(http.MethodGet, "/list", "u2", nil)
	assert.Empty(t, data["items"])
}

func TestAPI_Guest(t *testing.T) {
	a := newAPI(t)

	data := a.ok(http.MethodGet, "/guest/phone", "", nil)
	assert.Empty(t, data["items"])
	assert.Nil(t, data["lastModified"])

	a.ok(http.MethodPost, "/guest/phone/items", "", gin.H{"itemName": "Apples", "qty": 4, "price": "1.25"})
	a.ok(http.MethodPost, "/guest/phone/items", "", gin.H{"itemName": "Pears", "qty": 1, "price": "2"})
	data = a.ok(http.MethodPut, "/guest/phone/items/1", "", gin.H{"itemName": "Pears", "qty": 2, "price": "2"})
	assert.Equal(t, "9.00", amount(data["total"]))
	assert.NotNil(t, data["lastModified"])

	assert.Empty(t, a.ok(http.MethodGet, "/guest/tablet", "", nil)["items"], "devices do not share a cart")

	data = a.ok(http.MethodDelete, "/guest/phone/items/0", "", nil)
	assert.Len(t, data["items"], 1)

	code, _ := a.do(http.MethodDelete, "/guest/phone/items/3", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	a.ok(http.MethodDelete, "/guest/phone", "", nil)
	_, ok, err := a.blobs.GetBlob(context.Background(), express.GuestKey("expressCart", "phone"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAPI_BearerTokenAndSignOut(t *testing.T) {
	a := newAPI(t)
	token, _, err := a.tokens.Issue("u1")
	require.NoError(t, err)

	send := func(method, path string) int {
		req := httptest.NewRequest(method, "/api/v1"+path, nil)
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
		w := httptest.NewRecorder()
		a.engine.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/list"))
	assert.Equal(t, http.StatusNoContent, send(http.MethodDelete, "/session"))
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/list"))

	code, _ := a.do(http.MethodDelete, "/session", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, code, "header sessions carry no token")
}

func TestAPI_Stream(t *testing.T) {
	a := newAPI(t)
	a.ok(http.MethodPost, "/list/items", "u1", gin.H{"name": "Milk"})

	srv := httptest.NewServer(a.engine)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/list/stream", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.UserIDHeader, "u1")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", mediaType)

	// the initial snapshot is written before any change
	frame := readFrame(t, bufio.NewReader(resp.Body))
	assert.True(t, strings.HasPrefix(frame, "event:list\n"), frame)
	assert.Contains(t, frame, `"itemName":"Milk"`)
	assert.Contains(t, frame, fmt.Sprintf(`"remaining":%d`, 1))
}

// readFrame reads one SSE frame up to its terminating blank line
func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" {
			return b.String()
		}
		b.WriteString(line)
	}
}

func TestAPI_GuestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Close)
	engine := gin.New()
	router.NewRouter(engine).
		Register(NewGuestHandler(blobstore.NewMemoryStore(), "expressCart", dto.Presenter{Currency: valueobject.MYR}).Limit(limiter)).
		Setup()

	get := func(device string) int {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/guest/"+device, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("phone"))
	assert.Equal(t, http.StatusOK, get("phone"))
	assert.Equal(t, http.StatusTooManyRequests, get("phone"))
	assert.Equal(t, http.StatusOK, get("tablet"))
}
