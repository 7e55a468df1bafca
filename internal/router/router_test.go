package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-ticketing/internal/booking"
	"github.com/iliyamo/theatre-ticketing/internal/handler"
	"github.com/iliyamo/theatre-ticketing/internal/ledger/memory"
	"github.com/iliyamo/theatre-ticketing/internal/metrics"
	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/repository"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
	"github.com/iliyamo/theatre-ticketing/internal/stats"
	"github.com/iliyamo/theatre-ticketing/internal/utils"
)

const secret = "test-secret"

type app struct {
	t        *testing.T
	e        http.Handler
	cat      *repository.MemoryCatalog
	event    model.Event
	session  model.Session
	area     model.Area
	customer model.User
	other    model.User
	owner    model.User
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{t: t, cat: repository.NewMemoryCatalog()}
	// Sessions are dated far ahead so the real clock never closes them.
	day := time.Now().UTC().AddDate(0, 0, 7)
	a.event = a.cat.PutEvent(model.Event{Name: "Hamlet", DurationMin: 120, Active: true})
	a.area = a.cat.PutArea(model.Area{Name: "Plateia", Capacity: 3, Price: decimal.RequireFromString("50"), Active: true})
	a.session = a.cat.PutSession(model.Session{EventID: a.event.ID, Category: schedule.Evening, Date: day,
		Time: schedule.MustParseTimeOfDay("19:30"), Active: true, AreaIDs: []uint64{a.area.ID}})
	a.customer = a.cat.PutUser(model.User{Email: "ana@example.com", Role: utils.RoleCustomer, Active: true})
	a.other = a.cat.PutUser(model.User{Email: "bia@example.com", Role: utils.RoleCustomer, Active: true})
	a.owner = a.cat.PutUser(model.User{Email: "box@example.com", Role: utils.RoleOwner, Active: true})

	logger, _ := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	svc := booking.NewService(a.cat, memory.New(nil), booking.WithLogger(logger), booking.WithMetrics(m))
	planner := booking.NewPlanner(a.cat, schedule.DefaultCalendar(), time.UTC, logger)

	a.e = New(Deps{
		Tickets:   handler.NewTicketHandler(svc, logger),
		Catalog:   handler.NewCatalogHandler(a.cat, logger),
		Schedule:  handler.NewScheduleHandler(planner, time.UTC, logger),
		Stats:     handler.NewStatsHandler(stats.NewEngine(a.cat, svc.Ledger()), logger),
		Metrics:   m,
		JWTSecret: secret,
	})
	return a
}

func (a *app) do(method, path string, user *model.User, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		tok, err := utils.NewAccessToken(secret, user.ID, user.Role, time.Hour, time.Now())
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) ticketsPath() string {
	return "/v1/sessions/" + itoa(a.session.ID) + "/areas/" + itoa(a.area.ID) + "/tickets"
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", nil, "").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/readyz", nil, "").Code)
}

func TestPurchaseFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, a.ticketsPath(), nil, `{"seat":2}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, a.ticketsPath(), &a.customer, `{"seat":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := decode[model.Ticket](t, rec)
	assert.Equal(t, model.TicketReserved, tk.Status)
	assert.Equal(t, "50", tk.Price.String())

	rec = a.do(http.MethodPost, a.ticketsPath(), &a.other, `{"seat":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, body := range []string{`{"seat":0}`, `{"seat":4}`, `{"seat":1,"price":"-3"}`} {
		rec = a.do(http.MethodPost, a.ticketsPath(), &a.customer, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec = a.do(http.MethodPost, "/v1/sessions/999/areas/1/tickets", &a.customer, `{"seat":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seats := decode[struct {
		Available []int `json:"available"`
	}](t, a.do(http.MethodGet, "/v1/sessions/"+itoa(a.session.ID)+"/areas/"+itoa(a.area.ID)+"/seats", nil, ""))
	assert.Equal(t, []int{1, 3}, seats.Available)

	mine := decode[struct {
		Tickets []model.Ticket `json:"tickets"`
	}](t, a.do(http.MethodGet, "/v1/me/tickets", &a.customer, ""))
	require.Len(t, mine.Tickets, 1)
	assert.Equal(t, tk.ID, mine.Tickets[0].ID)
}

func TestTicketOwnership(t *testing.T) {
	a := newApp(t)
	tk := decode[model.Ticket](t, a.do(http.MethodPost, a.ticketsPath(), &a.customer, `{"seat":1}`))
	path := "/v1/tickets/" + itoa(tk.ID)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, &a.other, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, path, &a.other, "").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, path, &a.owner, "").Code)

	rec := a.do(http.MethodPost, path+"/pay", &a.customer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.TicketPaid, decode[model.Ticket](t, rec).Status)

	for i := 0; i < 2; i++ {
		rec = a.do(http.MethodDelete, path, &a.customer, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.TicketCancelled, decode[model.Ticket](t, rec).Status)
	}
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, path+"/pay", &a.customer, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/tickets/abc", &a.customer, "").Code)
}

func TestRedeemRequiresOwner(t *testing.T) {
	a := newApp(t)
	tk := decode[model.Ticket](t, a.do(http.MethodPost, a.ticketsPath(), &a.customer, `{"seat":3}`))

	body := `{"code":"` + tk.Code + `"}`
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/tickets/redeem", &a.customer, body).Code)

	rec := a.do(http.MethodPost, "/v1/tickets/redeem", &a.owner, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.TicketUtilized, decode[model.Ticket](t, rec).Status)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v1/tickets/redeem", &a.owner, body).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/tickets/redeem", &a.owner, `{}`).Code)
}

func TestStatsRoutes(t *testing.T) {
	a := newApp(t)
	a.do(http.MethodPost, a.ticketsPath(), &a.customer, `{"seat":1}`)

	base := "/v1/sessions/" + itoa(a.session.ID)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, base+"/stats", &a.customer, "").Code)

	st := decode[stats.AreaStats](t, a.do(http.MethodGet, base+"/areas/"+itoa(a.area.ID)+"/stats", &a.owner, ""))
	assert.Equal(t, 1, st.Occupied)
	assert.Equal(t, 2, st.Available)

	ss := decode[stats.SessionStats](t, a.do(http.MethodGet, base+"/stats", &a.owner, ""))
	assert.Equal(t, 3, ss.Total.Capacity)

	ev := decode[stats.EventStats](t, a.do(http.MethodGet, "/v1/events/"+itoa(a.event.ID)+"/stats", &a.owner, ""))
	assert.Equal(t, "50", ev.Total.Revenue.String())

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/events/999/stats", &a.owner, "").Code)
}

func TestSessionTickets(t *testing.T) {
	a := newApp(t)
	a.do(http.MethodPost, a.ticketsPath(), &a.customer, `{"seat":2}`)
	a.do(http.MethodPost, a.ticketsPath(), &a.other, `{"seat":1}`)

	path := "/v1/sessions/" + itoa(a.session.ID) + "/tickets"
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, path, &a.customer, "").Code)

	rec := a.do(http.MethodGet, path, &a.owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Ticket](t, rec)["tickets"], 2)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/sessions/999/tickets", &a.owner, "").Code)
}

func TestScheduleRoutes(t *testing.T) {
	a := newApp(t)
	day := time.Now().UTC().AddDate(0, 0, 30).Format(time.DateOnly)

	rec := a.do(http.MethodGet, "/v1/slots?category=evening&date="+day, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[struct {
		Slots map[string][]string `json:"slots"`
	}](t, rec)
	assert.Equal(t, []string{"18:00", "19:30", "21:00"}, slots.Slots["EVENING"])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/slots?date=tomorrow", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/slots?category=night", nil, "").Code)

	path := "/v1/events/" + itoa(a.event.ID) + "/sessions"
	assert.Equal(t, http.StatusNotFound,
		a.do(http.MethodPost, path, &a.owner, `{"date":"`+day+`","time":"08:00","area_ids":[999]}`).Code)
	rec = a.do(http.MethodPost, path, &a.owner, `{"date":"`+day+`","time":"08:00","area_ids":[`+itoa(a.area.ID)+`]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, schedule.Morning, decode[model.Session](t, rec).Category)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, path, &a.owner, `{"date":"`+day+`","time":"08:00"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, path, &a.owner, `{"date":"`+day+`","time":"08:15"}`).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, path, &a.customer, `{"date":"`+day+`","time":"09:30"}`).Code)

	rec = a.do(http.MethodPost, path+"/plan", &a.owner, `{"date":"`+day+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	planned := decode[struct {
		Sessions []model.Session `json:"sessions"`
	}](t, rec)
	assert.Len(t, planned.Sessions, 8)

	open := decode[struct {
		Slots map[string][]string `json:"slots"`
	}](t, a.do(http.MethodGet, "/v1/events/"+itoa(a.event.ID)+"/slots?date="+day, nil, ""))
	assert.Empty(t, open.Slots)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newApp(t)
	a.do(http.MethodGet, "/healthz", nil, "")
	rec := a.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCatalogRoutes(t *testing.T) {
	a := newApp(t)

	body := `{"name":"Macbeth","duration_min":90,"rating":"16"}`
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/events", &a.customer, body).Code)
	rec := a.do(http.MethodPost, "/v1/events", &a.owner, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[model.Event](t, rec)
	assert.True(t, ev.Active)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/events", &a.owner, `{"name":"x"}`).Code)

	list := decode[map[string][]model.Event](t, a.do(http.MethodGet, "/v1/events", nil, ""))
	assert.Len(t, list["items"], 2)

	rec = a.do(http.MethodPut, "/v1/events/"+itoa(ev.ID), &a.owner, `{"name":"Macbeth","duration_min":95,"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[model.Event](t, rec).Active)
	list = decode[map[string][]model.Event](t, a.do(http.MethodGet, "/v1/events", nil, ""))
	assert.Len(t, list["items"], 1)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/events/"+itoa(ev.ID)+"/sessions", nil, "").Code)
	assert.Equal(t, http.StatusNotFound,
		a.do(http.MethodPut, "/v1/events/999", &a.owner, `{"name":"x","duration_min":1}`).Code)

	rec = a.do(http.MethodGet, "/v1/events/"+itoa(a.event.ID)+"/sessions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	browse := decode[struct {
		Sessions []model.Session `json:"sessions"`
	}](t, rec)
	assert.Len(t, browse.Sessions, 1)

	rec = a.do(http.MethodPost, "/v1/areas", &a.owner, `{"name":"Balcao","capacity":40,"price":"35.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	area := decode[model.Area](t, rec)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/areas", &a.owner, `{"name":"Frisa","capacity":0}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(http.MethodPost, "/v1/areas", &a.owner, `{"name":"Frisa","capacity":4,"price":"-1"}`).Code)

	path := "/v1/areas/" + itoa(area.ID)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPut, path, &a.owner, `{"name":"Balcao","capacity":41}`).Code)
	rec = a.do(http.MethodPut, path, &a.owner, `{"name":"Balcao Nobre","price":"40.00","active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.Area](t, rec)
	assert.Equal(t, 40, got.Capacity)
	assert.False(t, got.Active)

	areas := decode[map[string][]model.Area](t, a.do(http.MethodGet, "/v1/areas", &a.owner, ""))
	assert.Len(t, areas["items"], 2)
}
