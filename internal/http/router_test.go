package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"topicspin-api/internal/admin"
	"topicspin-api/internal/assign"
	"topicspin-api/internal/cache"
	"topicspin-api/internal/config"
	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
	"topicspin-api/internal/stream"
	"topicspin-api/internal/topics"
	jwtx "topicspin-api/pkg/jwt"
)

type MockAssigner struct {
	mock.Mock
}

func (m *MockAssigner) Assign(ctx context.Context, sub models.Submission) (assign.Result, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(assign.Result), args.Error(1)
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) List(ctx context.Context, f admin.Filter) admin.Listing {
	return m.Called(ctx, f).Get(0).(admin.Listing)
}

func (m *MockAdmin) Stats(ctx context.Context) admin.Stats {
	return m.Called(ctx).Get(0).(admin.Stats)
}

func (m *MockAdmin) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdmin) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fakeTopics struct{}

func (fakeTopics) AvailableTopics(_ context.Context, channel, category string, room int) []string {
	return topics.Available(topics.Default(), nil, channel, category, room)
}

func (fakeTopics) Pools() topics.Pools { return topics.Default() }

type fakeFinder map[string]models.Assignment

func (f fakeFinder) FindExisting(_ context.Context, id string) (*models.Assignment, error) {
	if a, ok := f[id]; ok {
		return &a, nil
	}
	return nil, nil
}

type fakeFeed struct{}

func (fakeFeed) Current() cache.Snapshot                       { return cache.Snapshot{} }
func (fakeFeed) Subscribe(cache.Listener) (unsubscribe func()) { return func() {} }

var jane = models.Assignment{
	ID: "a1", EmployeeID: "123456789", Name: "Jane Doe",
	Channel: models.ChannelBanca, Category: models.CategoryRookie,
	Topic: "Sales Techniques", Room: 1,
}

type RouterTestSuite struct {
	suite.Suite
	cfg      *config.Config
	assigner *MockAssigner
	admin    *MockAdmin
	handler  http.Handler
}

func (s *RouterTestSuite) SetupTest() {
	s.cfg = &config.Config{
		AllowedOrigins:  []string{"*"},
		Rooms:           []int{1, 2, 3},
		AdminUser:       "admin",
		AdminPassphrase: "open sesame",
		JWTKeys:         map[string]string{"k1": "test-secret"},
		Skew:            time.Minute,
		MetricsUser:     "prom",
		MetricsPass:     "scrape",
	}
	s.assigner = new(MockAssigner)
	s.admin = new(MockAdmin)
	iss, err := jwtx.NewIssuer(s.cfg.JWTKeys, "", time.Hour)
	s.Require().NoError(err)
	s.handler = Router(s.cfg, Deps{
		Assigner: s.assigner,
		Topics:   fakeTopics{},
		Finder:   fakeFinder{"123456789": jane},
		Admin:    s.admin,
		Feed:     fakeFeed{},
		Hub:      stream.NewHub(),
		Issuer:   iss,
	})
}

func (s *RouterTestSuite) do(method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *RouterTestSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var e Error
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Code
}

func (s *RouterTestSuite) login() string {
	rec := s.do(http.MethodPost, "/api/admin/login", `{"username":"admin","passphrase":"open sesame"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var out loginResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	s.Require().NotEmpty(out.Token)
	return out.Token
}

const validBody = `{"employeeId":"123456789","name":" Jane Doe ","channel":"Banca","category":"Rookie","room":1}`

func (s *RouterTestSuite) TestSubmitCreated() {
	want := models.Submission{EmployeeID: "123456789", Name: "Jane Doe", Channel: "Banca", Category: "Rookie", Room: 1}
	s.assigner.On("Assign", mock.Anything, want).Return(assign.Result{Assignment: jane}, nil).Once()

	rec := s.do(http.MethodPost, "/api/assignments", validBody)
	s.Equal(http.StatusCreated, rec.Code)

	var res assign.Result
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
	s.Equal("Sales Techniques", res.Assignment.Topic)
	s.False(res.Existing)
	s.assigner.AssertExpectations(s.T())
}

func (s *RouterTestSuite) TestSubmitExisting() {
	s.assigner.On("Assign", mock.Anything, mock.Anything).Return(assign.Result{Assignment: jane, Existing: true}, nil).Once()

	rec := s.do(http.MethodPost, "/api/assignments", validBody)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"existing":true`)
}

func (s *RouterTestSuite) TestSubmitValidation() {
	cases := map[string]string{
		"short id":      `{"employeeId":"12345","name":"Jane Doe","channel":"Banca","category":"Rookie","room":1}`,
		"signed id":     `{"employeeId":"-12345678","name":"Jane Doe","channel":"Banca","category":"Rookie","room":1}`,
		"digits name":   `{"employeeId":"123456789","name":"Jane 2","channel":"Banca","category":"Rookie","room":1}`,
		"bad channel":   `{"employeeId":"123456789","name":"Jane Doe","channel":"Insurance","category":"Rookie","room":1}`,
		"unknown room":  `{"employeeId":"123456789","name":"Jane Doe","channel":"Banca","category":"Rookie","room":9}`,
		"missing room":  `{"employeeId":"123456789","name":"Jane Doe","channel":"Banca","category":"Rookie"}`,
		"one char name": `{"employeeId":"123456789","name":"J","channel":"Banca","category":"Rookie","room":1}`,
		"bad json":      `{`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/api/assignments", body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(CodeInvalidInput, s.errorCode(rec))
		})
	}
	s.assigner.AssertNotCalled(s.T(), "Assign", mock.Anything, mock.Anything)
}

func (s *RouterTestSuite) TestSubmitDomainErrors() {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{topics.ErrExhaustedPool, http.StatusConflict, CodeExhaustedPool},
		{assign.ErrAssignmentFailed, http.StatusServiceUnavailable, CodeAssignmentFailed},
		{store.ErrUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable},
		{assert.AnError, http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		s.Run(tc.code, func() {
			s.assigner.On("Assign", mock.Anything, mock.Anything).Return(assign.Result{}, tc.err).Once()
			rec := s.do(http.MethodPost, "/api/assignments", validBody)
			s.Equal(tc.status, rec.Code)
			s.Equal(tc.code, s.errorCode(rec))
		})
	}
}

func (s *RouterTestSuite) TestExhaustedPoolSuggestsNextStep() {
	s.assigner.On("Assign", mock.Anything, mock.Anything).Return(assign.Result{}, topics.ErrExhaustedPool).Once()

	rec := s.do(http.MethodPost, "/api/assignments", validBody)
	s.Equal(http.StatusConflict, rec.Code)
	var e Error
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &e))
	s.Contains(e.Message, "pick another room")
	s.Contains(e.Message, "contact an administrator")
}

func (s *RouterTestSuite) TestAvailable() {
	rec := s.do(http.MethodGet, "/api/topics/available?channel=Retail&category=Vintage&room=2", "")
	s.Equal(http.StatusOK, rec.Code)
	var out availableResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	s.Equal(10, out.Count)

	rec = s.do(http.MethodGet, "/api/topics/available?channel=Insurance&category=Vintage&room=2", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"topics":[]`)

	rec = s.do(http.MethodGet, "/api/topics/available?channel=Retail&category=Vintage&room=7", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestOptions() {
	rec := s.do(http.MethodGet, "/api/options", "")
	s.Equal(http.StatusOK, rec.Code)
	var out optionsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	s.Equal([]int{1, 2, 3}, out.Rooms)
	s.Len(out.Pools, 4)
}

func (s *RouterTestSuite) TestLookup() {
	rec := s.do(http.MethodGet, "/api/assignments/123456789", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Sales Techniques")

	rec = s.do(http.MethodGet, "/api/assignments/000000000", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterTestSuite) TestLoginRejected() {
	rec := s.do(http.MethodPost, "/api/admin/login", `{"username":"admin","passphrase":"guess"}`)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal(CodeUnauthorized, s.errorCode(rec))
}

func (s *RouterTestSuite) TestAdminRequiresToken() {
	rec := s.do(http.MethodGet, "/api/admin/assignments", "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/assignments", "", "Authorization", "Bearer nope")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterTestSuite) TestAdminList() {
	tok := s.login()
	s.admin.On("List", mock.Anything, admin.Filter{Channel: "Banca", Room: 1}).
		Return(admin.Listing{Assignments: []models.Assignment{jane}, Total: 1}).Once()

	rec := s.do(http.MethodGet, "/api/admin/assignments?channel=Banca&category=all&room=1", "", "Authorization", "Bearer "+tok)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Jane Doe")
	s.admin.AssertExpectations(s.T())
}

func (s *RouterTestSuite) TestAdminExportCSV() {
	tok := s.login()
	s.admin.On("List", mock.Anything, admin.Filter{}).Return(admin.Listing{Assignments: []models.Assignment{jane}}).Once()

	rec := s.do(http.MethodGet, "/api/admin/export.csv", "", "Authorization", "Bearer "+tok)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(admin.ContentTypeCSV, rec.Header().Get("Content-Type"))
	s.Contains(rec.Header().Get("Content-Disposition"), "trainer-assignments-")
	s.Contains(rec.Body.String(), "123456789,Jane Doe,Banca,Rookie,Sales Techniques,Room 1,")
}

func (s *RouterTestSuite) TestAdminDeleteUnsupported() {
	tok := s.login()
	s.admin.On("Delete", mock.Anything, "a1").Return(store.ErrUnsupported).Once()
	s.admin.On("Clear", mock.Anything).Return(nil).Once()

	rec := s.do(http.MethodDelete, "/api/admin/assignments/a1", "", "Authorization", "Bearer "+tok)
	s.Equal(http.StatusNotImplemented, rec.Code)
	s.Equal(CodeUnsupported, s.errorCode(rec))

	rec = s.do(http.MethodDelete, "/api/admin/assignments", "", "Authorization", "Bearer "+tok)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *RouterTestSuite) TestAdminWebsocket() {
	tok := s.login()
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + tok}})
	s.Require().NoError(err)
	defer conn.Close()
	var msg struct {
		Type string `json:"type"`
	}
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal("snapshot", msg.Type)

	d := websocket.Dialer{Subprotocols: []string{"bearer", tok}}
	sub, _, err := d.Dial(url, nil)
	s.Require().NoError(err)
	defer sub.Close()
	s.Equal("bearer", sub.Subprotocol())
}

func (s *RouterTestSuite) TestMetricsBasicAuth() {
	rec := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "scrape")
	ok := httptest.NewRecorder()
	s.handler.ServeHTTP(ok, req)
	s.Equal(http.StatusOK, ok.Code)
}

func (s *RouterTestSuite) TestTelemetry() {
	rec := s.do(http.MethodPost, "/api/telemetry", `{"type":"reveal_shown","message":"token=abc","tags":{"room":"1"}}`)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/telemetry", `{"type":"x","extra":1}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestReadyz(t *testing.T) {
	cfg := &config.Config{Rooms: []int{1}}
	h := Router(cfg, Deps{
		Topics: fakeTopics{},
		Feed:   fakeFeed{},
		Hub:    stream.NewHub(),
		Ready:  func(context.Context) error { return store.ErrUnavailable },
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginDisabledWithoutIssuer(t *testing.T) {
	cfg := &config.Config{Rooms: []int{1}, AdminUser: "admin", AdminPassphrase: "x"}
	h := Router(cfg, Deps{Topics: fakeTopics{}, Feed: fakeFeed{}, Hub: stream.NewHub()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"username":"admin","passphrase":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCredentials(t *testing.T) {
	c := Credentials{User: "admin", Passphrase: "pw"}
	assert.True(t, c.check("admin", "pw"))
	assert.False(t, c.check("root", "pw"))
	assert.False(t, c.check("admin", "PW"))
	assert.False(t, Credentials{User: "admin"}.check("admin", ""))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	hashed := Credentials{User: "admin", Hash: string(hash), Passphrase: "ignored"}
	assert.True(t, hashed.check("admin", "s3cret"))
	assert.False(t, hashed.check("admin", "ignored"))
}
