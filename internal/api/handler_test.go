package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"marketplace-service/internal/geo"
	"marketplace-service/internal/models"
	"marketplace-service/internal/service"
	"marketplace-service/internal/session"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = util.InitLogger("test")
	os.Exit(m.Run())
}

// memStore is an in-memory stand-in for the postgres store
type memStore struct {
	mu           sync.Mutex
	reservations map[string]models.Reservation
	sellers      []models.Seller
	events       map[string][]models.ReservationEventRecord
	listErr      error
}

func newMemStore() *memStore {
	return &memStore{
		reservations: map[string]models.Reservation{},
		events:       map[string][]models.ReservationEventRecord{},
	}
}

func (s *memStore) CreateReservation(_ context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New().String()
	s.reservations[r.ID] = *r
	return nil
}

func (s *memStore) GetReservation(_ context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, store.ErrNotFound)
	}
	return &r, nil
}

func (s *memStore) ListReservations(_ context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.Reservation{}
	for _, r := range s.reservations {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.After(out[j].ReservedAt) })
	return out, nil
}

func (s *memStore) CompareAndSetReservationStatus(_ context.Context, id string, expected, to models.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != expected {
		return false, nil
	}
	r.Status = to
	s.reservations[id] = r
	return true, nil
}

func (s *memStore) ListSellers(context.Context) ([]models.Seller, error) {
	return s.sellers, nil
}

func (s *memStore) ListReservationEvents(_ context.Context, id string) ([]models.ReservationEventRecord, error) {
	return append([]models.ReservationEventRecord{}, s.events[id]...), nil
}

type memCache struct {
	mu   sync.Mutex
	keys map[string]string
}

func (c *memCache) GetReservationForKey(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[key], nil
}

func (c *memCache) RememberReservationForKey(_ context.Context, key, id string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = id
	return nil
}

type noEvents struct{}

func (noEvents) PublishReservationCreated(context.Context, *models.ReservationCreatedEvent) error {
	return nil
}

func (noEvents) PublishReservationStatusChanged(context.Context, *models.ReservationStatusChangedEvent) error {
	return nil
}

type testServer struct {
	router  *gin.Engine
	handler *Handler
	store   *memStore
}

func newTestServer() *testServer {
	st := newMemStore()
	for i := 0; i < 8; i++ {
		st.sellers = append(st.sellers, models.Seller{
			ID:       fmt.Sprintf("seller-%d", i),
			Name:     fmt.Sprintf("Shop %d", i),
			Location: &models.Coordinate{Latitude: 19.08 + float64(i)*0.01, Longitude: 72.88},
		})
	}

	reservations := service.NewReservationService(st, &memCache{keys: map[string]string{}}, noEvents{}, 30*time.Minute)
	stores := service.NewStoreLocator(st, geo.NewLocator(nil, time.Second), 6)
	board := service.NewAdminBoard(reservations)

	h := NewHandler(stores, reservations, board, st, session.NewManager(session.NewJWTVerifier(testSecret, "")))
	router := gin.New()
	h.SetupRoutes(router)

	return &testServer{router: router, handler: h, store: st}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

const testSecret = "api-test-secret"

func idToken(t *testing.T, secret, userID, role string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Email: userID + "@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func (ts *testServer) signIn(t *testing.T, userID, role string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"id_token": idToken(t, testSecret, userID, role)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var lampBody = gin.H{
	"product": gin.H{
		"product_id":   "prod-1",
		"product_name": "Brass Lamp",
		"seller_id":    "seller-1",
		"seller_name":  "Shop 1",
		"price":        1299.5,
	},
}

func (ts *testServer) reserve(t *testing.T, token string) models.Reservation {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/reservations", token, lampBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/ready", "", nil).Code)

	ts.handler.AddReadinessCheck("postgres", func(context.Context) error { return errors.New("connection refused") })
	w := ts.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "postgres")
}

func TestRoutesRequireSession(t *testing.T) {
	ts := newTestServer()

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/stores/nearby?city=Mumbai", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/stores/nearby?city=Mumbai", "bogus", nil).Code)

	customer := ts.signIn(t, "user-1", session.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/v1/admin/reservations", customer, nil).Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/v1/sessions", customer, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/reservations/mine", customer, nil).Code)
}

func TestNearbyStores(t *testing.T) {
	ts := newTestServer()
	token := ts.signIn(t, "user-1", session.RoleCustomer)

	w := ts.do(t, http.MethodGet, "/api/v1/stores/nearby?city=Mumbai", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Location models.Location `json:"location"`
		Stores   []models.Seller `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.LocationSourceCity, resp.Location.Source)
	require.Len(t, resp.Stores, 6)
	assert.Equal(t, "seller-0", resp.Stores[0].ID)

	w = ts.do(t, http.MethodGet, "/api/v1/stores?lat=19.0760&lng=72.8777", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.LocationSourceDevice, resp.Location.Source)
	assert.Len(t, resp.Stores, 8)
}

func TestLocationErrors(t *testing.T) {
	ts := newTestServer()
	token := ts.signIn(t, "user-1", session.RoleCustomer)

	w := ts.do(t, http.MethodGet, "/api/v1/stores/nearby", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "manual", decode(t, w)["fallback"])

	w = ts.do(t, http.MethodGet, "/api/v1/locations/cities/Atlantis", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["examples"], "Mumbai")

	w = ts.do(t, http.MethodGet, "/api/v1/locations/current?lat=north&lng=1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/locations/current?lat=95&lng=72", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/locations/cities/delhi", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndListOwnReservations(t *testing.T) {
	ts := newTestServer()
	asha := ts.signIn(t, "user-1", session.RoleCustomer)
	ravi := ts.signIn(t, "user-2", session.RoleCustomer)

	r := ts.reserve(t, asha)
	assert.Equal(t, models.ReservationStatusReserved, r.Status)
	assert.Equal(t, "user-1", r.UserID)
	assert.Equal(t, "user-1@example.com", r.UserEmail)
	ts.reserve(t, ravi)

	w := ts.do(t, http.MethodGet, "/api/v1/reservations/mine", asha, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["reservations"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, false, list[0].(map[string]interface{})["is_expired"])

	w = ts.do(t, http.MethodPost, "/api/v1/reservations", asha, gin.H{"product": gin.H{"product_name": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReservationIdempotencyHeader(t *testing.T) {
	ts := newTestServer()
	token := ts.signIn(t, "user-1", session.RoleCustomer)

	send := func() models.Reservation {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(lampBody))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "click-42")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
		var r models.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
		return r
	}

	assert.Equal(t, send().ID, send().ID)
	assert.Len(t, ts.store.reservations, 1)
}

func TestAdminTransitions(t *testing.T) {
	ts := newTestServer()
	customer := ts.signIn(t, "user-1", session.RoleCustomer)
	admin := ts.signIn(t, "admin-1", session.RoleAdmin)
	r := ts.reserve(t, customer)
	path := "/api/v1/admin/reservations/" + r.ID + "/status"

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPatch, path, admin, gin.H{"status": "confirmed"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "confirmed", decode(t, w)["status"])
	}

	w := ts.do(t, http.MethodPatch, path, admin, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPatch, path, admin, gin.H{"status": "reserved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/v1/admin/reservations/missing/status", admin, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListAndStats(t *testing.T) {
	ts := newTestServer()
	customer := ts.signIn(t, "user-1", session.RoleCustomer)
	admin := ts.signIn(t, "admin-1", session.RoleAdmin)
	r := ts.reserve(t, customer)
	ts.reserve(t, customer)

	w := ts.do(t, http.MethodPatch, "/api/v1/admin/reservations/"+r.ID+"/status", admin, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/admin/reservations?status=reserved", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["reservations"], 1)
	assert.Equal(t, false, body["stale"])

	w = ts.do(t, http.MethodGet, "/api/v1/admin/reservations/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Stats models.ReservationStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, models.ReservationStats{Total: 2, Reserved: 1, Cancelled: 1}, stats.Stats)

	w = ts.do(t, http.MethodGet, "/api/v1/admin/reservations?status=expired", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/admin/reservations/"+r.ID+"/events", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminListServesLastGoodSnapshot(t *testing.T) {
	ts := newTestServer()
	admin := ts.signIn(t, "admin-1", session.RoleAdmin)
	ts.store.listErr = fmt.Errorf("%w: list reservations: timeout", store.ErrPersistence)

	w := ts.do(t, http.MethodGet, "/api/v1/admin/reservations", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ts.store.listErr = nil
	ts.reserve(t, ts.signIn(t, "user-1", session.RoleCustomer))
	w = ts.do(t, http.MethodGet, "/api/v1/admin/reservations", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ts.store.listErr = fmt.Errorf("%w: list reservations: timeout", store.ErrPersistence)
	w = ts.do(t, http.MethodGet, "/api/v1/admin/reservations", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["stale"])
	assert.Len(t, body["reservations"], 1)
}

func TestSignInRequiresVerifiedToken(t *testing.T) {
	ts := newTestServer()
	victim := ts.reserve(t, ts.signIn(t, "user-1", session.RoleCustomer))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, session.Claims{
		Role:             session.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "attacker"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	attempts := map[string]interface{}{
		"self-declared identity": gin.H{"user_id": "attacker", "email": "a@example.com", "role": "admin"},
		"wrong signing key":      gin.H{"id_token": idToken(t, "attacker-secret", "attacker", session.RoleAdmin)},
		"unsigned token":         gin.H{"id_token": unsigned},
		"no token":               nil,
	}
	for name, body := range attempts {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/sessions", "", body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	w := ts.do(t, http.MethodPatch, "/api/v1/admin/reservations/"+victim.ID+"/status", unsigned, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ReservationStatusReserved, ts.store.reservations[victim.ID].Status)
}

func TestSignInWithBearerIDToken(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/api/v1/sessions", idToken(t, testSecret, "admin-1", session.RoleAdmin), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var s session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "admin-1", s.Identity.UserID)
	assert.True(t, s.IsAdmin())

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/admin/reservations", s.Token, nil).Code)
}

func TestMetricsServer(t *testing.T) {
	srv := NewMetricsServer(":9090")
	assert.Equal(t, ":9090", srv.Addr)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reservations_created_total")

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stores", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
