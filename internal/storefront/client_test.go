package storefront

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/models"
	"bookstore/internal/repository"
	"bookstore/internal/router"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		JWTSecret:          "client-test-access",
		JWTRefreshSecret:   "client-test-refresh",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}
	store := repository.NewMemoryStore([]models.Book{bookOne, bookTwo, soldOut})
	srv := httptest.NewServer(router.SetupRouter(cfg, store, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

type shopper struct {
	client  *Client
	cart    *Cart
	storage *MemoryStorage
}

func newShopper(t *testing.T, baseURL string) *shopper {
	t.Helper()
	storage := NewMemoryStorage()
	session, err := LoadSession(storage)
	require.NoError(t, err)
	cart, err := LoadCart(session, storage)
	require.NoError(t, err)
	return &shopper{client: NewClient(baseURL, session, zerolog.Nop()), cart: cart, storage: storage}
}

func (s *shopper) signUp(t *testing.T, username, email, password string) {
	t.Helper()
	_, err := s.client.Register(t.Context(), models.RegisterRequest{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	_, err = s.client.Login(t.Context(), email, password)
	require.NoError(t, err)
}

func TestClient_CheckoutFlow(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)

	assert.ErrorIs(t, s.cart.Add(bookOne), ErrMustAuthenticate)

	s.signUp(t, "alice", "alice@example.com", "secret1")
	assert.Equal(t, "alice", s.client.Session().User().Username)

	orders, err := s.client.Orders(t.Context())
	require.NoError(t, err)
	assert.Empty(t, orders)

	require.NoError(t, s.cart.Add(bookOne))
	require.NoError(t, s.cart.Add(bookOne))
	assert.ErrorIs(t, s.cart.Add(bookOne), ErrStockLimit)
	require.NoError(t, s.cart.Add(bookTwo))

	order, err := s.client.Checkout(t.Context(), s.cart, models.PaymentPayPal)
	require.NoError(t, err)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "paypal", order.PaymentMethod)
	assert.InDelta(t, 69.48, order.TotalAmount, 0.001)
	assert.Len(t, order.Items, 2)
	assert.Empty(t, s.cart.Items())

	orders, err = s.client.Orders(t.Context())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestClient_CheckoutCreditCard(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)
	s.signUp(t, "alice", "alice@x.com", "secret1")

	require.NoError(t, s.cart.Add(bookOne))
	require.NoError(t, s.cart.Add(bookOne))
	assert.InDelta(t, 29.98, s.cart.Total(), 0.001)

	order, err := s.client.Checkout(t.Context(), s.cart, models.PaymentCreditCard)
	require.NoError(t, err)
	assert.Equal(t, 29.98, order.TotalAmount)
	assert.Equal(t, string(models.OrderStatusPending), order.Status)
	assert.Empty(t, s.cart.Items())

	raw, ok, err := s.storage.Get(KeyCart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"items":[]}`, string(raw))
}

func TestClient_CheckoutEmptyCart(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)
	s.signUp(t, "bob", "bob@example.com", "secret1")

	_, err := s.client.Checkout(t.Context(), s.cart, models.PaymentCreditCard)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestClient_CheckoutRejectedKeepsCart(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)
	s.signUp(t, "carol", "carol@example.com", "secret1")
	require.NoError(t, s.cart.Add(bookTwo))

	_, err := s.client.Checkout(t.Context(), s.cart, models.PaymentMethod("cash"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Len(t, s.cart.Items(), 1)
}

// dropFirstResponse delivers the first request but loses its response.
type dropFirstResponse struct {
	dropped bool
	next    http.RoundTripper
}

func (d *dropFirstResponse) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := d.next.RoundTrip(req)
	if err != nil || d.dropped {
		return resp, err
	}
	d.dropped = true
	resp.Body.Close()
	return nil, errors.New("connection reset by peer")
}

func TestClient_CheckoutRetryReplaysOrder(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)
	s.signUp(t, "dave", "dave@example.com", "secret1")
	require.NoError(t, s.cart.Add(bookTwo))

	s.client.httpClient.Transport = &dropFirstResponse{next: http.DefaultTransport}

	_, err := s.client.Checkout(t.Context(), s.cart, models.PaymentBankTransfer)
	require.Error(t, err)
	assert.Len(t, s.cart.Items(), 1)

	order, err := s.client.Checkout(t.Context(), s.cart, models.PaymentBankTransfer)
	require.NoError(t, err)
	assert.Empty(t, s.cart.Items())

	orders, err := s.client.Orders(t.Context())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestClient_RejectedTokenClearsSessionKeepsCart(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)
	s.signUp(t, "erin", "erin@example.com", "secret1")
	require.NoError(t, s.cart.Add(bookTwo))

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  s.client.Session().User().ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	require.NoError(t, s.client.Session().SignIn(forged, s.client.Session().User()))

	_, err = s.client.Checkout(t.Context(), s.cart, models.PaymentCreditCard)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, s.client.Session().Authenticated(time.Now()))
	assert.Len(t, s.cart.Items(), 1)

	_, ok, _ := s.storage.Get(KeyToken)
	assert.False(t, ok)
}

func TestClient_UpdateProfile(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)
	s.signUp(t, "frank", "frank@example.com", "secret1")

	user, err := s.client.UpdateProfile(t.Context(), models.UpdateProfileRequest{Username: "franklin"})
	require.NoError(t, err)
	assert.Equal(t, "franklin", user.Username)
	assert.Equal(t, "franklin", s.client.Session().User().Username)

	_, err = s.client.UpdateProfile(t.Context(), models.UpdateProfileRequest{CurrentPassword: "wrong1", NewPassword: "another1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Current password is incorrect", apiErr.Message)
}

func TestClient_LoginFailureLeavesSignedOut(t *testing.T) {
	srv := newTestServer(t)
	s := newShopper(t, srv.URL)

	_, err := s.client.Login(t.Context(), "nobody@example.com", "secret1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, s.client.Session().Authenticated(time.Now()))

	_, err = s.client.Orders(t.Context())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestClient_LoginRejectsIncompleteAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"abc"}`))
	}))
	t.Cleanup(srv.Close)
	s := newShopper(t, srv.URL)

	_, err := s.client.Login(t.Context(), "alice@x.com", "secret1")
	require.Error(t, err)
	assert.Empty(t, s.client.Session().Token())
	_, ok, _ := s.storage.Get(KeyToken)
	assert.False(t, ok)
}
