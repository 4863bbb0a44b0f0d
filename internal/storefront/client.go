package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/middleware"
	"bookstore/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrEmptyCart       = errors.New("cart is empty")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	logger     zerolog.Logger
}

func NewClient(baseURL string, session *Session, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		session:    session,
		logger:     logger,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var resp models.RegisterResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login signs in and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, errors.New("decode response: login answer lacks token or user")
	}
	if err := c.session.SignIn(resp.Token, resp.User); err != nil {
		return nil, err
	}
	c.logger.Info().Str("user_id", resp.User.ID).Msg("Signed in")
	return resp.User, nil
}

func (c *Client) Logout() error {
	return c.session.SignOut()
}

// Orders lists the signed-in user's orders. No orders yields an empty slice.
func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	_, err := c.doAuthed(ctx, http.MethodGet, "/api/orders", nil, nil, &orders)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateProfile changes the user on the server and refreshes the stored snapshot.
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var user models.User
	if _, err := c.doAuthed(ctx, http.MethodPut, "/api/users", nil, req, &user); err != nil {
		return nil, err
	}
	if err := c.session.UpdateUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Checkout submits the cart as an order. The cart is cleared only when the
// server accepts the order; a retry after a lost response reuses the same
// idempotency key and gets the first order back.
func (c *Client) Checkout(ctx context.Context, cart *Cart, paymentMethod models.PaymentMethod) (*models.Order, error) {
	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	key, err := cart.checkoutKey()
	if err != nil {
		return nil, err
	}

	req := models.CreateOrderRequest{
		Items:         make([]models.OrderItem, 0, len(items)),
		PaymentMethod: string(paymentMethod),
		TotalAmount:   cart.Total(),
	}
	for _, it := range items {
		req.Items = append(req.Items, models.OrderItem{
			BookID:   it.BookID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	headers := http.Header{}
	headers.Set("Idempotency-Key", key)

	var order models.Order
	status, err := c.doAuthed(ctx, http.MethodPost, "/api/orders", headers, req, &order)
	if err != nil {
		return nil, err
	}

	if err := cart.Clear(); err != nil {
		c.logger.Error().Err(err).Str("order_id", order.ID).Msg("Order placed but cart not cleared")
	}
	c.logger.Info().Str("order_id", order.ID).Bool("replayed", status == http.StatusOK).Msg("Order placed")
	return &order, nil
}

// doAuthed requires a live session and drops it when the server rejects the token.
func (c *Client) doAuthed(ctx context.Context, method, path string, headers http.Header, body, out any) (int, error) {
	if !c.session.Authenticated(time.Now()) {
		return 0, ErrUnauthenticated
	}
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set(middleware.TokenHeader, c.session.Token())

	status, err := c.do(ctx, method, path, headers, body, out)
	if status == http.StatusUnauthorized {
		if serr := c.session.SignOut(); serr != nil {
			c.logger.Error().Err(serr).Msg("Failed to clear session")
		}
		return status, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return status, err
}

func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody middleware.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&errBody)
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Code: errBody.Error, Message: errBody.Message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
