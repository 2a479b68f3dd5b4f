// Package client is a resty based client of the bookstore HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/bookstore/internal/models"
)

const defaultTimeout = 10 * time.Second

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bookstore API error (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	http *resty.Client
}

type Option func(*Client)

// WithToken makes every request carry "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.http.SetAuthToken(token)
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Signup(ctx context.Context, email, password string) (string, error) {
	var result models.MessageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.CredentialsRequest{Email: email, Password: password}).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Post("/signup")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}

	return result.Message, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	var result models.TokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.CredentialsRequest{Email: email, Password: password}).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Post("/login")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	result := []models.Book{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Get("/books/")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var result models.Book
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Get("/books/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) CreateBook(ctx context.Context, payload models.BookPayload) (*models.Book, error) {
	var result models.Book
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Post("/books/")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, patch models.BookPatch) (*models.Book, error) {
	var result models.Book
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetBody(patch).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Put("/books/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int64) (string, error) {
	var result models.MessageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&result).
		SetError(&models.ErrorResponse{}).
		Delete("/books/{id}")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}

	return result.Message, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf(
			"in internal/client/client.go/checkResponse(): error while `resty.Request.Execute()` calling: %w",
			err,
		)
	}

	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	if body, ok := resp.Error().(*models.ErrorResponse); ok && body.Error != "" {
		apiErr.Message = body.Error
	}

	return apiErr
}
