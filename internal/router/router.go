// Package router builds the HTTP API of the bookstore: signup, login, the
// token-protected book routes and the service endpoints (ping, metrics,
// internal stats).
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bookstore/internal/authenticator"
	"github.com/patric-chuzhbe/bookstore/internal/gzippedhttp"
	"github.com/patric-chuzhbe/bookstore/internal/ipchecker"
	"github.com/patric-chuzhbe/bookstore/internal/logger"
	"github.com/patric-chuzhbe/bookstore/internal/metrics"
	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/ratelimit"
	"github.com/patric-chuzhbe/bookstore/internal/service"
)

type accountKeeper interface {
	Signup(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
}

type bookKeeper interface {
	CreateBook(ctx context.Context, payload models.BookPayload) (*models.Book, error)
	GetBook(ctx context.Context, bookID int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, bookID int64) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type statsProvider interface {
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type bookstore interface {
	accountKeeper
	bookKeeper
	pinger
	statsProvider
}

var (
	errMalformedJSON = errors.New("malformed JSON body")
	errBadBookID     = errors.New("book id must be a positive integer")
)

// Router holds the collaborators of the HTTP handlers.
type Router struct {
	service  bookstore
	validate *validator.Validate
}

type options struct {
	rateLimiter *ratelimit.RateLimiter
	ipChecker   *ipchecker.IPChecker
	enableGzip  bool
}

// Option configures the optional middlewares of New.
type Option func(*options)

// WithRateLimiter throttles /signup and /login with limiter.
func WithRateLimiter(limiter *ratelimit.RateLimiter) Option {
	return func(o *options) {
		o.rateLimiter = limiter
	}
}

// WithIPChecker lets clients from the checker's trusted subnet read /internal/stats.
func WithIPChecker(checker *ipchecker.IPChecker) Option {
	return func(o *options) {
		o.ipChecker = checker
	}
}

// WithGzip enables gzip request decoding and response compression.
func WithGzip(enable bool) Option {
	return func(o *options) {
		o.enableGzip = enable
	}
}

func newRouter(svc bookstore) *Router {
	return &Router{
		service:  svc,
		validate: models.NewValidator(),
	}
}

// New builds the full HTTP API. Book routes are guarded by authn.
func New(svc bookstore, authn authenticator.Authenticator, opts ...Option) *chi.Mux {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.rateLimiter == nil {
		o.rateLimiter = ratelimit.New(0, 0)
	}
	if o.ipChecker == nil {
		o.ipChecker, _ = ipchecker.New("")
	}

	rt := newRouter(svc)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		logger.WithLoggingHTTPMiddleware,
		metrics.InstrumentHandler,
	)
	if o.enableGzip {
		router.Use(
			gzippedhttp.UngzipRequest,
			gzippedhttp.GzipResponse,
		)
	}

	router.With(o.rateLimiter.Handler).Post(`/signup`, rt.PostSignup)
	router.With(o.rateLimiter.Handler).Post(`/login`, rt.PostLogin)
	router.Get(`/ping`, rt.GetPing)
	router.Method(http.MethodGet, `/metrics`, metrics.Handler())
	router.With(o.ipChecker.TrustedOnly).Get(`/internal/stats`, rt.GetInternalStats)

	router.Group(func(r chi.Router) {
		r.Use(authn.AuthenticateUser)
		rt.mountBooks(r)
	})

	return router
}

// NewBooksHandler serves only the book routes, guarded by authn. Passing
// authenticator.Bypass mounts them without any token check.
func NewBooksHandler(svc bookstore, authn authenticator.Authenticator) http.Handler {
	rt := newRouter(svc)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer, authn.AuthenticateUser)
	rt.mountBooks(router)

	return router
}

func (rt *Router) mountBooks(r chi.Router) {
	r.Post(`/books`, rt.PostBook)
	r.Post(`/books/`, rt.PostBook)
	r.Get(`/books`, rt.GetBooks)
	r.Get(`/books/`, rt.GetBooks)
	r.Get(`/books/{id}`, rt.GetBook)
	r.Put(`/books/{id}`, rt.PutBook)
	r.Delete(`/books/{id}`, rt.DeleteBook)
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, status int, message string) {
	if status == http.StatusUnauthorized {
		response.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(response, status, models.ErrorResponse{Error: message})
}

func (rt *Router) writeServiceError(response http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		writeError(response, http.StatusNotFound, "Book not found")
	case errors.Is(err, service.ErrPasswordTooLong):
		writeError(response, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrUserExists):
		writeError(response, http.StatusConflict, "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(response, http.StatusUnauthorized, "Incorrect email or password")
	default:
		logger.Log.Errorln(
			"request failed",
			"uri", request.RequestURI,
			"request_id", middleware.GetReqID(request.Context()),
			zap.Error(err),
		)
		writeError(response, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// decodeAndValidate reads a JSON body into dst, answering 400 for malformed
// JSON and 422 for content that fails validation. It reports whether the
// handler may go on.
func (rt *Router) decodeAndValidate(response http.ResponseWriter, request *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		logger.Log.Debugln("Error calling the `decoder.Decode()`: ", zap.Error(err))
		writeError(response, http.StatusBadRequest, fmt.Sprintf("%s: %s", errMalformedJSON, err))
		return false
	}

	if err := rt.validate.Struct(dst); err != nil {
		writeError(response, http.StatusUnprocessableEntity, validationMessage(err))
		return false
	}

	return true
}

func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fmt.Sprintf("field '%s' failed on '%s'", fieldErr.Field(), fieldErr.Tag()))
	}

	return strings.Join(messages, "; ")
}

func bookIDFromRequest(request *http.Request) (int64, error) {
	bookID, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil || bookID <= 0 {
		return 0, errBadBookID
	}

	return bookID, nil
}

func (rt *Router) PostSignup(response http.ResponseWriter, request *http.Request) {
	var credentials models.CredentialsRequest
	if !rt.decodeAndValidate(response, request, &credentials) {
		metrics.RecordAuthEvent("signup", "invalid_request")
		return
	}

	err := rt.service.Signup(request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		metrics.RecordAuthEvent("signup", "failure")
		rt.writeServiceError(response, request, err)
		return
	}

	metrics.RecordAuthEvent("signup", "success")
	writeJSON(response, http.StatusOK, models.MessageResponse{Message: models.MsgUserCreated})
}

func (rt *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var credentials models.CredentialsRequest
	if !rt.decodeAndValidate(response, request, &credentials) {
		metrics.RecordAuthEvent("login", "invalid_request")
		return
	}

	token, err := rt.service.Login(request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		metrics.RecordAuthEvent("login", "failure")
		rt.writeServiceError(response, request, err)
		return
	}

	metrics.RecordAuthEvent("login", "success")
	writeJSON(response, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   models.TokenTypeBearer,
	})
}

func (rt *Router) PostBook(response http.ResponseWriter, request *http.Request) {
	var payload models.BookPayload
	if !rt.decodeAndValidate(response, request, &payload) {
		return
	}

	book, err := rt.service.CreateBook(request.Context(), payload)
	if err != nil {
		rt.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, book)
}

func (rt *Router) GetBooks(response http.ResponseWriter, request *http.Request) {
	books, err := rt.service.ListBooks(request.Context())
	if err != nil {
		rt.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, books)
}

func (rt *Router) GetBook(response http.ResponseWriter, request *http.Request) {
	bookID, err := bookIDFromRequest(request)
	if err != nil {
		writeError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	book, err := rt.service.GetBook(request.Context(), bookID)
	if err != nil {
		rt.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, book)
}

// PutBook applies a partial update: only the fields present in the body change.
func (rt *Router) PutBook(response http.ResponseWriter, request *http.Request) {
	bookID, err := bookIDFromRequest(request)
	if err != nil {
		writeError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var patch models.BookPatch
	if !rt.decodeAndValidate(response, request, &patch) {
		return
	}

	book, err := rt.service.UpdateBook(request.Context(), bookID, patch)
	if err != nil {
		rt.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, book)
}

func (rt *Router) DeleteBook(response http.ResponseWriter, request *http.Request) {
	bookID, err := bookIDFromRequest(request)
	if err != nil {
		writeError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := rt.service.DeleteBook(request.Context(), bookID); err != nil {
		rt.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: models.MsgBookDeleted})
}

func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.service.Ping(request.Context()); err != nil {
		logger.Log.Errorln("Error calling the `rt.service.Ping()`: ", zap.Error(err))
		writeError(response, http.StatusInternalServerError, "storage is unavailable")
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (rt *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := rt.service.GetInternalStats(request.Context())
	if err != nil {
		rt.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}
