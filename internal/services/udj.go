package services

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
)

// DefaultTimeout bounds every remote call when no client is supplied.
const DefaultTimeout = 30 * time.Second

const (
	authPath     = "/auth"
	playlistPath = "/playlist"
	libraryPath  = "/library"
)

// Form field names shared with the server.
const (
	FieldUsername    = "username"
	FieldPassword    = "password"
	FieldTimestamp   = "timestamp"
	FieldUpdateArray = "updatearray"
)

var _ RemoteClient = (*UDJService)(nil)

// UDJService talks to a UDJ server over form-encoded POSTs.
type UDJService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewHTTPClient builds a client whose dial, TLS handshake, response header and total time are bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          4,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewUDJService creates a client for the server at baseURL.
// A nil client is replaced by one from [NewHTTPClient] with [DefaultTimeout].
func NewUDJService(baseURL string, client *http.Client, logger *log.Logger) *UDJService {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &UDJService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

// BaseURL returns the server root without a trailing slash.
func (s *UDJService) BaseURL() string { return s.baseURL }

// Authenticate posts the credentials to the auth endpoint.
//
// A 200 confirms them. 401 and 403 reject them (false, nil). Any other status or a transport error is returned as an
// error, never as success.
func (s *UDJService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	form := url.Values{}
	form.Set(FieldUsername, username)
	form.Set(FieldPassword, password)

	status, _, err := s.post(ctx, authPath, form)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		s.logger.Debug("credentials rejected", "username", username, "status", status)
		return false, nil
	default:
		return false, fmt.Errorf("%w: auth returned status %d", shared.ErrTransport, status)
	}
}

// AttemptAuth runs [UDJService.Authenticate] on its own goroutine.
// The returned channel receives exactly one result and is then closed.
func (s *UDJService) AttemptAuth(ctx context.Context, username, password string) <-chan AuthResult {
	results := make(chan AuthResult, 1)
	go func() {
		defer close(results)
		ok, err := s.Authenticate(ctx, username, password)
		results <- AuthResult{OK: ok, Err: err}
	}()
	return results
}

// ExchangePlaylistDelta uploads local and returns the server's playlist changes in server order.
func (s *UDJService) ExchangePlaylistDelta(ctx context.Context, identity, token string, local []models.PlaylistEntry, since *time.Time) ([]models.PlaylistEntry, error) {
	updates, err := EncodeUpdateArray(local)
	if err != nil {
		return nil, err
	}

	form := s.credentials(identity, token, since)
	form.Set(FieldUpdateArray, updates)

	body, err := s.exchange(ctx, playlistPath, form)
	if err != nil {
		return nil, err
	}

	entries, err := DecodePlaylistEntries(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("playlist exchanged", "sent", len(local), "received", len(entries))
	return entries, nil
}

// FetchLibraryDelta returns the library changes since the given instant.
func (s *UDJService) FetchLibraryDelta(ctx context.Context, identity, token string, since *time.Time) ([]models.LibraryEntry, error) {
	body, err := s.exchange(ctx, libraryPath, s.credentials(identity, token, since))
	if err != nil {
		return nil, err
	}

	entries, err := DecodeLibraryEntries(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("library fetched", "received", len(entries))
	return entries, nil
}

func (s *UDJService) credentials(identity, token string, since *time.Time) url.Values {
	form := url.Values{}
	form.Set(FieldUsername, identity)
	form.Set(FieldPassword, token)
	if since != nil {
		form.Set(FieldTimestamp, shared.FormatServerTimestamp(*since))
	}
	return form
}

// exchange posts form and maps the status: 200 returns the body, 401 is an auth failure, anything else is transport.
func (s *UDJService) exchange(ctx context.Context, path string, form url.Values) ([]byte, error) {
	status, body, err := s.post(ctx, path, form)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status %d", shared.ErrAuthFailed, status)
	default:
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrTransport, path, status)
	}
}

func (s *UDJService) post(ctx context.Context, path string, form url.Values) (int, []byte, error) {
	fullURL := s.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to create request: %w", shared.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: request failed: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrTransport, err)
	}

	s.logger.Debug("remote call", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp.StatusCode, body, nil
}
