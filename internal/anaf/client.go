package anaf

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jaevor/go-nanoid"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/domain"
)

const (
	maxRetries    = 3
	backoffFactor = 0.5
)

// retryStatusCodes lists the responses the session layer retries before
// surfacing a failure. Everything else fails on the first exchange.
var retryStatusCodes = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client is one authenticated channel to the ANAF e-Factura API. A client
// is scoped to a single submission attempt: authentication happens at
// construction and credential material is removed by Close. Upload and
// status calls run on separate sessions because they carry different
// per-attempt timeouts.
type Client struct {
	upload      *retryablehttp.Client
	status      *retryablehttp.Client
	baseURL     string
	accessToken string
	certFile    string
	keyFile     string
	newID       func() string
}

// NewClient builds a client authenticated per the settings. Construction
// fails hard on authentication problems; callers never receive a
// partially-authenticated client. Callers must Close the client.
func NewClient(ctx context.Context, cfg *config.AnafConfig) (*Client, error) {
	return newClient(ctx, cfg, cfg.BaseURL())
}

func newClient(ctx context.Context, cfg *config.AnafConfig, baseURL string) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPreconditionFailed, err)
	}

	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("initializing idempotency key generator: %w", err)
	}

	c := &Client{
		upload:  newSession(cfg.UploadTimeout),
		status:  newSession(cfg.StatusTimeout),
		baseURL: baseURL,
		newID:   newID,
	}

	switch cfg.AuthMethod {
	case config.AuthCertificate:
		if err := c.setupCertificateAuth(cfg); err != nil {
			c.Close()
			return nil, err
		}
	case config.AuthOAuth2:
		if err := c.setupOAuth(ctx, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: invalid authentication method %q", domain.ErrPreconditionFailed, cfg.AuthMethod)
	}

	return c, nil
}

// newSession builds one retrying session. The timeout applies per attempt,
// so a retried exchange is not starved by the backoff taken between tries.
func newSession(timeout time.Duration) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.CheckRetry = checkRetry
	rc.Backoff = backoff
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	return rc
}

// overallBudget caps a retried exchange end to end: every attempt at its
// per-attempt timeout plus the full backoff schedule between them.
func overallBudget(perAttempt time.Duration) time.Duration {
	budget := perAttempt * time.Duration(maxRetries+1)
	for i := 0; i < maxRetries; i++ {
		budget += backoff(0, 0, i, nil)
	}
	return budget
}

// setupCertificateAuth materializes the decrypted certificate and key into
// 0600 temp files, loads them as the client certificate, and records the
// paths so Close can remove them on every exit path.
func (c *Client) setupCertificateAuth(cfg *config.AnafConfig) error {
	certPEM, err := cfg.DecryptedCertificate()
	if err != nil {
		return fmt.Errorf("%w: client certificate: %v", domain.ErrSecurityConfiguration, err)
	}
	keyPEM, err := cfg.DecryptedPrivateKey()
	if err != nil {
		return fmt.Errorf("%w: private key: %v", domain.ErrSecurityConfiguration, err)
	}

	if c.certFile, err = writeCredentialFile("anaf-cert-*.pem", certPEM); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSecurityConfiguration, err)
	}
	if c.keyFile, err = writeCredentialFile("anaf-key-*.pem", keyPEM); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSecurityConfiguration, err)
	}

	pair, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return fmt.Errorf("%w: loading client certificate: %v", domain.ErrSecurityConfiguration, err)
	}

	transport := c.upload.HTTPClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	base, ok := transport.(*http.Transport)
	if !ok {
		base = http.DefaultTransport.(*http.Transport)
	}
	mtls := base.Clone()
	mtls.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{pair}}
	c.upload.HTTPClient.Transport = mtls
	c.status.HTTPClient.Transport = mtls

	return nil
}

// setupOAuth performs the client-credentials exchange eagerly so that a
// bad credential set aborts construction instead of the first upload.
func (c *Client) setupOAuth(ctx context.Context, cfg *config.AnafConfig) error {
	clientID, clientSecret, err := cfg.OAuthCredentials()
	if err != nil {
		return fmt.Errorf("%w: OAuth credentials: %v", domain.ErrSecurityConfiguration, err)
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.baseURL + "/oauth2/token",
	}
	token, err := conf.Token(ctx)
	if err != nil {
		slog.Error("ANAF OAuth2 token exchange failed", "error", err.Error())
		return fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}
	c.accessToken = token.AccessToken

	return nil
}

// SendXml submits signed XML to the upload endpoint and returns the
// normalized result. Connection-level retries are handled by the session;
// the configured timeout applies to each attempt, with an overall cap on
// the retried exchange.
func (c *Client) SendXml(ctx context.Context, signedXML []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, overallBudget(c.upload.HTTPClient.Timeout))
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(signedXML))
	if err != nil {
		return nil, fmt.Errorf("%w: building upload request: %v", domain.ErrCommunication, err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Idempotency-Key", c.newID())
	c.authorize(req)

	resp, err := c.upload.Do(req)
	if err != nil {
		if isTimeout(err) {
			slog.Error("ANAF API timeout occurred", "endpoint", "upload")
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		slog.Error("XML submission failed", "endpoint", "upload", "error", err.Error())
		return nil, fmt.Errorf("%w: XML submission failed: %v", domain.ErrCommunication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("XML submission failed", "endpoint", "upload", "status_code", resp.StatusCode)
		return nil, fmt.Errorf("%w: upload returned status %d", domain.ErrCommunication, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding upload response: %v", domain.ErrCommunication, err)
	}

	return normalize(payload), nil
}

// CheckStatus polls the submission identified by the ANAF correlation id.
// Polling is expected to observe transient non-success states, so business
// and transport failures are both reported as error Results, not errors.
func (c *Client) CheckStatus(ctx context.Context, uuid string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, overallBudget(c.status.HTTPClient.Timeout))
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+uuid, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building status request: %v", domain.ErrCommunication, err)
	}
	c.authorize(req)

	resp, err := c.status.Do(req)
	if err != nil {
		slog.Error("status check failed", "uuid", uuid, "error", err.Error())
		return errorResult(err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("status check failed", "uuid", uuid, "status_code", resp.StatusCode)
		return errorResult(fmt.Errorf("status check returned status %d", resp.StatusCode)), nil
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return errorResult(err), nil
	}

	return normalize(payload), nil
}

// Close removes credential material materialized for this client. Safe to
// call multiple times and on partially constructed clients.
func (c *Client) Close() {
	for _, path := range []string{c.certFile, c.keyFile} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("certificate cleanup failed", "path", path, "error", err.Error())
		}
	}
	c.certFile, c.keyFile = "", ""
}

func (c *Client) authorize(req *retryablehttp.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}

func writeCredentialFile(pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("creating credential file: %w", err)
	}
	defer f.Close()

	if err := f.Chmod(0o600); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("restricting credential file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing credential file: %w", err)
	}
	return f.Name(), nil
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return resp != nil && retryStatusCodes[resp.StatusCode], nil
}

// backoff scales 0.5s by powers of two per attempt: 0.5s, 1s, 2s.
func backoff(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	return time.Duration(backoffFactor * math.Pow(2, float64(attemptNum)) * float64(time.Second))
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
