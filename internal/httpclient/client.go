package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"reqchain/internal/auth"
	"reqchain/internal/config"
	"reqchain/internal/logging"
	"reqchain/internal/util"
)

// Client sends resolved requests. Each Send is a single attempt: a failure
// is reported to the caller, never retried here.
type Client struct {
	httpClient     *http.Client
	authType       string
	credentials    map[string]string
	defaultHeaders map[string]string
}

// New builds a Client from the http and auth sections of the configuration.
// Handles TLS verification skipping, proxies, NTLM negotiation, the OAuth2
// client credentials flow, and cookie jars.
func New(httpCfg *config.HTTPConfig, authCfg *config.AuthConfig) (*Client, error) {
	authType := strings.ToLower(authCfg.Type)

	baseTransport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: httpCfg.TLSSkipVerify,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if httpCfg.Proxy != "" {
		proxyURL, err := url.Parse(util.ExpandEnv(httpCfg.Proxy))
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL '%s': %w", httpCfg.Proxy, err)
		}
		baseTransport.Proxy = http.ProxyURL(proxyURL)
	}

	if httpCfg.ForceHTTP1 {
		logging.Logf(logging.Info, "Forcing HTTP/1.1 for all requests")
		baseTransport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		baseTransport.ForceAttemptHTTP2 = false
	}
	if httpCfg.TLSSkipVerify {
		logging.Logf(logging.Info, "TLS certificate verification is DISABLED")
	}

	timeout := time.Duration(httpCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultTimeoutSeconds * time.Second
	}

	var httpClient *http.Client
	var finalTransport http.RoundTripper = baseTransport

	switch authType {
	case "ntlm":
		logging.Logf(logging.Debug, "Configuring NTLM negotiating transport")
		if authCfg.Credentials["username"] == "" || authCfg.Credentials["password"] == "" {
			return nil, fmt.Errorf("ntlm authentication requires username and password in auth credentials")
		}
		finalTransport = ntlmssp.Negotiator{RoundTripper: baseTransport}

	case "oauth2":
		logging.Logf(logging.Debug, "Configuring OAuth2 client credentials flow")
		clientID := util.ExpandEnv(authCfg.Credentials["client_id"])
		clientSecret := util.ExpandEnv(authCfg.Credentials["client_secret"])
		tokenURL := util.ExpandEnv(authCfg.Credentials["token_url"])
		if clientID == "" || clientSecret == "" || tokenURL == "" {
			return nil, fmt.Errorf("oauth2 requires client_id, client_secret, and token_url in credentials")
		}
		oauthConfig := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		if scope := authCfg.Credentials["scope"]; scope != "" {
			oauthConfig.Scopes = strings.Split(scope, " ")
		}
		// Token fetches go through the same base transport as the requests
		// they authorize.
		ctxClient := &http.Client{Transport: baseTransport, Timeout: timeout}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, ctxClient)
		httpClient = oauthConfig.Client(ctx)
		httpClient.Timeout = timeout

	case "", "none", "api_key", "bearer", "basic":
		// Header-based auth is applied per request in Send.

	default:
		return nil, fmt.Errorf("unsupported authentication type '%s' for client creation", authCfg.Type)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout, Transport: finalTransport}
	}

	if httpCfg.CookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
		logging.Logf(logging.Debug, "Cookie jar enabled")
	}

	return &Client{
		httpClient:     httpClient,
		authType:       authType,
		credentials:    authCfg.Credentials,
		defaultHeaders: httpCfg.DefaultHeaders,
	}, nil
}

// Send performs one request and reads the full response body. The URL is
// validated here because only the resolved form can be checked; templated
// URLs carry placeholders until just before this call.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", req.Method, req.URL, err)
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if err := auth.ApplyHeaders(httpReq, c.authType, c.credentials); err != nil {
		return nil, err
	}

	logging.Logf(logging.Debug, "Sending %s %s", req.Method, req.URL)
	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body for %s %s: %w", req.Method, req.URL, err)
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	logging.Logf(logging.Debug, "Received %s in %s (%d bytes)", httpResp.Status, duration.Round(time.Millisecond), len(respBody))
	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
	}, nil
}

// ValidateURL checks that a URL is well-formed with an http or https scheme
// and a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme '%s' in '%s' (only http and https are allowed)", u.Scheme, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("URL '%s' must have a host", rawURL)
	}
	return nil
}
