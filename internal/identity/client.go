package identity

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// minJWKSRefresh bounds how often an unknown key id can trigger a JWKS fetch.
const minJWKSRefresh = time.Minute

// maxAuthAge is how long after the user signed in a token may open a session.
const maxAuthAge = 5 * time.Minute

// Config configures a Client.
type Config struct {
	ProjectID  string
	Issuer     string
	JWKSURL    string
	APIBaseURL string
	AdminToken string
	Timeout    time.Duration
}

// Client implements Provider over HTTPS.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewClient creates a Client. Signing keys are fetched lazily.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		now:  time.Now,
		keys: map[string]*rsa.PublicKey{},
	}
}

// VerifyIDToken checks the token signature against the provider keys together
// with its issuer, audience, expiry and subject. The sign-in recorded in
// auth_time must be recent.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return c.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if err := c.checkAuthTime(claims); err != nil {
		return nil, err
	}

	tok := &Token{UID: sub, Claims: map[string]any(claims)}
	tok.Email, _ = claims["email"].(string)
	tok.Name, _ = claims["name"].(string)
	tok.Picture, _ = claims["picture"].(string)
	return tok, nil
}

func (c *Client) checkAuthTime(claims jwt.MapClaims) error {
	var authTime time.Time
	switch v := claims["auth_time"].(type) {
	case float64:
		authTime = time.Unix(int64(v), 0)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return fmt.Errorf("%w: malformed auth_time", ErrInvalidToken)
		}
		authTime = time.Unix(n, 0)
	default:
		return fmt.Errorf("%w: missing auth_time", ErrInvalidToken)
	}
	if c.now().Sub(authTime) > maxAuthAge {
		return fmt.Errorf("%w: sign-in is older than %s", ErrInvalidToken, maxAuthAge)
	}
	return nil
}

func (c *Client) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("token has no kid header")
	}

	c.mu.RLock()
	key, ok := c.keys[kid]
	stale := c.now().Sub(c.fetchedAt) >= minJWKSRefresh
	c.mu.RUnlock()
	if ok {
		return key, nil
	}
	if !stale {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	if err := c.refreshKeys(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

type jwks struct {
	Keys []struct {
		KTY string `json:"kty"`
		KID string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (c *Client) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.KTY != "RSA" || k.KID == "" {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			log.Warn().Err(err).Str("kid", k.KID).Msg("skipping malformed jwk")
			continue
		}
		keys[k.KID] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.mu.Unlock()

	log.Debug().Int("keys", len(keys)).Msg("identity signing keys refreshed")
	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() < 3 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}

type accountRecord struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	CustomAttributes string `json:"customAttributes"`
}

func (a accountRecord) toUserRecord() (*UserRecord, error) {
	rec := &UserRecord{
		UID:          a.LocalID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		CustomClaims: map[string]any{},
	}
	if a.CustomAttributes != "" {
		if err := json.Unmarshal([]byte(a.CustomAttributes), &rec.CustomClaims); err != nil {
			return nil, fmt.Errorf("decode custom claims of %s: %w", a.LocalID, err)
		}
	}
	return rec, nil
}

// GetUser looks an account up by uid.
func (c *Client) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	return c.lookup(ctx, map[string]any{"localId": []string{uid}})
}

// GetUserByEmail looks an account up by email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return c.lookup(ctx, map[string]any{"email": []string{email}})
}

func (c *Client) lookup(ctx context.Context, body map[string]any) (*UserRecord, error) {
	var resp struct {
		Users []accountRecord `json:"users"`
	}
	if err := c.call(ctx, "accounts:lookup", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, ErrUserNotFound
	}
	return resp.Users[0].toUserRecord()
}

// SetCustomClaims replaces the custom claims of uid. Callers merge first.
func (c *Client) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	encoded, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("encode custom claims: %w", err)
	}
	body := map[string]any{
		"localId":          uid,
		"customAttributes": string(encoded),
	}
	return c.call(ctx, "accounts:update", body, nil)
}

func (c *Client) call(ctx context.Context, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/%s", c.cfg.APIBaseURL, url.PathEscape(c.cfg.ProjectID), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AdminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AdminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode == http.StatusBadRequest && bytes.Contains(msg, []byte("USER_NOT_FOUND")) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
