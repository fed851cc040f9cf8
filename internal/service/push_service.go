package service

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/cache"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
	"github.com/rafah-clos/request-service/pkg/util"
)

const (
	fcmScope          = "https://www.googleapis.com/auth/firebase.messaging"
	fcmSendURLFormat  = "https://fcm.googleapis.com/v1/projects/%s/messages:send"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	jwtBearerGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	tokenEarlyRefresh = 60 * time.Second
)

// serviceAccount is the subset of the Firebase service-account JSON the push
// sender needs.
type serviceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// PushService registers device tokens and delivers FCM v1 notifications.
// The OAuth access token lives only in the injected cache.
type PushService struct {
	tokens     store.PushTokenStore
	tokenCache cache.TokenCache
	httpClient *http.Client
	logger     *zap.Logger
	account    *serviceAccount
	signingKey *rsa.PrivateKey
	now        func() time.Time
}

// PushDependencies bundles collaborators for PushService.
type PushDependencies struct {
	TokenStore store.PushTokenStore
	TokenCache cache.TokenCache
	HTTPClient *http.Client
	Logger     *zap.Logger
	// ServiceAccountB64 is the base64-encoded service-account JSON. Empty
	// disables delivery; registration still works.
	ServiceAccountB64 string
}

// NewPushService constructs the service. A malformed service account is an
// error; a missing one only disables sending.
func NewPushService(deps PushDependencies) (*PushService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	svc := &PushService{
		tokens:     deps.TokenStore,
		tokenCache: deps.TokenCache,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}

	if deps.ServiceAccountB64 != "" {
		account, key, err := parseServiceAccount(deps.ServiceAccountB64)
		if err != nil {
			return nil, fmt.Errorf("parse firebase service account: %w", err)
		}
		svc.account = account
		svc.signingKey = key
	} else {
		logger.Info("push delivery disabled: no firebase service account configured")
	}

	return svc, nil
}

func parseServiceAccount(encoded string) (*serviceAccount, *rsa.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, nil, err
	}
	var account serviceAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, nil, err
	}
	if account.ProjectID == "" || account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, nil, fmt.Errorf("service account missing project_id, client_email, or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = googleTokenURL
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return nil, nil, err
	}
	return &account, key, nil
}

// Enabled reports whether delivery credentials are configured.
func (s *PushService) Enabled() bool {
	return s.account != nil
}

// RegisterInput describes a device token registration.
type RegisterInput struct {
	FCMToken   string
	Platform   string
	DeviceID   string
	AppVersion string
	UserAgent  string
}

// Register upserts the device token for the authenticated identity.
func (s *PushService) Register(ctx context.Context, identity *domain.Identity, in RegisterInput) error {
	token := strings.TrimSpace(in.FCMToken)
	if token == "" {
		return util.NewMalformedRequest("fcm_token is required", nil)
	}

	now := s.now()
	return s.tokens.Upsert(ctx, &domain.PushToken{
		FCMToken:   token,
		Username:   identity.Username,
		Role:       identity.Role,
		Platform:   strings.TrimSpace(in.Platform),
		DeviceID:   strings.TrimSpace(in.DeviceID),
		AppVersion: strings.TrimSpace(in.AppVersion),
		UserAgent:  in.UserAgent,
		Enabled:    true,
		LastSeenAt: now,
		UpdatedAt:  now,
	})
}

// NotifyAgent sends a notification to every device registered by the agent.
func (s *PushService) NotifyAgent(ctx context.Context, username, title, body string, data map[string]string) {
	if !s.Enabled() {
		return
	}
	tokens, err := s.tokens.ListByUsername(ctx, username)
	if err != nil {
		s.logger.Warn("push token lookup failed", zap.String("username", username), zap.Error(err))
		return
	}
	s.deliver(ctx, tokens, title, body, data)
}

// NotifyRole fans a notification out to every device registered under the role.
func (s *PushService) NotifyRole(ctx context.Context, role domain.Role, title, body string, data map[string]string) {
	if !s.Enabled() {
		return
	}
	tokens, err := s.tokens.ListByRole(ctx, role)
	if err != nil {
		s.logger.Warn("push token lookup failed", zap.String("role", string(role)), zap.Error(err))
		return
	}
	s.deliver(ctx, tokens, title, body, data)
}

// deliver is best effort: a failed device never blocks the rest.
func (s *PushService) deliver(ctx context.Context, tokens []domain.PushToken, title, body string, data map[string]string) {
	if len(tokens) == 0 {
		return
	}

	accessToken, err := s.accessToken(ctx)
	if err != nil {
		s.logger.Warn("fcm access token unavailable", zap.Error(err))
		return
	}

	sent := 0
	for _, token := range tokens {
		if !token.Enabled {
			continue
		}
		if err := s.send(ctx, accessToken, token.FCMToken, title, body, data); err != nil {
			s.logger.Warn("fcm send failed", zap.String("username", token.Username), zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Debug("push delivered", zap.Int("sent", sent), zap.Int("targets", len(tokens)))
}

func (s *PushService) send(ctx context.Context, accessToken, deviceToken, title, body string, data map[string]string) error {
	message := map[string]any{
		"message": map[string]any{
			"token": deviceToken,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
		},
	}
	if len(data) > 0 {
		message["message"].(map[string]any)["data"] = data
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	sendURL := fmt.Sprintf(fcmSendURLFormat, s.account.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fcm send status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

// accessToken returns a valid OAuth access token, minting a new one through a
// signed service-account assertion when the cache misses.
func (s *PushService) accessToken(ctx context.Context) (string, error) {
	if s.tokenCache != nil {
		if token, ok, err := s.tokenCache.Get(ctx); err == nil && ok {
			return token, nil
		} else if err != nil {
			s.logger.Warn("token cache read failed", zap.Error(err))
		}
	}

	token, expiresIn, err := s.mintAccessToken(ctx)
	if err != nil {
		return "", err
	}

	if s.tokenCache != nil && expiresIn > tokenEarlyRefresh {
		if err := s.tokenCache.Set(ctx, token, expiresIn-tokenEarlyRefresh); err != nil {
			s.logger.Warn("token cache write failed", zap.Error(err))
		}
	}
	return token, nil
}

func (s *PushService) mintAccessToken(ctx context.Context) (string, time.Duration, error) {
	now := s.now()
	assertion := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   s.account.ClientEmail,
		"scope": fcmScope,
		"aud":   s.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	signed, err := assertion.SignedString(s.signingKey)
	if err != nil {
		return "", 0, err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", signed)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", 0, fmt.Errorf("oauth token status %d: %s", resp.StatusCode, string(snippet))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", 0, err
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("oauth response missing access_token")
	}
	return tokenResp.AccessToken, time.Duration(tokenResp.ExpiresIn) * time.Second, nil
}
