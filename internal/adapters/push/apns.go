package push

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/config"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

const (
	developmentHost = "https://api.sandbox.push.apple.com"
	productionHost  = "https://api.push.apple.com"

	// Apple rejects provider tokens older than an hour; refresh before that.
	providerTokenTTL = 50 * time.Minute

	notificationExpiry = time.Hour
)

// APNsSender implements ports.PushSender against Apple's provider API
// using token-based (ES256 / .p8) authentication. When the credentials are
// missing the sender stays unconfigured and every Send returns a failure
// result, mirroring a provider that never came up.
type APNsSender struct {
	cfg    config.APNsConfig
	host   string
	key    *ecdsa.PrivateKey
	client *http.Client
	logger *logger.Logger

	mu          sync.Mutex
	bearerToken string
	issuedAt    time.Time
}

// NewAPNsSender creates the sender. Missing or unreadable credentials are
// logged, not fatal: the app runs with push disabled.
func NewAPNsSender(cfg config.APNsConfig, log *logger.Logger) *APNsSender {
	s := &APNsSender{
		cfg:    cfg,
		host:   developmentHost,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
	if cfg.Production {
		s.host = productionHost
	}

	if !cfg.IsConfigured() {
		log.Infow("APNs not configured, push notifications disabled",
			"hint", "set APNS_KEY_PATH, APNS_KEY_ID and APNS_TEAM_ID to enable")
		return s
	}

	key, err := loadSigningKey(cfg.KeyPath)
	if err != nil {
		log.Errorw("APNs key load failed, push notifications disabled", "error", err)
		return s
	}

	s.key = key
	log.Infow("APNs initialized", "production", cfg.Production, "bundle_id", cfg.BundleID)
	return s
}

// IsConfigured reports whether the sender holds a usable signing key.
func (s *APNsSender) IsConfigured() bool {
	return s.key != nil
}

// Send pushes one alert to one device and reports per-device outcome.
// A transport-level failure returns an error; an APNs rejection (bad
// token, expired token) comes back in the Failed list.
func (s *APNsSender) Send(ctx context.Context, deviceToken, title, body string, payload map[string]interface{}) (*entities.PushResult, error) {
	if !s.IsConfigured() {
		return &entities.PushResult{
			Failed: []entities.PushFailure{{Device: deviceToken, Reason: "APNs not configured"}},
		}, nil
	}

	bearer, err := s.providerToken()
	if err != nil {
		return nil, fmt.Errorf("provider token: %w", err)
	}

	aps := map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": map[string]string{
				"title": title,
				"body":  body,
			},
			"badge": 1,
			"sound": "default",
		},
	}
	for k, v := range payload {
		aps[k] = v
	}

	reqBody, err := json.Marshal(aps)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/3/device/%s", s.host, deviceToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("authorization", "bearer "+bearer)
	req.Header.Set("apns-topic", s.cfg.BundleID)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("apns-expiration", fmt.Sprintf("%d", time.Now().Add(notificationExpiry).Unix()))
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return &entities.PushResult{Sent: []string{deviceToken}}, nil
	}

	reason := parseRejection(resp.Body)
	s.logger.Warnw("APNs rejected notification",
		"status", resp.StatusCode,
		"reason", reason,
	)

	return &entities.PushResult{
		Failed: []entities.PushFailure{{Device: deviceToken, Reason: reason}},
	}, nil
}

// providerToken returns a cached ES256 provider token, minting a fresh one
// when the cached token nears Apple's one-hour limit.
func (s *APNsSender) providerToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bearerToken != "" && time.Since(s.issuedAt) < providerTokenTTL {
		return s.bearerToken, nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": s.cfg.TeamID,
		"iat": now.Unix(),
	})
	token.Header["kid"] = s.cfg.KeyID

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign provider token: %w", err)
	}

	s.bearerToken = signed
	s.issuedAt = now
	return signed, nil
}

func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 key: %w", err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key in %s is not ECDSA", path)
	}

	return key, nil
}

func parseRejection(body io.Reader) string {
	var apnsErr struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(body).Decode(&apnsErr); err != nil || apnsErr.Reason == "" {
		return "unknown"
	}
	return apnsErr.Reason
}

var _ ports.PushSender = (*APNsSender)(nil)
