package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SMSSender delivers text messages to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// DefaultPlumSMSPath is used when PlumConfig.SMSPath is empty.
const DefaultPlumSMSPath = "sms/send"

// PlumConfig holds Plum gateway credentials. SMSPath is relative to BaseURL.
type PlumConfig struct {
	BaseURL  string
	SMSPath  string
	Username string
	Password string
	Enabled  bool
}

// PlumService sends SMS through the Plum HTTP API and caches its auth token.
type PlumService struct {
	cfg    PlumConfig
	client *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewPlumService creates a PlumService. A nil client gets a 15 second timeout.
func NewPlumService(cfg PlumConfig, client *http.Client) *PlumService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.SMSPath = strings.TrimLeft(cfg.SMSPath, "/")
	if cfg.SMSPath == "" {
		cfg.SMSPath = DefaultPlumSMSPath
	}
	return &PlumService{cfg: cfg, client: client}
}

type plumAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (s *PlumService) getToken(ctx context.Context, force bool) (string, error) {
	if !force {
		s.mu.RLock()
		if s.token != "" && time.Now().Before(s.tokenExpiry) {
			t := s.token
			s.mu.RUnlock()
			return t, nil
		}
		s.mu.RUnlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if !force && s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"username": s.cfg.Username,
		"password": s.cfg.Password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("plum auth request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("plum auth request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("plum auth failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var authResp plumAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", fmt.Errorf("plum auth unmarshal: %w", err)
	}
	if authResp.Token == "" {
		return "", errors.New("plum auth: empty token")
	}

	s.token = authResp.Token
	if authResp.ExpiresIn > 0 {
		s.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - 30*time.Second)
	} else {
		s.tokenExpiry = time.Now().Add(55 * time.Minute)
	}

	return s.token, nil
}

func (s *PlumService) post(ctx context.Context, path string, body any, token string) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("plum request marshal: %w", err)
	}

	url := s.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("plum request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("plum request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}

// do performs an authenticated call, refreshing the token once on 401.
func (s *PlumService) do(ctx context.Context, path string, body any) (int, []byte, error) {
	token, err := s.getToken(ctx, false)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := s.post(ctx, path, body, token)
	if err != nil {
		return 0, nil, err
	}

	if status == http.StatusUnauthorized {
		token, err = s.getToken(ctx, true)
		if err != nil {
			return 0, nil, err
		}
		return s.post(ctx, path, body, token)
	}

	return status, respBody, nil
}

// SendSMS delivers message to phone. When Plum is disabled the message is only logged.
func (s *PlumService) SendSMS(ctx context.Context, phone, message string) error {
	if !s.cfg.Enabled {
		log.Printf("[Plum] disabled, SMS to %s not sent", phone)
		return nil
	}

	status, body, err := s.do(ctx, s.cfg.SMSPath, map[string]string{
		"phone":   phone,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("plum send sms: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("plum send sms: status %d, body: %s", status, string(body))
	}
	return nil
}
