package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TurnstileActionResponder tags the widget on the public response form
const TurnstileActionResponder = "responder"

var (
	turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	turnstileClient    = &http.Client{Timeout: 10 * time.Second}

	ErrTurnstileMissing = errors.New("missing turnstile token or secret")
)

type turnstileResult struct {
	Success    bool     `json:"success"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// VerifyTurnstileToken checks a widget token with Cloudflare. A token issued
// for another action is rejected even when Cloudflare accepts it.
func VerifyTurnstileToken(ctx context.Context, token, secretKey, ip, action string) (bool, error) {
	if token == "" || secretKey == "" {
		return false, ErrTurnstileMissing
	}

	form := url.Values{"secret": {secretKey}, "response": {token}}
	if ip != "" {
		form.Set("remoteip", ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, turnstileVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := turnstileClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile returned status %d", resp.StatusCode)
	}

	var result turnstileResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode turnstile response: %w", err)
	}
	if !result.Success {
		return false, fmt.Errorf("turnstile rejected token: %s", strings.Join(result.ErrorCodes, ", "))
	}
	if action != "" && result.Action != action {
		return false, fmt.Errorf("turnstile token issued for action %q", result.Action)
	}
	return true, nil
}
