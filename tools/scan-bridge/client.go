package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/advanced-supermart/console-backend/services/console/controllers"
	"github.com/advanced-supermart/console-backend/services/console/middleware"
)

// consoleClient calls the cashier API as a signed-in cashier.
type consoleClient struct {
	baseURL    string
	token      string
	terminalID string
	http       *http.Client
}

func newConsoleClient(baseURL, token, terminalID string) *consoleClient {
	return &consoleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		terminalID: terminalID,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

type lookupResponse struct {
	Session controllers.SessionView `json:"session"`
	Error   string                  `json:"error"`
	Code    string                  `json:"code"`
}

// APIError is a non-2xx answer from the console.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("console returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Lookup loads cartID into the terminal's checkout session.
func (c *consoleClient) Lookup(ctx context.Context, cartID string) (*controllers.SessionView, error) {
	body, err := json.Marshal(map[string]string{"cartId": cartID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cashier/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.terminalID != "" {
		req.Header.Set(middleware.TerminalHeader, c.terminalID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	defer resp.Body.Close()

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &out.Session, &APIError{Status: resp.StatusCode, Code: out.Code, Message: out.Error}
	}
	return &out.Session, nil
}
