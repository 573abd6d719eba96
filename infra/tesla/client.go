package tesla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkrogh/nightcharge/infra/logger"
)

// AuthMode identifies which credential mode the client was built with.
// It is the only credential context surfaced in errors; secret values
// never leave the client.
type AuthMode string

const (
	AuthModeToken    AuthMode = "token"
	AuthModePassword AuthMode = "password"
)

// AuthError reports a rejected credential.
type AuthError struct {
	Mode   AuthMode
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("vehicle api rejected %s credentials (http %d)", e.Mode, e.Status)
}

// Permanent marks the error as non-retryable.
func (e *AuthError) Permanent() bool { return true }

// Config holds the vehicle API endpoint and credentials. Token and
// email/password are mutually exclusive.
type Config struct {
	BaseURL  string
	Token    string
	Email    string
	Password string
}

// Client talks to the Tesla owner API.
type Client struct {
	base  string
	token string
	mode  AuthMode
	httpc *http.Client
	log   logger.Logger
}

// NewClient builds a client. In password mode the credentials are
// exchanged for a bearer token immediately, so a bad credential
// surfaces at startup rather than mid-run.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{
		base:  cfg.BaseURL,
		httpc: &http.Client{Timeout: 30 * time.Second},
		log:   logger.New("tesla"),
	}
	if cfg.Token != "" {
		c.token = cfg.Token
		c.mode = AuthModeToken
		return c, nil
	}
	c.mode = AuthModePassword
	if err := c.login(ctx, cfg.Email, cfg.Password); err != nil {
		return nil, err
	}
	return c, nil
}

// AuthMode returns the credential mode in use.
func (c *Client) AuthMode() AuthMode { return c.mode }

func (c *Client) login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Mode: AuthModePassword, Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token exchange returned %s", resp.Status)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("token exchange returned an empty token")
	}
	c.token = tok.AccessToken
	return nil
}

// Vehicle is one car on the account.
type Vehicle struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
}

// Online reports whether the vehicle is awake and reachable.
func (v Vehicle) Online() bool { return v.State == "online" }

// ChargeState is the subset of the charge state the job cares about.
type ChargeState struct {
	ChargeLimitSoc int    `json:"charge_limit_soc"`
	BatteryLevel   int    `json:"battery_level"`
	ChargingState  string `json:"charging_state"`
}

// DriveState is the subset of the drive state used for location
// reporting.
type DriveState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Vehicles lists the cars on the account.
func (c *Client) Vehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	if err := c.get(ctx, "/api/1/vehicles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Wake asks the vehicle to come online. The car takes a while to wake;
// callers should poll Vehicles afterwards.
func (c *Client) Wake(ctx context.Context, id int64) error {
	var v Vehicle
	return c.post(ctx, fmt.Sprintf("/api/1/vehicles/%d/wake_up", id), nil, &v)
}

// ChargeState reads the vehicle's current charge state.
func (c *Client) ChargeState(ctx context.Context, id int64) (ChargeState, error) {
	var out ChargeState
	err := c.get(ctx, fmt.Sprintf("/api/1/vehicles/%d/data_request/charge_state", id), &out)
	return out, err
}

// DriveState reads the vehicle's current position.
func (c *Client) DriveState(ctx context.Context, id int64) (DriveState, error) {
	var out DriveState
	err := c.get(ctx, fmt.Sprintf("/api/1/vehicles/%d/data_request/drive_state", id), &out)
	return out, err
}

// SetChargeLimit applies the charge limit percentage. Setting the
// current value again succeeds; the command is idempotent.
func (c *Client) SetChargeLimit(ctx context.Context, id int64, percent int) error {
	var res struct {
		Result bool   `json:"result"`
		Reason string `json:"reason"`
	}
	body := map[string]int{"percent": percent}
	if err := c.post(ctx, fmt.Sprintf("/api/1/vehicles/%d/command/set_charge_limit", id), body, &res); err != nil {
		return err
	}
	if !res.Result {
		return fmt.Errorf("set_charge_limit refused: %s", res.Reason)
	}
	return nil
}

// get performs an authenticated GET and unwraps the owner API's
// {"response": ...} envelope into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Mode: c.mode, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		// 408 is how the API answers while the car is asleep. Treated
		// like any other transient failure by the caller.
		return fmt.Errorf("vehicle api returned %s for %s", resp.Status, req.URL.Path)
	}
	var env struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode vehicle api response: %w", err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Response, out)
}
