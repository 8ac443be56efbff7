// Package erp talks to the SAP Business One Service Layer, the external sink
// approved records are pushed to.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/config"
	"kycportal/pkg/logger"

	"github.com/shopspring/decimal"
)

// SessionStore caches the Service Layer session id between calls. The session
// is a short-lived credential with explicit invalidation, not a singleton: a
// rejected session is cleared and re-acquired exactly once per call.
type SessionStore interface {
	Get(ctx context.Context) (string, error)
	Put(ctx context.Context, session string) error
	Clear(ctx context.Context) error
}

// Client is the SAP Service Layer client. All calls are synchronous and
// timeout-bounded; failures are reported to the caller and never mutate
// portal state.
type Client struct {
	baseURL   string
	companyDB string
	username  string
	password  string

	httpClient *http.Client
	sessions   SessionStore
	logger     logger.Logger

	// loginMu serializes re-login so concurrent syncs don't stampede SAP.
	loginMu sync.Mutex
}

// NewClient builds a Service Layer client from configuration.
func NewClient(cfg config.SAPConfig, sessions SessionStore, log logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		companyDB:  cfg.CompanyDB,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.CallTimeout},
		sessions:   sessions,
		logger:     log,
	}
}

type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

type loginResponse struct {
	SessionID string `json:"SessionId"`
}

// Login authenticates against the Service Layer and caches the session.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	// Another caller may have logged in while we waited for the lock.
	if session, err := c.sessions.Get(ctx); err == nil && session != "" {
		return session, nil
	}

	body, err := json.Marshal(loginRequest{
		CompanyDB: c.companyDB,
		UserName:  c.username,
		Password:  c.password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sap login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("sap login rejected with status %d: %s", resp.StatusCode, string(data))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if lr.SessionID == "" {
		return "", fmt.Errorf("sap login returned an empty session")
	}

	if err := c.sessions.Put(ctx, lr.SessionID); err != nil {
		c.logger.Warn("Failed to cache SAP session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.logger.Info("SAP session established", map[string]interface{}{
		"company_db": c.companyDB,
	})

	return lr.SessionID, nil
}

// businessPartner is the Service Layer payload for a BusinessPartners create.
type businessPartner struct {
	CardCode     string          `json:"CardCode"`
	CardName     string          `json:"CardName"`
	CardType     string          `json:"CardType"`
	EmailAddress string          `json:"EmailAddress"`
	Phone1       string          `json:"Phone1,omitempty"`
	Address      string          `json:"Address,omitempty"`
	FederalTaxID string          `json:"FederalTaxID,omitempty"`
	CreditLimit  decimal.Decimal `json:"CreditLimit"`
}

type businessPartnerResponse struct {
	CardCode string `json:"CardCode"`
}

// CreateBusinessPartner pushes an approved entity to SAP and returns the
// business partner code. A cached session rejected by SAP is refreshed once
// before the call is declared failed.
func (c *Client) CreateBusinessPartner(ctx context.Context, e *domain.KYCEntity) (string, error) {
	session, err := c.sessions.Get(ctx)
	if err != nil || session == "" {
		session, err = c.Login(ctx)
		if err != nil {
			return "", err
		}
	}

	cardCode, status, err := c.postBusinessPartner(ctx, session, e)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized {
		// Session expired on SAP's side; refresh once and retry.
		if err := c.sessions.Clear(ctx); err != nil {
			c.logger.Warn("Failed to clear SAP session", map[string]interface{}{
				"error": err.Error(),
			})
		}
		session, err = c.Login(ctx)
		if err != nil {
			return "", err
		}
		cardCode, status, err = c.postBusinessPartner(ctx, session, e)
		if err != nil {
			return "", err
		}
	}

	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("sap rejected business partner with status %d", status)
	}

	return cardCode, nil
}

func (c *Client) postBusinessPartner(ctx context.Context, session string, e *domain.KYCEntity) (string, int, error) {
	cardType := "cCustomer"
	if e.Kind == domain.EntityKindVendor {
		cardType = "cSupplier"
	}

	body, err := json.Marshal(businessPartner{
		CardCode:     e.Code,
		CardName:     e.Name,
		CardType:     cardType,
		EmailAddress: e.Email,
		Phone1:       e.Phone,
		Address:      e.Address,
		FederalTaxID: e.TaxID,
		CreditLimit:  e.CreditLimit,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode business partner: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/BusinessPartners", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build business partner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "B1SESSION", Value: session})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("sap business partner call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, nil
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("SAP rejected business partner", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(data),
			"code":   e.Code,
		})
		return "", resp.StatusCode, nil
	}

	var bp businessPartnerResponse
	if err := json.NewDecoder(resp.Body).Decode(&bp); err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to decode business partner response: %w", err)
	}
	if bp.CardCode == "" {
		bp.CardCode = e.Code
	}

	return bp.CardCode, resp.StatusCode, nil
}

// MemorySessionStore keeps the session in process memory with a TTL. Used in
// tests and single-instance deployments.
type MemorySessionStore struct {
	mu        sync.Mutex
	session   string
	expiresAt time.Time
	ttl       time.Duration
}

// NewMemorySessionStore creates an in-process session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl}
}

func (s *MemorySessionStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == "" || time.Now().After(s.expiresAt) {
		return "", nil
	}
	return s.session, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.expiresAt = time.Now().Add(s.ttl)
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = ""
	return nil
}
