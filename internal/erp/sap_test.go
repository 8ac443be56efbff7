package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/config"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sapConfig(baseURL string) config.SAPConfig {
	return config.SAPConfig{
		BaseURL:     baseURL,
		CompanyDB:   "SBODEMO",
		Username:    "manager",
		Password:    "secret",
		CallTimeout: 5 * time.Second,
		SessionTTL:  25 * time.Minute,
	}
}

func sapEntity() *domain.KYCEntity {
	return &domain.KYCEntity{
		ID:          uuid.New(),
		Kind:        domain.EntityKindCustomer,
		Code:        "CUST001",
		Name:        "Acme Ltd",
		Email:       "finance@acme.example",
		Address:     "1 Main Street",
		CreditLimit: decimal.NewFromInt(50000),
		Status:      domain.KYCStatusReadyForSAP,
	}
}

func TestLoginCachesSession(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Login", r.URL.Path)
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SBODEMO", req.CompanyDB)
		assert.Equal(t, "manager", req.UserName)

		logins++
		json.NewEncoder(w).Encode(loginResponse{SessionID: "session-1"})
	}))
	defer srv.Close()

	store := NewMemorySessionStore(time.Minute)
	client := NewClient(sapConfig(srv.URL), store, logger.NewNop())

	session, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-1", session)

	// Second login finds the cached session and skips the HTTP call.
	session, err = client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-1", session)
	assert.Equal(t, 1, logins)
}

func TestCreateBusinessPartner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Login":
			json.NewEncoder(w).Encode(loginResponse{SessionID: "session-1"})
		case "/BusinessPartners":
			cookie, err := r.Cookie("B1SESSION")
			require.NoError(t, err)
			assert.Equal(t, "session-1", cookie.Value)

			var bp businessPartner
			require.NoError(t, json.NewDecoder(r.Body).Decode(&bp))
			assert.Equal(t, "CUST001", bp.CardCode)
			assert.Equal(t, "cCustomer", bp.CardType)

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(businessPartnerResponse{CardCode: "CUST001"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(sapConfig(srv.URL), NewMemorySessionStore(time.Minute), logger.NewNop())

	cardCode, err := client.CreateBusinessPartner(context.Background(), sapEntity())
	require.NoError(t, err)
	assert.Equal(t, "CUST001", cardCode)
}

func TestCreateBusinessPartnerVendorCardType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Login":
			json.NewEncoder(w).Encode(loginResponse{SessionID: "session-1"})
		case "/BusinessPartners":
			var bp businessPartner
			require.NoError(t, json.NewDecoder(r.Body).Decode(&bp))
			assert.Equal(t, "cSupplier", bp.CardType)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(businessPartnerResponse{CardCode: bp.CardCode})
		}
	}))
	defer srv.Close()

	client := NewClient(sapConfig(srv.URL), NewMemorySessionStore(time.Minute), logger.NewNop())

	e := sapEntity()
	e.Kind = domain.EntityKindVendor
	e.Code = "VEND001"

	cardCode, err := client.CreateBusinessPartner(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "VEND001", cardCode)
}

func TestCreateBusinessPartnerRefreshesExpiredSession(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Login":
			json.NewEncoder(w).Encode(loginResponse{SessionID: "fresh-session"})
		case "/BusinessPartners":
			calls++
			cookie, _ := r.Cookie("B1SESSION")
			if cookie == nil || cookie.Value != "fresh-session" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(businessPartnerResponse{CardCode: "CUST001"})
		}
	}))
	defer srv.Close()

	store := NewMemorySessionStore(time.Minute)
	require.NoError(t, store.Put(context.Background(), "stale-session"))

	client := NewClient(sapConfig(srv.URL), store, logger.NewNop())

	cardCode, err := client.CreateBusinessPartner(context.Background(), sapEntity())
	require.NoError(t, err)
	assert.Equal(t, "CUST001", cardCode)
	assert.Equal(t, 2, calls)
}

func TestCreateBusinessPartnerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Login":
			json.NewEncoder(w).Encode(loginResponse{SessionID: "session-1"})
		case "/BusinessPartners":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":{"value":"CardCode already exists"}}}`))
		}
	}))
	defer srv.Close()

	client := NewClient(sapConfig(srv.URL), NewMemorySessionStore(time.Minute), logger.NewNop())

	_, err := client.CreateBusinessPartner(context.Background(), sapEntity())
	assert.Error(t, err)
}

func TestLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":{"value":"Invalid credentials"}}}`))
	}))
	defer srv.Close()

	client := NewClient(sapConfig(srv.URL), NewMemorySessionStore(time.Minute), logger.NewNop())

	_, err := client.Login(context.Background())
	assert.Error(t, err)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-1"))
	session, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-1", session)

	time.Sleep(20 * time.Millisecond)
	session, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, session)
}
