package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testRedirect     = "http://localhost:8080/login/callback"
	testCode         = "good-code"
)

// fakeProvider is an OpenID provider serving discovery, token and userinfo
// endpoints from one httptest server.
type fakeProvider struct {
	server        *httptest.Server
	userinfo      map[string]any
	userinfoCode  int
	discoveryCode int
	tokenCalls    atomic.Int32
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		userinfo: map[string]any{
			"sub":            "1234567890",
			"email":          "ada@example.com",
			"email_verified": true,
			"name":           "Ada Lovelace",
			"given_name":     "Ada",
			"picture":        "https://example.com/ada.png",
		},
		userinfoCode:  http.StatusOK,
		discoveryCode: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		if p.discoveryCode != http.StatusOK {
			w.WriteHeader(p.discoveryCode)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_endpoint": p.server.URL + "/auth",
			"token_endpoint":         p.server.URL + "/token",
			"userinfo_endpoint":      p.server.URL + "/userinfo",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != testClientID || pass != testClientSecret {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != testCode {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		if r.PostForm.Get("redirect_uri") != testRedirect {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"redirect_uri_mismatch"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.userinfoCode != http.StatusOK {
			w.WriteHeader(p.userinfoCode)
			return
		}
		_ = json.NewEncoder(w).Encode(p.userinfo)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) client() *Client {
	return NewClient(Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		DiscoveryURL: p.server.URL + "/.well-known/openid-configuration",
		HTTPClient:   p.server.Client(),
	})
}

func TestClient_Discover(t *testing.T) {
	p := newFakeProvider(t)

	cfg, err := p.client().Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.server.URL+"/auth", cfg.AuthorizationEndpoint)
	assert.Equal(t, p.server.URL+"/token", cfg.TokenEndpoint)
	assert.Equal(t, p.server.URL+"/userinfo", cfg.UserinfoEndpoint)
}

func TestClient_Discover_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"not json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) }},
		{"missing endpoints", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"authorization_endpoint":"http://x/auth"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(Config{DiscoveryURL: srv.URL})
			_, err := c.Discover(context.Background())
			assert.ErrorIs(t, err, ErrProviderUnavailable)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := NewClient(Config{DiscoveryURL: addr}).Discover(context.Background())
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestClient_AuthCodeURL(t *testing.T) {
	p := newFakeProvider(t)

	raw, err := p.client().AuthCodeURL(context.Background(), testRedirect)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, p.server.URL+"/auth", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, testRedirect, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.ElementsMatch(t, []string{"openid", "email", "profile"}, strings.Fields(q.Get("scope")))
}

func TestClient_AuthCodeURL_ProviderDown(t *testing.T) {
	p := newFakeProvider(t)
	p.discoveryCode = http.StatusServiceUnavailable

	_, err := p.client().AuthCodeURL(context.Background(), testRedirect)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestClient_Exchange(t *testing.T) {
	p := newFakeProvider(t)

	profile, err := p.client().Exchange(context.Background(), testCode, testRedirect)
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		ID:      "1234567890",
		Name:    "Ada",
		Email:   "ada@example.com",
		Picture: "https://example.com/ada.png",
	}, profile)
}

func TestClient_Exchange_NameFallback(t *testing.T) {
	p := newFakeProvider(t)
	delete(p.userinfo, "given_name")

	profile, err := p.client().Exchange(context.Background(), testCode, testRedirect)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.Name)
}

func TestClient_Exchange_EmailVerification(t *testing.T) {
	tests := []struct {
		name     string
		verified any
		wantErr  error
	}{
		{"verified bool", true, nil},
		{"verified string", "true", nil},
		{"unverified", false, ErrEmailUnverified},
		{"unverified string", "false", ErrEmailUnverified},
		{"absent", nil, ErrEmailUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t)
			if tt.verified == nil {
				delete(p.userinfo, "email_verified")
			} else {
				p.userinfo["email_verified"] = tt.verified
			}

			_, err := p.client().Exchange(context.Background(), testCode, testRedirect)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestClient_Exchange_Failures(t *testing.T) {
	t.Run("empty code makes no token request", func(t *testing.T) {
		p := newFakeProvider(t)
		_, err := p.client().Exchange(context.Background(), "", testRedirect)
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.Equal(t, int32(0), p.tokenCalls.Load())
	})

	t.Run("rejected code", func(t *testing.T) {
		p := newFakeProvider(t)
		_, err := p.client().Exchange(context.Background(), "bad-code", testRedirect)
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
	})

	t.Run("wrong client secret", func(t *testing.T) {
		p := newFakeProvider(t)
		c := NewClient(Config{
			ClientID:     testClientID,
			ClientSecret: "wrong",
			DiscoveryURL: p.server.URL + "/.well-known/openid-configuration",
			HTTPClient:   p.server.Client(),
		})
		_, err := c.Exchange(context.Background(), testCode, testRedirect)
		assert.ErrorIs(t, err, ErrTokenExchangeFailed)
	})

	t.Run("userinfo down", func(t *testing.T) {
		p := newFakeProvider(t)
		p.userinfoCode = http.StatusBadGateway
		_, err := p.client().Exchange(context.Background(), testCode, testRedirect)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("userinfo without subject", func(t *testing.T) {
		p := newFakeProvider(t)
		delete(p.userinfo, "sub")
		profile, err := p.client().Exchange(context.Background(), testCode, testRedirect)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.Nil(t, profile)
	})

	t.Run("discovery down", func(t *testing.T) {
		p := newFakeProvider(t)
		p.discoveryCode = http.StatusInternalServerError
		_, err := p.client().Exchange(context.Background(), testCode, testRedirect)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestBooleanFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`"true"`, true, false},
		{`"FALSE"`, false, false},
		{`"maybe"`, false, true},
		{`1`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var b booleanFlag
			err := json.Unmarshal([]byte(tt.in), &b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bool(b), fmt.Sprintf("input %s", tt.in))
		})
	}
}
