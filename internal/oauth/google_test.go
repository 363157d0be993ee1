package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fakeGoogle(t *testing.T, wantVerifier string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") != wantVerifier {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub": "1001", "email": "dave@example.com", "email_verified": true,
			"name": "Dave", "picture": "https://img/d.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})
}

func TestGoogleAuthCodeURLCarriesPKCE(t *testing.T) {
	srv := fakeGoogle(t, "")
	verifier := oauth2.GenerateVerifier()
	raw := newTestGoogle(srv).AuthCodeURL("state-1", verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
}

func TestGoogleExchange(t *testing.T) {
	verifier := oauth2.GenerateVerifier()
	srv := fakeGoogle(t, verifier)
	p := newTestGoogle(srv)

	profile, err := p.Exchange(context.Background(), "good-code", verifier)
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		Provider:      "google",
		Subject:       "1001",
		Email:         "dave@example.com",
		EmailVerified: true,
		Name:          "Dave",
		Picture:       "https://img/d.png",
	}, profile)

	_, err = p.Exchange(context.Background(), "good-code", "wrong-verifier")
	assert.Error(t, err)
}
