package auth

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveLoadToken(t *testing.T) {
	path := TokenFilePath(t.TempDir())

	tok, err := LoadToken(path)
	require.NoError(t, err)
	assert.Nil(t, tok)

	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, SaveToken(path, want))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
}

func TestClientNotLoggedIn(t *testing.T) {
	_, err := Client(context.Background(), Config{TokenFile: filepath.Join(t.TempDir(), "token.json")})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func echoAuth(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, c *http.Client, url string) string {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func TestClientStaticToken(t *testing.T) {
	ts := echoAuth(t)
	c, err := Client(context.Background(), Config{StaticToken: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", get(t, c, ts.URL))
}

func TestClientStoredToken(t *testing.T) {
	ts := echoAuth(t)
	path := TokenFilePath(t.TempDir())
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "stored", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}))

	c, err := Client(context.Background(), Config{TokenFile: path, TokenURL: "http://unused.invalid/token"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer stored", get(t, c, ts.URL))
}

func TestClientRefreshesAndPersists(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","refresh_token":"r2","expires_in":3600}`))
	}))
	defer idp.Close()
	ts := echoAuth(t)

	path := TokenFilePath(t.TempDir())
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "old", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)}))

	c, err := Client(context.Background(), Config{ClientID: "tft", TokenFile: path, TokenURL: idp.URL})
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", get(t, c, ts.URL))

	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "r2", saved.RefreshToken)
}

func TestLoginDeviceFlow(t *testing.T) {
	idp := http.NewServeMux()
	idp.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dc","user_code":"ABCD-EFGH","verification_uri":"https://example.test/device","expires_in":60,"interval":1}`))
	})
	idp.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "dc", r.PostForm.Get("device_code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"granted","token_type":"Bearer","expires_in":3600}`))
	})
	srv := httptest.NewServer(idp)
	defer srv.Close()

	path := TokenFilePath(t.TempDir())
	var out bytes.Buffer
	tok, err := Login(context.Background(), Config{
		ClientID:      "tft",
		DeviceAuthURL: srv.URL + "/device",
		TokenURL:      srv.URL + "/token",
		TokenFile:     path,
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "granted", tok.AccessToken)
	assert.Contains(t, out.String(), "ABCD-EFGH")

	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "granted", saved.AccessToken)
}

func TestLoginRequiresEndpoints(t *testing.T) {
	_, err := Login(context.Background(), Config{}, &bytes.Buffer{})
	assert.Error(t, err)
}
