package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	c := New(time.Second, Options{})

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://openrouter.ai/api/v1/chat/completions", false},
		{"http://example.com/data.zip", false},
		{"ftp://example.com/file", true},
		{"file:///etc/passwd", true},
		{"http://localhost:8080", true},
		{"http://api.localhost", true},
		{"http://127.0.0.1", true},
		{"http://10.1.2.3", true},
		{"http://192.168.1.1", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/", true},
		{"http://[fd00::1]/", true},
		{"http://user@example.com/", true},
		{"http:///nohost", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := c.ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllowPrivate(t *testing.T) {
	allow := false
	c := New(time.Second, Options{BlockPrivateIP: &allow})
	_, err := c.ValidateURL("http://localhost:11434/v1/chat/completions")
	assert.NoError(t, err)
}

func TestIsPrivateIP(t *testing.T) {
	for _, ip := range []string{"10.0.0.1", "172.16.5.4", "192.168.0.1", "127.0.0.1", "::1", "fe80::1", "fc00::1", "0.0.0.0"} {
		assert.True(t, isPrivateIP(net.ParseIP(ip)), ip)
	}
	for _, ip := range []string{"8.8.8.8", "1.1.1.1", "2606:4700:4700::1111"} {
		assert.False(t, isPrivateIP(net.ParseIP(ip)), ip)
	}
}

func TestMaxRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	allow := false
	max := 2
	c := New(time.Second, Options{BlockPrivateIP: &allow, MaxRedirects: &max})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 2 redirects")
}

func TestDoBlocksBeforeSending(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(time.Second, Options{})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	assert.Error(t, err)
	assert.False(t, called)
}

func TestWrapClientAllowsLocalhost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := WrapClient(srv.Client())
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
