package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/claims-center/claimsapi/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path  string
	query string
	auth  string
}

type fakeClaimsAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeClaimsAPI) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		path:  r.URL.Path,
		query: r.URL.RawQuery,
		auth:  r.Header.Get("Authorization"),
	})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`[{"id":"C-1","amount":99.90}]`))
}

func (f *fakeClaimsAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func setupEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CLAIMS_API_URL", "CLAIMS_API_TOKEN", "CLAIMS_API_TIMEOUT", "CLAIMS_API_MAX_RETRIES", "CLAIMS_API_BACKOFF_FACTOR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Chdir(t.TempDir())
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantPath  string
		wantQuery string
	}{
		{name: "closed claims", args: []string{"closed-claims"}, wantPath: "/claims", wantQuery: "status=closed"},
		{name: "closed claims for agent", args: []string{"closed-claims", "--agent", " agent-7 "}, wantPath: "/claims", wantQuery: "agentId=agent-7&status=closed"},
		{name: "agent activities", args: []string{"agent-activities", "A1"}, wantPath: "/activities", wantQuery: "agentId=A1"},
		{name: "agent closed claims", args: []string{"agent-closed-claims", "A1"}, wantPath: "/claims/closed/A1"},
		{name: "global closed claims", args: []string{"global-closed-claims"}, wantPath: "/claims/closed", wantQuery: "limit=100"},
		{name: "global closed claims with limit", args: []string{"global-closed-claims", "--limit", "10"}, wantPath: "/claims/closed", wantQuery: "limit=10"},
		{name: "activities", args: []string{"activities", "A1"}, wantPath: "/activities/A1"},
		{name: "activities with status", args: []string{"activities", "A1", "--status", "open"}, wantPath: "/activities/A1", wantQuery: "status=open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t)
			t.Setenv("CLAIMS_API_TOKEN", "abc")

			api := &fakeClaimsAPI{}
			srv := httptest.NewServer(http.HandlerFunc(api.handler))
			defer srv.Close()

			out, err := runCommand(t, append(tt.args, "--base-url", srv.URL)...)
			require.NoError(t, err)

			var result []map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			require.Len(t, result, 1)
			assert.Equal(t, "C-1", result[0]["id"])
			assert.Contains(t, out, "99.90", "numbers are printed as received")

			reqs := api.recorded()
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.wantPath, reqs[0].path)
			assert.Equal(t, tt.wantQuery, reqs[0].query)
			assert.Equal(t, "Bearer abc", reqs[0].auth)
		})
	}
}

func TestTokenFlagOverridesEnvironment(t *testing.T) {
	setupEnv(t)
	t.Setenv("CLAIMS_API_TOKEN", "from-env")

	api := &fakeClaimsAPI{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	defer srv.Close()

	_, err := runCommand(t, "closed-claims", "--base-url", srv.URL, "--token", "from-flag")
	require.NoError(t, err)

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer from-flag", reqs[0].auth)
}

func TestMissingToken(t *testing.T) {
	setupEnv(t)

	_, err := runCommand(t, "closed-claims")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestValidationErrorsMakeNoRequests(t *testing.T) {
	tests := [][]string{
		{"closed-claims", "--agent", "  "},
		{"agent-activities", " "},
		{"agent-closed-claims", ""},
		{"activities", ""},
		{"global-closed-claims", "--limit", "-3"},
	}

	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			setupEnv(t)
			t.Setenv("CLAIMS_API_TOKEN", "abc")

			api := &fakeClaimsAPI{}
			srv := httptest.NewServer(http.HandlerFunc(api.handler))
			defer srv.Close()

			_, err := runCommand(t, append(args, "--base-url", srv.URL)...)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Empty(t, api.recorded())
		})
	}
}

func TestVersionFlag(t *testing.T) {
	setupEnv(t)

	out, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (built unknown, commit unknown)")
}

func TestHelpWithoutToken(t *testing.T) {
	tests := [][]string{
		{"help"},
		{"help", "closed-claims"},
		{"closed-claims", "--help"},
		{"completion", "bash"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			setupEnv(t)

			out, err := runCommand(t, args...)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestBaseURLFlagOverridesInvalidEnvironment(t *testing.T) {
	setupEnv(t)
	t.Setenv("CLAIMS_API_TOKEN", "abc")
	t.Setenv("CLAIMS_API_URL", "not a url")

	api := &fakeClaimsAPI{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	defer srv.Close()

	_, err := runCommand(t, "closed-claims", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Len(t, api.recorded(), 1)

	_, err = runCommand(t, "closed-claims")
	assert.Error(t, err)
}
