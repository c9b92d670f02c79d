package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/profileproof"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/generate_hash", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		_, _ = w.Write([]byte(`{"hash":"abc123"}`))
	})
	mux.HandleFunc("/v1/validate_user", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Hash Missing","description":"run generate first"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIssueCommand(t *testing.T) {
	srv := fakeAPI(t)

	out, err := run(t, "issue", "alice", "--server", srv.URL)

	require.NoError(t, err)
	assert.JSONEq(t, `{"hash":"abc123"}`, out)
}

func TestValidateCommand_HashMissing(t *testing.T) {
	srv := fakeAPI(t)

	_, err := run(t, "validate", "alice", "--server", srv.URL)

	assert.ErrorIs(t, err, profileproof.ErrHashMissing)
}

func TestCommands_RequireUsername(t *testing.T) {
	_, err := run(t, "issue")
	assert.Error(t, err)
}
