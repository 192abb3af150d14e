// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/lib/secret"
)

// newTestSession creates a Client and Session pointing at a test server.
func newTestSession(t *testing.T, handler http.Handler) (*Client, *Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(ref.MustParseUserID("@test:local"), "test-token")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return client, session
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func writeMatrixError(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{
		"errcode": code,
		"error":   message,
	})
}

func assertAuth(t *testing.T, request *http.Request, token string) {
	t.Helper()
	if got := request.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("Authorization header = %q, want %q", got, "Bearer "+token)
	}
}

func TestNewClientRequiresHomeserverURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("NewClient with empty URL succeeded, want error")
	}
}

func TestServerVersions(t *testing.T) {
	client, _ := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/versions" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if request.Header.Get("Authorization") != "" {
			t.Error("versions request carried an Authorization header")
		}
		writeJSON(writer, ServerVersionsResponse{Versions: []string{"v1.8", "v1.9"}})
	}))

	response, err := client.ServerVersions(context.Background())
	if err != nil {
		t.Fatalf("ServerVersions failed: %v", err)
	}
	if len(response.Versions) != 2 {
		t.Errorf("got %d versions, want 2", len(response.Versions))
	}
}

func TestResolveSessionDiscoversUserID(t *testing.T) {
	client, _ := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, WhoAmIResponse{UserID: ref.MustParseUserID("@resolved:local")})
	}))

	token, err := secret.NewFromBytes([]byte("test-token"))
	if err != nil {
		t.Fatalf("creating token buffer: %v", err)
	}
	session, err := client.ResolveSession(context.Background(), ref.UserID{}, token)
	if err != nil {
		t.Fatalf("ResolveSession failed: %v", err)
	}
	defer session.Close()

	if session.UserID().String() != "@resolved:local" {
		t.Errorf("resolved user ID = %s, want @resolved:local", session.UserID())
	}
}

func TestMatrixErrorParsing(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeMatrixError(writer, http.StatusForbidden, "M_FORBIDDEN", "not allowed")
	}))

	_, err := session.WhoAmI(context.Background())
	if err == nil {
		t.Fatal("WhoAmI succeeded against an erroring server")
	}

	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) {
		t.Fatalf("error %v is not a *MatrixError", err)
	}
	if matrixErr.Code != ErrCodeForbidden {
		t.Errorf("Code = %q, want M_FORBIDDEN", matrixErr.Code)
	}
	if matrixErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", matrixErr.StatusCode)
	}
	if !IsMatrixError(err, ErrCodeForbidden) {
		t.Error("IsMatrixError(M_FORBIDDEN) = false")
	}
}

func TestAuthErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   bool
	}{
		{"401 unknown token", http.StatusUnauthorized, "M_UNKNOWN_TOKEN", true},
		{"403 with token code", http.StatusForbidden, "M_UNKNOWN_TOKEN", true},
		{"403 missing token code", http.StatusForbidden, "M_MISSING_TOKEN", true},
		{"429 rate limited", http.StatusTooManyRequests, "M_LIMIT_EXCEEDED", false},
		{"500 server error", http.StatusInternalServerError, "M_UNKNOWN", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writeMatrixError(writer, test.status, test.code, "boom")
			}))

			_, err := session.WhoAmI(context.Background())
			if err == nil {
				t.Fatal("WhoAmI succeeded against an erroring server")
			}
			if got := IsAuthError(err); got != test.want {
				t.Errorf("IsAuthError = %v, want %v", got, test.want)
			}
		})
	}

	t.Run("transport error is not auth", func(t *testing.T) {
		if IsAuthError(errors.New("connection refused")) {
			t.Error("plain transport error classified as auth failure")
		}
	})

	t.Run("wrapped sentinel is auth", func(t *testing.T) {
		wrapped := errors.Join(ErrAuthFailed, errors.New("detail"))
		if !IsAuthError(wrapped) {
			t.Error("wrapped ErrAuthFailed not classified as auth failure")
		}
	})
}

func TestNonJSONErrorResponse(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("<html>proxy error</html>"))
	}))

	_, err := session.WhoAmI(context.Background())
	if err == nil {
		t.Fatal("WhoAmI succeeded against a non-JSON error")
	}
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		t.Error("non-JSON error body was parsed as a MatrixError")
	}
}
