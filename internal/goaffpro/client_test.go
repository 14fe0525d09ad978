package goaffpro

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(endpoint string, attach bool) *Client {
	return NewClient(Config{
		Endpoint:          endpoint,
		PublicToken:       "pub-token",
		AccessToken:       "acc-token",
		AttachCredentials: attach,
	})
}

func TestRegisterSuccess(t *testing.T) {
	var gotBody RegisterInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body failed: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"affiliate_id":"af_901"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	result, err := client.Register(context.Background(), RegisterInput{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.AffiliateID != "af_901" {
		t.Fatalf("unexpected affiliate id: %s", result.AffiliateID)
	}
	if gotBody.Name != "Jane Doe" || gotBody.Email != "jane@example.com" || gotBody.Password != "secret-pass" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestRegisterNumericAffiliateID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"affiliate_id":901}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	result, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.AffiliateID != "901" {
		t.Fatalf("unexpected affiliate id: %s", result.AffiliateID)
	}
}

func TestRegisterRejectedWithMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"email already registered"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if got := RejectionMessage(err); got != "email already registered" {
		t.Fatalf("unexpected rejection message: %q", got)
	}
}

func TestRegisterRejectedWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if got := RejectionMessage(err); got == "" {
		t.Fatal("expected fallback rejection message")
	}
}

func TestRegisterMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestRegisterMissingSuccessFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"affiliate_id":"af_901"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestRegisterMissingAffiliateID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestRegisterTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestRegisterCredentialHeaders(t *testing.T) {
	var gotPublic, gotAccess string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPublic = r.Header.Get("X-GOAFFPRO-PUBLIC-TOKEN")
		gotAccess = r.Header.Get("X-GOAFFPRO-ACCESS-TOKEN")
		_, _ = w.Write([]byte(`{"success":true,"data":{"affiliate_id":"af_1"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	if _, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if gotPublic != "pub-token" || gotAccess != "acc-token" {
		t.Fatalf("expected credential headers, got public=%q access=%q", gotPublic, gotAccess)
	}

	gotPublic, gotAccess = "", ""
	client = newTestClient(server.URL, false)
	if _, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if gotPublic != "" || gotAccess != "" {
		t.Fatalf("expected no credential headers, got public=%q access=%q", gotPublic, gotAccess)
	}
}

func TestRegisterAttachCredentialsWithoutTokens(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://127.0.0.1:1", AttachCredentials: true})
	_, err := client.Register(context.Background(), RegisterInput{Email: "jane@example.com"})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"api_key":    " pub ",
		"api_secret": "sec",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.Endpoint != DefaultEndpoint {
		t.Fatalf("expected default endpoint, got %s", cfg.Endpoint)
	}
	if cfg.TimeoutMS != defaultTimeoutMS {
		t.Fatalf("expected default timeout, got %d", cfg.TimeoutMS)
	}
	if cfg.PublicToken != "pub" {
		t.Fatalf("expected trimmed token, got %q", cfg.PublicToken)
	}
	if cfg.AttachCredentials {
		t.Fatal("attach_credentials should default to off")
	}
}
