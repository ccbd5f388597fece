package printify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/printloom/printsync-backend/pkg/config"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
)

func newTestClient(t *testing.T, server *httptest.Server) (*Client, *[]time.Duration) {
	t.Helper()
	client, err := NewClient(config.PrintifyConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	var sleeps []time.Duration
	client.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return client, &sleeps
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.PrintifyConfig{APIKey: "  "}, nil)
	if err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"id":815,"title":"My Shop"}]`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	shops, err := client.ListShops(context.Background())
	if err != nil {
		t.Fatalf("list shops: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("wrong auth header: %q", gotAuth)
	}
	if len(shops) != 1 {
		t.Fatalf("expected 1 shop, got %d", len(shops))
	}
}

func TestClientListProductsPaginates(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Write([]byte(`{"current_page":2,"last_page":5,"total":230,"data":[{"id":"p1","title":"Mug"}]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	page, err := client.ListProducts(context.Background(), "815", 2, 50)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if gotPath != "/shops/815/products.json?page=2&limit=50" {
		t.Fatalf("wrong path: %s", gotPath)
	}
	if page.LastPage != 5 || page.Total != 230 || len(page.Data) != 1 {
		t.Fatalf("page mangled: %+v", page)
	}
}

func TestClientHonorsRetryAfterOnRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"current_page":1,"last_page":1,"total":0,"data":[]}`))
	}))
	defer server.Close()

	client, sleeps := newTestClient(t, server)
	if _, err := client.ListProducts(context.Background(), "815", 1, 50); err != nil {
		t.Fatalf("expected recovery after rate limit: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 7*time.Second {
		t.Fatalf("Retry-After not honored: %v", *sleeps)
	}
}

func TestClientRetriesTransportErrorsWithBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every request now fails at the transport level

	client, sleeps := newTestClient(t, server)
	_, err := client.ListProducts(context.Background(), "815", 1, 50)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	// three attempts, backoff slept before the second and third
	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %v", *sleeps)
	}
	if (*sleeps)[1] <= (*sleeps)[0] {
		t.Fatalf("backoff must grow: %v", *sleeps)
	}
}

func TestClientDoesNotRetryVendorErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid shop"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	_, err := client.ListProducts(context.Background(), "815", 1, 50)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeVendor {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("vendor rejection must not be retried, got %d attempts", attempts)
	}
}

func TestClientMapsAuthFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	_, err := client.ListShops(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestClientObserverSeesFailedAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	var observed int
	client.SetObserver(func(endpoint, method string, attempt int, err error) {
		observed++
	})
	if _, err := client.ListShops(context.Background()); err == nil {
		t.Fatal("expected rate limit exhaustion")
	}
	if observed != 3 {
		t.Fatalf("observer should see every failed attempt, got %d", observed)
	}
}

func TestClientCreateWebhookPostsTopic(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"wh-1","topic":"product:updated","url":"https://example.com/hook"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	hook, err := client.CreateWebhook(context.Background(), "815", "product:updated", "https://example.com/hook")
	if err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	if hook.ID != "wh-1" {
		t.Fatalf("response not decoded: %+v", hook)
	}
	if string(gotBody) != `{"topic":"product:updated","url":"https://example.com/hook"}` {
		t.Fatalf("unexpected request body: %s", gotBody)
	}
}
