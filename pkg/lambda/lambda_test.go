package lambda

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"jewellery-billing-api/internal/config"
)

func TestFromProxyRequest(t *testing.T) {
	req := FromProxyRequest(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/api/v1/bills/abc",
		Headers:               map[string]string{"authorization": "Bearer t"},
		QueryStringParameters: map[string]string{"limit": "5"},
		PathParameters:        map[string]string{"id": "abc"},
		Body:                  `{"a":1}`,
	})

	if req.Method != http.MethodGet || req.Param("id") != "abc" || req.Query("limit") != "5" {
		t.Errorf("request = %+v", req)
	}
	if got := req.Header("Authorization"); got != "Bearer t" {
		t.Errorf("Header(Authorization) = %q", got)
	}
	if req.Query("missing") != "" || (&Request{}).Param("id") != "" {
		t.Error("missing keys should be empty")
	}
}

func TestJSONResponse(t *testing.T) {
	resp := JSON(http.StatusCreated, map[string]int{"n": 1})
	proxy := resp.ToProxyResponse()

	if proxy.StatusCode != http.StatusCreated || proxy.Body != `{"n":1}` {
		t.Errorf("proxy = %+v", proxy)
	}
	if proxy.Headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", proxy.Headers["Content-Type"])
	}

	errResp := Error(http.StatusNotFound, "Not found", "no such bill")
	var body map[string]string
	if err := json.Unmarshal(errResp.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Not found" || body["message"] != "no such bill" {
		t.Errorf("body = %v", body)
	}

	if bad := JSON(http.StatusOK, make(chan int)); bad.StatusCode != http.StatusInternalServerError {
		t.Errorf("unmarshalable status = %d", bad.StatusCode)
	}
}

func TestConnectionManager(t *testing.T) {
	dir := t.TempDir()
	cm := &ConnectionManager{}
	cm.Initialize(&config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "lambda.db"), MaxOpenConns: 1, MaxIdleConns: 1, AutoMigrate: true},
		Storage:  config.StorageConfig{Type: "memory"},
		JWT:      config.JWTConfig{Secret: "lambda-test", ExpiryHours: 1},
		Business: config.BusinessConfig{Timezone: "UTC", RateCacheTTL: time.Minute},
		Log:      config.LogConfig{Level: "warn"},
	})

	ctx := context.Background()
	first, err := cm.GetContainer(ctx)
	if err != nil {
		t.Fatalf("GetContainer failed: %v", err)
	}
	second, _ := cm.GetContainer(ctx)
	if first != second {
		t.Error("warm invocation built a second container")
	}

	cm.lastUsed = time.Now().Add(-2 * staleAfter)
	if again, _ := cm.GetContainer(ctx); again != first {
		t.Error("idle container with a healthy database was rebuilt")
	}

	// a container whose database went away is replaced once stale
	first.Database.Close()
	cm.lastUsed = time.Now().Add(-2 * staleAfter)
	rebuilt, err := cm.GetContainer(ctx)
	if err != nil {
		t.Fatalf("GetContainer after stale failed: %v", err)
	}
	if rebuilt == first {
		t.Error("stale container with a closed database was reused")
	}
	if err := rebuilt.Database.HealthCheck(ctx); err != nil {
		t.Errorf("rebuilt container unhealthy: %v", err)
	}

	if err := cm.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if cm.container != nil {
		t.Error("container kept after cleanup")
	}
}
