package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GetCompiler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/compiler" {
			t.Errorf("Expected path /api/v1/compiler, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{"compilerVersion": "0.8.19"})
	}))
	defer server.Close()

	version, err := New(server.URL + "/").GetCompiler(context.Background())
	if err != nil {
		t.Fatalf("GetCompiler() error = %v", err)
	}
	if version != "0.8.19" {
		t.Errorf("GetCompiler() = %s, want 0.8.19", version)
	}
}

func TestClient_ListNetworks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"compilerVersion": "0.8.19",
			"networks": []map[string]any{
				{"name": "espaceTestnet", "valid": true},
				{"name": "local", "valid": false, "reason": "no accounts"},
			},
		})
	}))
	defer server.Close()

	list, err := New(server.URL).ListNetworks(context.Background())
	if err != nil {
		t.Fatalf("ListNetworks() error = %v", err)
	}
	if len(list.Networks) != 2 {
		t.Fatalf("ListNetworks() returned %d networks, want 2", len(list.Networks))
	}
	if list.Networks[1].Valid || list.Networks[1].Reason != "no accounts" {
		t.Errorf("ListNetworks()[1] = %+v, want invalid with reason", list.Networks[1])
	}
}

func TestClient_GetNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v1/networks/my%20net" {
			t.Errorf("Expected escaped network name, got %s", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(map[string]any{
			"compilerVersion": "0.8.19",
			"name":            "my net",
			"url":             "https://evm.confluxrpc.com",
			"accounts":        []string{"env:DE...EY"},
			"chainId":         71,
		})
	}))
	defer server.Close()

	network, err := New(server.URL).GetNetwork(context.Background(), "my net")
	if err != nil {
		t.Fatalf("GetNetwork() error = %v", err)
	}
	if network.URL != "https://evm.confluxrpc.com" {
		t.Errorf("GetNetwork().URL = %s", network.URL)
	}
	if network.ChainID != 71 {
		t.Errorf("GetNetwork().ChainID = %d, want 71", network.ChainID)
	}
}

func TestClient_ListResolutions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("network") != "sepolia" || q.Get("limit") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Has("snapshot") {
			t.Errorf("snapshot should be omitted when empty")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "r1", "network": "sepolia", "createdAt": "2024-01-15T10:30:00Z"}},
		})
	}))
	defer server.Close()

	resolutions, err := New(server.URL).ListResolutions(context.Background(), ResolutionFilter{Network: "sepolia", Limit: 5})
	if err != nil {
		t.Fatalf("ListResolutions() error = %v", err)
	}
	if len(resolutions) != 1 || resolutions[0].ID != "r1" {
		t.Errorf("ListResolutions() = %+v", resolutions)
	}
}

func TestClient_ListSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "s1", "current": true, "networks": []string{"a", "b"}}},
		})
	}))
	defer server.Close()

	snapshots, err := New(server.URL).ListSnapshots(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(snapshots) != 1 || !snapshots[0].Current || len(snapshots[0].Networks) != 2 {
		t.Errorf("ListSnapshots() = %+v", snapshots)
	}
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "UNKNOWN_NETWORK",
				"message": `network "mainnet" is not configured`,
			},
		})
	}))
	defer server.Close()

	_, err := New(server.URL).GetNetwork(context.Background(), "mainnet")
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", apiErr.StatusCode)
	}
	if !IsUnknownNetwork(err) {
		t.Error("IsUnknownNetwork() = false, want true")
	}
	if IsInvalidProfile(err) {
		t.Error("IsInvalidProfile() = true, want false")
	}
}

func TestClient_ErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL).Health(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != "HTTP_502" {
		t.Errorf("Expected code HTTP_502, got %s", apiErr.Code)
	}
}
