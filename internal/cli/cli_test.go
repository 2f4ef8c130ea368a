package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"niblet/internal/config"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "niblet version dev") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestClassifyLocal(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "I", "weigh", "82", "kg"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got struct {
		Intent   string `json:"intent"`
		Quantity struct {
			Value float64 `json:"value"`
		} `json:"quantity"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got.Intent != "weight-log" || got.Quantity.Value != 180.8 {
		t.Errorf("unexpected classification %+v", got)
	}
}

func TestAnalyzeRemote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/meals/analyze-text" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"calories":350,"mealType":"lunch"}`))
	}))
	defer ts.Close()

	out, err := analyzeRemote(context.Background(), ts.Client(), ts.URL+"/", "tok", "turkey sandwich for lunch")
	if err != nil {
		t.Fatalf("analyzeRemote: %v", err)
	}
	if out["calories"] != 350.0 {
		t.Errorf("unexpected response %v", out)
	}

	if _, err := analyzeRemote(context.Background(), ts.Client(), ts.URL, "", "x"); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestOpenBackendMemoryAndSQLite(t *testing.T) {
	be, err := openBackend(config.StorageConfig{Driver: config.StorageMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if err := be.close(); err != nil {
		t.Errorf("close memory: %v", err)
	}

	be, err = openBackend(config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: t.TempDir() + "/niblet.db"})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer func() { _ = be.close() }()
	n, err := be.repo.Count(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Count = %d, %v", n, err)
	}
}
