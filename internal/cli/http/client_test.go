package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientDo(t *testing.T) {
	var gotAuth, gotType, gotRequestID, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"code":10000,"message":"Success","data":{"id":"q_1"}}`))
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL+"/", time.Second, func() string { return "tok" })
	info, err := client.Do(context.Background(), http.MethodPost, "/api/v1/questions", []byte(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if info.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", info.StatusCode)
	}
	if gotAuth != "Bearer tok" || gotType != "application/json" || gotBody != `{"title":"x"}` {
		t.Fatalf("unexpected request auth=%q type=%q body=%q", gotAuth, gotType, gotBody)
	}
	if gotRequestID == "" || gotRequestID != info.RequestID {
		t.Fatalf("request id not propagated: %q vs %q", gotRequestID, info.RequestID)
	}

	env, err := info.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != 10000 || string(env.Data) != `{"id":"q_1"}` {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestClientOmitsEmptyToken(t *testing.T) {
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, time.Second, func() string { return "" })
	if _, err := client.Do(context.Background(), http.MethodGet, "/api/v1/tags", nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "" || gotType != "" {
		t.Fatalf("unexpected headers auth=%q type=%q", gotAuth, gotType)
	}
}
