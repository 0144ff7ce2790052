package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPAnswerer(t *testing.T) {
	var gotQuestion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req askRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuestion = req.Question
		_ = json.NewEncoder(w).Encode(askResponse{Answer: "Paris"})
	}))
	defer srv.Close()

	answer, err := NewHTTPAnswerer(srv.URL).Answer(context.Background(), "@capital of France")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Paris" || gotQuestion != "@capital of France" {
		t.Fatalf("answer=%q question=%q", answer, gotQuestion)
	}
}

func TestHTTPAnswererErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusInternalServerError)
			},
			want: ErrUnexpectedStatus,
		},
		{
			name: "empty answer",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"answer":"  "}`))
			},
			want: ErrEmptyAnswer,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := NewHTTPAnswerer(srv.URL).Answer(context.Background(), "@q")
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGeminiAnswerer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Has("key") {
			t.Errorf("api key leaked into the url")
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) == 0 || !strings.Contains(req.Contents[0].Parts[0].Text, "Question:\n@why\n") {
			t.Errorf("unexpected prompt: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  because  \n"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiAnswerer(context.Background(), "secret", "gemini-2.0-flash", srv.URL+"/")
	if err != nil {
		t.Fatalf("new answerer: %v", err)
	}
	answer, err := g.Answer(context.Background(), "@why")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "because" {
		t.Fatalf("answer = %q", answer)
	}
}

func TestGeminiAnswererNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiAnswerer(context.Background(), "k", "m", srv.URL)
	if err != nil {
		t.Fatalf("new answerer: %v", err)
	}
	_, err = g.Answer(context.Background(), "q")
	if !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("err = %v, want ErrEmptyAnswer", err)
	}
}

func TestGeminiAnswererUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g, err := NewGeminiAnswerer(context.Background(), "secret", "m", srv.URL)
	if err != nil {
		t.Fatalf("new answerer: %v", err)
	}
	_, err = g.Answer(context.Background(), "q")
	if err == nil {
		t.Fatal("expected an error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("error leaks the api key: %v", err)
	}
}
