package masa_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/defiguardian/guardian/masa"
)

func newTestClient(handler http.HandlerFunc) (*masa.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	client := masa.NewClient(masa.Config{
		BaseURL: ts.URL,
		APIKey:  "test-key",
	})
	return client, ts
}

func TestClientSendsBearerAuth(t *testing.T) {
	var gotAuth, gotContentType string
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"content": "ok"})
	})
	defer ts.Close()

	if _, err := client.ScrapeText(context.Background(), "https://example.test"); err != nil {
		t.Fatalf("ScrapeText: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type: got %q", gotContentType)
	}
}

func TestClientNon2xxIsUnavailable(t *testing.T) {
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})
	defer ts.Close()

	_, err := client.ScrapeText(context.Background(), "https://example.test")
	if !errors.Is(err, masa.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestClientUnreachableIsUnavailable(t *testing.T) {
	client := masa.NewClient(masa.Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"})

	_, err := client.ScrapeText(context.Background(), "https://example.test")
	if !errors.Is(err, masa.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestClientBadJSONIsContractViolation(t *testing.T) {
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})
	defer ts.Close()

	_, err := client.ScrapeText(context.Background(), "https://example.test")
	if !errors.Is(err, masa.ErrBadResponse) {
		t.Fatalf("got %v, want ErrBadResponse", err)
	}
}

func TestScrapeTextMissingContent(t *testing.T) {
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"title": "page"})
	})
	defer ts.Close()

	_, err := client.ScrapeText(context.Background(), "https://example.test")
	if !errors.Is(err, masa.ErrBadResponse) {
		t.Fatalf("got %v, want ErrBadResponse", err)
	}
}

func TestScrapeJSONReturnsRawDocument(t *testing.T) {
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL    string `json:"url"`
			Format string `json:"format"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Format != "json" {
			t.Errorf("format: got %q, want json", req.Format)
		}
		w.Write([]byte(`{"bitcoin": {"usd": 50000}}`))
	})
	defer ts.Close()

	raw, err := client.ScrapeJSON(context.Background(), "https://example.test")
	if err != nil {
		t.Fatalf("ScrapeJSON: %v", err)
	}

	var quotes map[string]map[string]float64
	if err := json.Unmarshal(raw, &quotes); err != nil {
		t.Fatalf("raw document not JSON: %v", err)
	}
	if quotes["bitcoin"]["usd"] != 50000 {
		t.Errorf("got %v", quotes)
	}
}

func TestTweetSearchFlow(t *testing.T) {
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/search/live/twitter":
			var req struct {
				Query      string `json:"query"`
				MaxResults int    `json:"max_results"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Query != "#bitcoin" || req.MaxResults != 50 {
				t.Errorf("submission: %+v", req)
			}
			json.NewEncoder(w).Encode(map[string]string{"uuid": "job-42"})
		case "/api/v1/search/live/twitter/result/job-42":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]string{{"text": "hodl"}, {"text": "dip"}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
	defer ts.Close()

	jobID, err := client.SubmitTweetSearch(context.Background(), "#bitcoin", 50)
	if err != nil {
		t.Fatalf("SubmitTweetSearch: %v", err)
	}
	if jobID != "job-42" {
		t.Fatalf("job id: got %q", jobID)
	}

	tweets, err := client.TweetSearchResult(context.Background(), jobID)
	if err != nil {
		t.Fatalf("TweetSearchResult: %v", err)
	}
	if len(tweets) != 2 || tweets[0].Text != "hodl" {
		t.Errorf("got %+v", tweets)
	}
}

func TestSubmitTweetSearchMissingUUID(t *testing.T) {
	client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})
	defer ts.Close()

	_, err := client.SubmitTweetSearch(context.Background(), "#bitcoin", 50)
	if !errors.Is(err, masa.ErrBadResponse) {
		t.Fatalf("got %v, want ErrBadResponse", err)
	}
}

func TestAnalyzeScoreResultShapes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{name: "number", body: `{"result": 0.42}`, want: 0.42},
		{name: "numeric string", body: `{"result": "-0.7"}`, want: -0.7},
		{name: "prose string", body: `{"result": "quite positive"}`, wantErr: true},
		{name: "missing", body: `{}`, wantErr: true},
		{name: "object", body: `{"result": {"score": 1}}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			defer ts.Close()

			got, err := client.AnalyzeScore(context.Background(), "text", "prompt")
			if tc.wantErr {
				if !errors.Is(err, masa.ErrBadResponse) {
					t.Fatalf("got %v, want ErrBadResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AnalyzeScore: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
