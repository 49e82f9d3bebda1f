package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/defiguardian/guardian/agent"
	"github.com/defiguardian/guardian/guardian"
	"github.com/defiguardian/guardian/server"
)

type fakeMetrics struct {
	metrics *guardian.TokenMetrics
	err     error
}

func (f *fakeMetrics) TokenMetrics(ctx context.Context, symbol string) (*guardian.TokenMetrics, error) {
	return f.metrics, f.err
}

type fakeRisk struct {
	result *guardian.RiskResult
	err    error
}

func (f *fakeRisk) AssessPortfolioRisk(ctx context.Context, portfolio guardian.Portfolio) (*guardian.RiskResult, error) {
	return f.result, f.err
}

type fakePools struct {
	pools  []guardian.PoolRecord
	err    error
	minAPR float64
}

func (f *fakePools) FindLiquidityPools(ctx context.Context, minAPR float64) ([]guardian.PoolRecord, error) {
	f.minAPR = minAPR
	return f.pools, f.err
}

// dial starts the server and opens a WebSocket session to it.
func dial(t *testing.T, deps *agent.Deps) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := server.New(nil, deps)
	ts := httptest.NewServer(srv.Handler())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?user=tester"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, ts
}

func TestHealthEndpoint(t *testing.T) {
	srv := server.New(nil, &agent.Deps{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestCommandAssessRisk(t *testing.T) {
	deps := &agent.Deps{
		Risk: &fakeRisk{result: &guardian.RiskResult{RiskScore: 1.1, Diversification: 2, Correlation: 0.4}},
	}
	conn, ts := dial(t, deps)
	defer ts.Close()
	defer conn.Close()

	err := conn.WriteJSON(server.ClientMessage{
		Type:      "command",
		Command:   server.CommandAssessRisk,
		Portfolio: guardian.Portfolio{"bitcoin": {Amount: 1}, "ethereum": {Amount: 2}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var resp server.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "result" {
		t.Fatalf("got %+v, want result", resp)
	}

	result, err := guardian.DecodeRiskResult(resp.Data)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if result.RiskScore != 1.1 || result.Diversification != 2 {
		t.Errorf("got %+v", result)
	}
}

func TestCommandAssessRiskDomainErrorBecomesErrorMessage(t *testing.T) {
	deps := &agent.Deps{Risk: &fakeRisk{err: guardian.ErrInsufficientPrices}}
	conn, ts := dial(t, deps)
	defer ts.Close()
	defer conn.Close()

	conn.WriteJSON(server.ClientMessage{
		Type:      "command",
		Command:   server.CommandAssessRisk,
		Portfolio: guardian.Portfolio{"bitcoin": {Amount: 1}},
	})

	var resp server.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "error" {
		t.Fatalf("got %+v, want error", resp)
	}
	if !strings.Contains(resp.Error, "insufficient price history") {
		t.Errorf("error text: %q", resp.Error)
	}
}

func TestTaggedChatCommandBypassesAgent(t *testing.T) {
	// Engine is nil: reaching the agent path would panic, so a clean
	// result proves the tagged string was dispatched directly.
	pools := &fakePools{pools: []guardian.PoolRecord{
		{Platform: "Uniswap", Pair: "ETH/USDC", APR: 0.3, TVL: 1e8, Risk: 1},
	}}
	conn, ts := dial(t, &agent.Deps{Pools: pools})
	defer ts.Close()
	defer conn.Close()

	conn.WriteJSON(server.ClientMessage{Type: "chat", Text: "FIND_LIQUIDITY_POOLS 0.25"})

	var resp server.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "result" {
		t.Fatalf("got %+v, want result", resp)
	}
	if pools.minAPR != 0.25 {
		t.Errorf("threshold: got %v", pools.minAPR)
	}

	records, err := guardian.DecodePoolRecords(resp.Data)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(records) != 1 || records[0].Pair != "ETH/USDC" {
		t.Errorf("got %+v", records)
	}
}

func TestCommandGetMetrics(t *testing.T) {
	deps := &agent.Deps{
		Metrics: &fakeMetrics{metrics: &guardian.TokenMetrics{Symbol: "bitcoin", Price: 50000}},
	}
	conn, ts := dial(t, deps)
	defer ts.Close()
	defer conn.Close()

	conn.WriteJSON(server.ClientMessage{Type: "command", Command: server.CommandGetMetrics, Symbol: "bitcoin"})

	var resp server.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "result" {
		t.Fatalf("got %+v", resp)
	}
	metrics, err := guardian.DecodeTokenMetrics(resp.Data)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if metrics.Price != 50000 {
		t.Errorf("got %+v", metrics)
	}
}

func TestUnknownMessagesGetErrors(t *testing.T) {
	conn, ts := dial(t, &agent.Deps{})
	defer ts.Close()
	defer conn.Close()

	cases := []server.ClientMessage{
		{Type: "telemetry"},
		{Type: "command", Command: "optimize_portfolio"},
		{Type: "command", Command: server.CommandAssessRisk}, // empty portfolio
		{Type: "command", Command: server.CommandGetMetrics}, // empty symbol
	}
	for _, msg := range cases {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("send: %v", err)
		}
		var resp server.ServerMessage
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if resp.Type != "error" || resp.Error == "" {
			t.Errorf("%+v: got %+v, want error", msg, resp)
		}
	}
}

func TestMalformedFrameGetsError(t *testing.T) {
	conn, ts := dial(t, &agent.Deps{})
	defer ts.Close()
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("send: %v", err)
	}
	var resp server.ServerMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "error" {
		t.Errorf("got %+v, want error", resp)
	}
}
