// guardianctl is a terminal client for the guardian server. It dials the
// WebSocket endpoint, issues one command or chat query, and strict-parses
// the response.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/defiguardian/guardian/guardian"
	"github.com/defiguardian/guardian/server"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "guardian WebSocket endpoint")
	user := flag.String("user", "cli", "user id for the session")
	riskArg := flag.String("risk", "", `assess portfolio risk, e.g. '{"bitcoin":{"amount":2}}'`)
	poolsArg := flag.Float64("pools", -1, "find pools with APR above this fraction, e.g. 0.25")
	metricsArg := flag.String("metrics", "", "get metrics for one token, e.g. bitcoin")
	flag.Parse()

	msg, err := buildMessage(*riskArg, *poolsArg, *metricsArg, strings.Join(flag.Args(), " "))
	if err != nil {
		log.Fatal(err)
	}

	dialURL, err := sessionURL(*addr, *user)
	if err != nil {
		log.Fatalf("bad addr: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(dialURL, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", dialURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(msg); err != nil {
		log.Fatalf("send: %v", err)
	}

	streamed := false
	for {
		var resp server.ServerMessage
		if err := conn.ReadJSON(&resp); err != nil {
			log.Fatalf("read: %v", err)
		}

		switch resp.Type {
		case "chunk":
			fmt.Print(resp.Text)
			streamed = true

		case "result":
			if streamed {
				fmt.Println()
			} else if resp.Text != "" {
				fmt.Println(resp.Text)
			}
			if len(resp.Data) > 0 {
				printResult(msg.Command, resp.Data)
			}
			return

		case "error":
			fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error)
			os.Exit(1)

		default:
			log.Fatalf("unexpected message type %q", resp.Type)
		}
	}
}

func buildMessage(riskArg string, poolsArg float64, metricsArg, chat string) (*server.ClientMessage, error) {
	switch {
	case riskArg != "":
		portfolio, err := guardian.DecodePortfolio([]byte(riskArg))
		if err != nil {
			return nil, fmt.Errorf("bad portfolio: %w", err)
		}
		return &server.ClientMessage{
			Type:      "command",
			Command:   server.CommandAssessRisk,
			Portfolio: portfolio,
		}, nil

	case poolsArg >= 0:
		minAPR := poolsArg
		return &server.ClientMessage{
			Type:    "command",
			Command: server.CommandFindPools,
			MinAPR:  &minAPR,
		}, nil

	case metricsArg != "":
		return &server.ClientMessage{
			Type:    "command",
			Command: server.CommandGetMetrics,
			Symbol:  metricsArg,
		}, nil

	case chat != "":
		return &server.ClientMessage{Type: "chat", Text: chat}, nil
	}

	return nil, fmt.Errorf("nothing to do: pass -risk, -pools, -metrics, or a chat message")
}

func sessionURL(addr, user string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("user", user)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// printResult strict-parses the payload for the issued command and renders
// it. Unknown fields in the payload are an error, not something to ignore.
func printResult(command string, data []byte) {
	switch command {
	case server.CommandAssessRisk:
		result, err := guardian.DecodeRiskResult(data)
		if err != nil {
			log.Fatalf("bad risk result: %v", err)
		}
		fmt.Printf("risk score:      %.4f\n", result.RiskScore)
		fmt.Printf("diversification: %d\n", result.Diversification)
		fmt.Printf("correlation:     %.4f\n", result.Correlation)

	case server.CommandFindPools:
		pools, err := guardian.DecodePoolRecords(data)
		if err != nil {
			log.Fatalf("bad pool list: %v", err)
		}
		if len(pools) == 0 {
			fmt.Println("no pools above threshold")
			return
		}
		fmt.Printf("%-12s %-14s %8s %14s %5s\n", "PLATFORM", "PAIR", "APR", "TVL", "RISK")
		for _, p := range pools {
			fmt.Printf("%-12s %-14s %7.2f%% %14.0f %5d\n",
				p.Platform, p.Pair, p.APR*100, p.TVL, p.Risk)
		}

	case server.CommandGetMetrics:
		metrics, err := guardian.DecodeTokenMetrics(data)
		if err != nil {
			log.Fatalf("bad metrics: %v", err)
		}
		fmt.Printf("symbol:    %s\n", metrics.Symbol)
		fmt.Printf("price:     %.4f\n", metrics.Price)
		fmt.Printf("sentiment: %.4f\n", metrics.Sentiment)
		fmt.Printf("volume:    %.2f\n", metrics.Volume)

	default:
		fmt.Println(string(data))
	}
}
