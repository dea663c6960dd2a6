// dex-cli is a small REST client for exercising a running dexd node:
// deposits, limit/market orders, and book dumps.
//
// Examples:
//
//	dex-cli -cmd deposit -trader 0xAA.. -symbol ETH -amount 10000
//	dex-cli -cmd limit -trader 0xBB.. -side sell -symbol LINK -amount 5 -price 300
//	dex-cli -cmd market -trader 0xAA.. -side buy -symbol LINK -amount 10
//	dex-cli -cmd book -symbol LINK -side sell
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	var (
		node   = flag.String("node", "http://localhost:8080", "dexd API base URL")
		cmd    = flag.String("cmd", "", "deposit | withdraw | limit | market | book | balances | trades")
		trader = flag.String("trader", "", "trader address (0x-hex)")
		side   = flag.String("side", "", "buy or sell")
		symbol = flag.String("symbol", "", "token symbol")
		amount = flag.Int64("amount", 0, "quantity")
		price  = flag.Int64("price", 0, "limit price (native units per token unit)")
	)
	flag.Parse()

	var (
		body []byte
		err  error
	)
	switch *cmd {
	case "deposit", "withdraw":
		body, err = post(*node, fmt.Sprintf("/api/v1/accounts/%s/%s", *trader, *cmd),
			map[string]interface{}{"symbol": *symbol, "amount": *amount})
	case "limit":
		body, err = post(*node, "/api/v1/orders/limit", map[string]interface{}{
			"trader": *trader, "side": *side, "symbol": *symbol, "amount": *amount, "price": *price,
		})
	case "market":
		body, err = post(*node, "/api/v1/orders/market", map[string]interface{}{
			"trader": *trader, "side": *side, "symbol": *symbol, "amount": *amount,
		})
	case "book":
		path := "/api/v1/books/" + *symbol
		if *side != "" {
			path += "/" + *side
		}
		body, err = get(*node, path)
	case "balances":
		body, err = get(*node, fmt.Sprintf("/api/v1/accounts/%s/balances", *trader))
	case "trades":
		body, err = get(*node, "/api/v1/trades/"+*symbol)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(body))
	}
}

func post(node, path string, payload map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(node+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

func get(node, path string) ([]byte, error) {
	resp, err := http.Get(node + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return body, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
