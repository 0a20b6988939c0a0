package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

const lamportsPerUnit = 1e9

// tokenProgramID scopes getTokenAccountsByOwner to standard token accounts.
const tokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// RPCProvider implements Provider against a JSON-RPC node.
type RPCProvider struct {
	Endpoint string
	Client   *fasthttp.Client
	Timeout  time.Duration
}

// NewRPCProvider creates a provider for the given endpoint.
func NewRPCProvider(endpoint string) *RPCProvider {
	return &RPCProvider{
		Endpoint: endpoint,
		Client:   &fasthttp.Client{},
		Timeout:  10 * time.Second,
	}
}

func (p *RPCProvider) call(ctx context.Context, method string, params []any) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.Client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%s: http %d", method, resp.StatusCode())
	}
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	if errMsg := gjson.GetBytes(out, "error.message"); errMsg.Exists() {
		return nil, fmt.Errorf("%s: rpc error: %s", method, errMsg.String())
	}
	return out, nil
}

// ListHeldAssets queries the owner's parsed token accounts.
func (p *RPCProvider) ListHeldAssets(ctx context.Context, owner string) ([]HeldAsset, error) {
	raw, err := p.call(ctx, "getTokenAccountsByOwner", []any{
		owner,
		map[string]string{"programId": tokenProgramID},
		map[string]string{"encoding": "jsonParsed"},
	})
	if err != nil {
		return nil, err
	}
	var assets []HeldAsset
	for _, acc := range gjson.GetBytes(raw, "result.value").Array() {
		info := acc.Get("account.data.parsed.info")
		if !info.Exists() {
			continue
		}
		assets = append(assets, HeldAsset{
			Mint:      info.Get("mint").String(),
			UIAmount:  info.Get("tokenAmount.uiAmount").Float(),
			RawAmount: info.Get("tokenAmount.amount").Uint(),
			Decimals:  int(info.Get("tokenAmount.decimals").Int()),
		})
	}
	return assets, nil
}

// NativeBalance queries the owner's lamport balance and converts to units.
func (p *RPCProvider) NativeBalance(ctx context.Context, owner string) (float64, error) {
	raw, err := p.call(ctx, "getBalance", []any{owner})
	if err != nil {
		return 0, err
	}
	return gjson.GetBytes(raw, "result.value").Float() / lamportsPerUnit, nil
}
