package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SourceEtherscan labels Etherscan requests in logs and metrics.
const SourceEtherscan = "etherscan"

// DefaultPageSize is the number of transfers requested per Etherscan page.
const DefaultPageSize = 1000

// RawTransfer is one ERC-20/721 token transfer as returned by Etherscan's
// tokentx action. All numeric fields are decimal strings.
type RawTransfer struct {
	BlockNumber      string `json:"blockNumber"`
	TimeStamp        string `json:"timeStamp"`
	Hash             string `json:"hash"`
	Nonce            string `json:"nonce,omitempty"`
	BlockHash        string `json:"blockHash,omitempty"`
	From             string `json:"from"`
	ContractAddress  string `json:"contractAddress"`
	To               string `json:"to"`
	Value            string `json:"value"`
	TokenName        string `json:"tokenName,omitempty"`
	TokenSymbol      string `json:"tokenSymbol,omitempty"`
	TokenDecimal     string `json:"tokenDecimal,omitempty"`
	TransactionIndex string `json:"transactionIndex,omitempty"`
	Gas              string `json:"gas,omitempty"`
	GasPrice         string `json:"gasPrice,omitempty"`
	GasUsed          string `json:"gasUsed,omitempty"`
	Confirmations    string `json:"confirmations,omitempty"`
}

// APIError is an Etherscan response with status "0" other than "no transactions".
type APIError struct {
	Status  string
	Message string
	Result  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("etherscan: status %s: %s (%s)", e.Status, e.Message, e.Result)
}

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// EtherscanClient fetches token transfers for a contract.
type EtherscanClient struct {
	http     *HTTPClient
	baseURL  string
	apiKey   string
	pageSize int
}

// NewEtherscanClient creates a client. pageSize <= 0 uses DefaultPageSize.
func NewEtherscanClient(baseURL, apiKey string, httpClient *HTTPClient, pageSize int) *EtherscanClient {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &EtherscanClient{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: pageSize,
	}
}

// FetchTransfers returns every transfer of contract, oldest first.
// Pages are requested until one comes back short.
func (c *EtherscanClient) FetchTransfers(ctx context.Context, contract string) ([]RawTransfer, error) {
	var all []RawTransfer
	for page := 1; ; page++ {
		batch, err := c.fetchPage(ctx, contract, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, batch...)
		if len(batch) < c.pageSize {
			return all, nil
		}
	}
}

func (c *EtherscanClient) fetchPage(ctx context.Context, contract string, page int) ([]RawTransfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("contractaddress", contract)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", strconv.Itoa(page))
	q.Set("offset", strconv.Itoa(c.pageSize))
	q.Set("sort", "asc")
	q.Set("apikey", c.apiKey)

	var resp etherscanResponse
	if err := c.http.getJSON(ctx, SourceEtherscan, c.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "1" {
		var msg string
		_ = json.Unmarshal(resp.Result, &msg)
		if strings.HasPrefix(resp.Message, "No transactions found") {
			return nil, nil
		}
		return nil, &APIError{Status: resp.Status, Message: resp.Message, Result: msg}
	}

	var transfers []RawTransfer
	if err := json.Unmarshal(resp.Result, &transfers); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return transfers, nil
}
