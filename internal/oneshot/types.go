package oneshot

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Wallet is an escrow wallet able to sign transactions on a chain.
type Wallet struct {
	ID             string         `json:"id"`
	AccountAddress string         `json:"accountAddress"`
	ChainID        string         `json:"chainId"`
	Name           string         `json:"name"`
	Balance        BalanceDetails `json:"accountBalanceDetails"`
}

// BalanceDetails carries the wallet balance as a decimal string.
type BalanceDetails struct {
	Balance string `json:"balance"`
}

// BalanceFloat parses the balance; an unparsable value reads as zero.
func (w Wallet) BalanceFloat() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(w.Balance.Balance), 64)
	if err != nil {
		return 0
	}
	return v
}

// Param describes one input or output of a contract method.
type Param struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// ContractMethod is a 1Shot endpoint wrapping a single contract function.
type ContractMethod struct {
	ID              string  `json:"id"`
	BusinessID      string  `json:"businessId,omitempty"`
	ChainID         string  `json:"chainId"`
	ContractAddress string  `json:"contractAddress"`
	WalletID        string  `json:"walletId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	FunctionName    string  `json:"functionName"`
	CallbackURL     string  `json:"callbackUrl,omitempty"`
	StateMutability string  `json:"stateMutability"`
	Inputs          []Param `json:"inputs"`
	Outputs         []Param `json:"outputs"`
	// PublicKey verifies signatures of webhooks this method emits.
	PublicKey string `json:"publicKey,omitempty"`
}

// CreateMethodRequest is the body of a contract method creation.
type CreateMethodRequest struct {
	ChainID         string  `json:"chainId"`
	ContractAddress string  `json:"contractAddress"`
	WalletID        string  `json:"walletId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	FunctionName    string  `json:"functionName"`
	CallbackURL     string  `json:"callbackUrl"`
	StateMutability string  `json:"stateMutability"`
	Inputs          []Param `json:"inputs"`
	Outputs         []Param `json:"outputs"`
}

// MethodFilter narrows ListMethods.
type MethodFilter struct {
	ChainID  string
	Name     string
	Page     int
	PageSize int
}

// ExecuteRequest is the body of a contract method execution.
type ExecuteRequest struct {
	Params map[string]any `json:"params"`
	Memo   string         `json:"memo,omitempty"`
}

// Execution is the synchronous acknowledgement of an execute call. The
// on-chain outcome arrives later by webhook.
type Execution struct {
	ID               string `json:"id"`
	TransactionID    string `json:"transactionId"`
	Status           string `json:"status"`
	ChainID          string `json:"chainId"`
	Memo             string `json:"memo,omitempty"`
	TransactionHash  string `json:"transactionHash,omitempty"`
	CreatedTimestamp int64  `json:"createdTimestamp,omitempty"`
}

// page is the list envelope returned by collection endpoints.
type page[T any] struct {
	Response     []T `json:"response"`
	Page         int `json:"page"`
	PageSize     int `json:"pageSize"`
	TotalResults int `json:"totalResults"`
}

type apiError struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}
