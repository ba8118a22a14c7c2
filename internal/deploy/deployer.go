package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/internal/memo"
	"github.com/m3rciful/tokenbot/internal/oneshot"
	"github.com/m3rciful/tokenbot/internal/store"
)

var (
	// ErrWalletLookup wraps a failed escrow wallet listing.
	ErrWalletLookup = errors.New("deploy: wallet lookup failed")
	// ErrNoWallet is returned when the chain has no escrow wallet.
	ErrNoWallet = errors.New("deploy: no escrow wallet on chain")
	// ErrNoMethod is returned when the deployer contract method is missing.
	ErrNoMethod = errors.New("deploy: deployer method not found")
	// ErrExecute wraps a failed execution request.
	ErrExecute = errors.New("deploy: execution request failed")
)

// API is the subset of the 1Shot client the deployment flow needs.
type API interface {
	ListWallets(ctx context.Context, chainID string) ([]oneshot.Wallet, error)
	ListMethods(ctx context.Context, f oneshot.MethodFilter) ([]oneshot.ContractMethod, error)
	CreateMethod(ctx context.Context, req oneshot.CreateMethodRequest) (oneshot.ContractMethod, error)
	Execute(ctx context.Context, methodID string, req oneshot.ExecuteRequest) (oneshot.Execution, error)
}

// DeployerConfig selects the chain and the deployer contract method.
type DeployerConfig struct {
	ChainID    string
	MethodName string
}

// Deployer submits token deployments and records them in the ledger.
type Deployer struct {
	api    API
	ledger store.ExecutionStore
	cfg    DeployerConfig

	mu       sync.Mutex
	methodID string
}

// NewDeployer builds a Deployer. ledger may be nil.
func NewDeployer(api API, ledger store.ExecutionStore, cfg DeployerConfig) *Deployer {
	return &Deployer{api: api, ledger: ledger, cfg: cfg}
}

// UseMethod pins the deployer method id, skipping the lookup on submit.
func (d *Deployer) UseMethod(id string) {
	d.mu.Lock()
	d.methodID = id
	d.mu.Unlock()
}

// Submit resolves the admin wallet and executes the deployer method with a
// token-creation memo. It does not wait for the on-chain result.
func (d *Deployer) Submit(ctx context.Context, req Request) (Receipt, error) {
	wallets, err := d.api.ListWallets(ctx, d.cfg.ChainID)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrWalletLookup, err)
	}
	if len(wallets) == 0 {
		return Receipt{}, ErrNoWallet
	}
	admin := wallets[0].AccountAddress

	methodID, err := d.resolveMethod(ctx)
	if err != nil {
		return Receipt{}, err
	}

	m, err := memo.NewTokenCreation(req.UserID, req.Token)
	if err != nil {
		return Receipt{}, err
	}
	encoded, err := memo.Encode(m)
	if err != nil {
		return Receipt{}, err
	}

	ex, err := d.api.Execute(ctx, methodID, oneshot.ExecuteRequest{
		Params: map[string]any{
			"admin":   admin,
			"name":    req.Token.Name,
			"ticker":  req.Token.Ticker,
			"premint": req.Premint,
		},
		Memo: encoded,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrExecute, err)
	}

	d.record(ctx, &store.Execution{
		ID:       ex.ID,
		MethodID: methodID,
		UserID:   req.UserID,
		Kind:     int(memo.KindTokenCreation),
		Memo:     encoded,
		Status:   store.ExecutionSubmitted,
	})
	return Receipt{ExecutionID: ex.ID, MethodID: methodID}, nil
}

func (d *Deployer) resolveMethod(ctx context.Context) (string, error) {
	d.mu.Lock()
	id := d.methodID
	d.mu.Unlock()
	if id != "" {
		return id, nil
	}

	methods, err := d.api.ListMethods(ctx, oneshot.MethodFilter{
		ChainID:  d.cfg.ChainID,
		Name:     d.cfg.MethodName,
		Page:     1,
		PageSize: 10,
	})
	if err != nil {
		return "", fmt.Errorf("deploy: list methods: %w", err)
	}
	if len(methods) == 0 {
		return "", ErrNoMethod
	}
	d.UseMethod(methods[0].ID)
	return methods[0].ID, nil
}

// record appends to the ledger; a ledger failure never fails the submission.
func (d *Deployer) record(ctx context.Context, ex *store.Execution) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.CreateExecution(ctx, ex); err != nil {
		logger.LogEvent(ctx, logger.Deploy, slog.LevelWarn, "ledger.create",
			slog.String("execution_id", ex.ID),
			slog.String("err", err.Error()),
		)
	}
}
