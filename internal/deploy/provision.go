package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/internal/oneshot"
)

// ProvisionConfig describes the deployer contract method to ensure.
type ProvisionConfig struct {
	ChainID          string
	ContractAddress  string
	MethodName       string
	CallbackURL      string
	MinWalletBalance float64
}

// DeployerMethod returns the creation payload of the token deployer method.
func DeployerMethod(cfg ProvisionConfig, walletID string) oneshot.CreateMethodRequest {
	return oneshot.CreateMethodRequest{
		ChainID:         cfg.ChainID,
		ContractAddress: cfg.ContractAddress,
		WalletID:        walletID,
		Name:            cfg.MethodName,
		Description:     "This deploys ERC20 tokens on the Sepolia testnet.",
		FunctionName:    "deployToken",
		CallbackURL:     cfg.CallbackURL,
		StateMutability: "nonpayable",
		Inputs: []oneshot.Param{
			{Name: "admin", Type: "address", Index: 0},
			{Name: "name", Type: "string", Index: 1},
			{Name: "ticker", Type: "string", Index: 2},
			{Name: "premint", Type: "uint", Index: 3},
		},
		Outputs: []oneshot.Param{},
	}
}

// Provision checks that a funded escrow wallet exists on the chain and makes
// sure the deployer contract method exists, creating it only when the
// listing comes back empty.
func Provision(ctx context.Context, api API, cfg ProvisionConfig) (oneshot.ContractMethod, error) {
	wallets, err := api.ListWallets(ctx, cfg.ChainID)
	if err != nil {
		return oneshot.ContractMethod{}, fmt.Errorf("%w: %w", ErrWalletLookup, err)
	}
	if len(wallets) == 0 {
		return oneshot.ContractMethod{}, fmt.Errorf("%w %s: provision one in the 1Shot dashboard", ErrNoWallet, cfg.ChainID)
	}
	wallet := wallets[0]
	if balance := wallet.BalanceFloat(); balance <= cfg.MinWalletBalance {
		return oneshot.ContractMethod{}, fmt.Errorf(
			"deploy: escrow wallet %s balance %s is not above %g", wallet.ID, wallet.Balance.Balance, cfg.MinWalletBalance)
	}
	logger.LogEvent(ctx, logger.Deploy, slog.LevelInfo, "provision.wallet",
		slog.String("wallet_id", wallet.ID),
		slog.String("balance", wallet.Balance.Balance),
	)

	methods, err := api.ListMethods(ctx, oneshot.MethodFilter{ChainID: cfg.ChainID, Name: cfg.MethodName})
	if err != nil {
		return oneshot.ContractMethod{}, fmt.Errorf("deploy: list methods: %w", err)
	}
	if len(methods) > 0 {
		logger.LogEvent(ctx, logger.Deploy, slog.LevelInfo, "provision.method",
			slog.String("status", "skip"),
			slog.String("method_id", methods[0].ID),
		)
		return methods[0], nil
	}

	created, err := api.CreateMethod(ctx, DeployerMethod(cfg, wallet.ID))
	if err != nil {
		return oneshot.ContractMethod{}, fmt.Errorf("deploy: create deployer method: %w", err)
	}
	logger.LogEvent(ctx, logger.Deploy, slog.LevelInfo, "provision.method",
		slog.String("status", "ok"),
		slog.String("method_id", created.ID),
	)
	return created, nil
}
