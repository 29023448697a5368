package infra

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DialWallet connects to a wallet's JSON-RPC endpoint and verifies it answers
// eth_chainId. It returns the client and the reported chain id.
func DialWallet(ctx context.Context, url string) (*rpc.Client, *big.Int, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("wallet rpc url is required")
	}

	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial wallet rpc: %w", err)
	}

	chainID, err := ChainID(ctx, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return client, chainID, nil
}

// ChainID asks the node behind client for its chain id.
func ChainID(ctx context.Context, client *rpc.Client) (*big.Int, error) {
	chainID, err := ethclient.NewClient(client).ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	return chainID, nil
}
