//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicchain/petition-discovery/internal/chainclient/evm"
	"github.com/civicchain/petition-discovery/pkg/contract"
	"github.com/civicchain/petition-discovery/pkg/discovery"
	"github.com/civicchain/petition-discovery/pkg/signers"
	"github.com/civicchain/petition-discovery/pkg/utils"
)

// liveEnv is the chain under test. The contract address has no default, so
// tests skip unless CONTRACT_ADDRESS is set.
type liveEnv struct {
	client   *evm.Client
	platform *contract.PetitionPlatform
	resolver *signers.Resolver
	svc      *discovery.Service
	log      *zap.SugaredLogger
	chainID  uint64
}

func newLiveEnv(t *testing.T, ctx context.Context) *liveEnv {
	t.Helper()
	address := os.Getenv("CONTRACT_ADDRESS")
	if address == "" {
		t.Skip("CONTRACT_ADDRESS not set")
	}
	rpcURL := getEnvStr("RPC_URL", "https://rpc.sepolia-api.lisk.com")
	clientType := getEnvStr("CLIENT_TYPE", evm.ClientTypeCoreth)

	log, err := utils.NewSugaredLogger(true, "e2e")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Desugar().Sync() })

	client, err := evm.Dial(ctx, clientType, rpcURL, evm.WithLogger(log))
	require.NoError(t, err, "rpc dial failed (check RPC_URL)")
	t.Cleanup(client.Close)

	platform, err := contract.NewPetitionPlatform(client, address, log, nil)
	require.NoError(t, err)
	resolver, err := signers.NewResolver(client, address, signers.DefaultTimeout, log, nil)
	require.NoError(t, err)

	return &liveEnv{
		client:   client,
		platform: platform,
		resolver: resolver,
		svc:      discovery.New(platform, resolver, log),
		log:      log,
		chainID:  getEnvUint64("CHAIN_ID", 4202),
	}
}

func getEnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		var out uint64
		_, _ = fmt.Sscanf(v, "%d", &out)
		if out != 0 {
			return out
		}
	}
	return def
}
