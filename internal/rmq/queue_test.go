package rmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	for _, s := range []string{"mainnet", "devnet", "testnet"} {
		n, err := ParseNetwork(s)
		require.NoError(t, err)
		assert.Equal(t, Network(s), n)
	}

	_, err := ParseNetwork("localnet")
	assert.Error(t, err)
	_, err = ParseNetwork("")
	assert.Error(t, err)
}

func TestStartupTypeFromFlag(t *testing.T) {
	assert.Equal(t, StartupTypeAll, StartupTypeFromFlag(nil))

	v := true
	assert.Equal(t, StartupTypeStartup, StartupTypeFromFlag(&v))
	v = false
	assert.Equal(t, StartupTypeNormal, StartupTypeFromFlag(&v))
}

func TestNewAccountsQueue_Names(t *testing.T) {
	props, err := NewAccountsQueue(NetworkMainnet, StartupTypeNormal, ProductionUncheckedSuffix())
	require.NoError(t, err)
	assert.Equal(t, "mainnet.accounts", props.Exchange)
	assert.Equal(t, "mainnet.accounts.indexer", props.Queue)

	props, err = NewAccountsQueue(NetworkMainnet, StartupTypeStartup, ProductionUncheckedSuffix())
	require.NoError(t, err)
	assert.Equal(t, "mainnet.startup.accounts", props.Exchange)
	assert.Equal(t, "mainnet.startup.accounts.indexer", props.Queue)

	props, err = NewAccountsQueue(NetworkDevnet, StartupTypeAll, StagingSuffix())
	require.NoError(t, err)
	assert.Equal(t, "devnet.startup-all.accounts", props.Exchange)
	assert.Equal(t, "devnet.startup-all.accounts.indexer.staging", props.Queue)

	// 环境后缀只作用于队列名，交换机名保持共享
	props, err = NewAccountsQueue(NetworkTestnet, StartupTypeNormal, DebugSuffix("bob"))
	require.NoError(t, err)
	assert.Equal(t, "testnet.accounts", props.Exchange)
	assert.Equal(t, "testnet.accounts.indexer.debug.bob", props.Queue)
}

func TestNewAccountsQueue_Props(t *testing.T) {
	props, err := NewAccountsQueue(NetworkMainnet, StartupTypeNormal, ProductionUncheckedSuffix())
	require.NoError(t, err)
	assert.Equal(t, "fanout", props.Binding.ExchangeKind())
	assert.Equal(t, "", props.Binding.RoutingKey())
	assert.Equal(t, uint16(4096), props.Prefetch)
	assert.False(t, props.AutoDelete)
	require.NotNil(t, props.Retry)
	assert.Equal(t, uint64(3), props.Retry.MaxTries)
	assert.Equal(t, 500*time.Millisecond, props.Retry.DelayHint)
	assert.Equal(t, 10*time.Minute, props.Retry.MaxDelay)
}

func TestNewAccountsQueue_Capacity(t *testing.T) {
	// 实时流 4GiB，启动回放 50GiB，调试 100MiB 且 auto-delete
	props, err := NewAccountsQueue(NetworkMainnet, StartupTypeNormal, ProductionUncheckedSuffix())
	require.NoError(t, err)
	assert.Equal(t, int64(4*gib), props.MaxLenBytes)

	props, err = NewAccountsQueue(NetworkMainnet, StartupTypeStartup, ProductionUncheckedSuffix())
	require.NoError(t, err)
	assert.Equal(t, int64(50*gib), props.MaxLenBytes)

	props, err = NewAccountsQueue(NetworkMainnet, StartupTypeAll, StagingSuffix())
	require.NoError(t, err)
	assert.Equal(t, int64(50*gib), props.MaxLenBytes)

	props, err = NewAccountsQueue(NetworkMainnet, StartupTypeNormal, DebugSuffix("bob"))
	require.NoError(t, err)
	assert.Equal(t, int64(100*mib), props.MaxLenBytes)
	assert.True(t, props.AutoDelete)
}

func TestNewJobsQueue(t *testing.T) {
	props, err := NewJobsQueue("indexer", StartupTypeNormal, ProductionUncheckedSuffix())
	require.NoError(t, err)
	assert.Equal(t, "indexer.jobs", props.Exchange)
	assert.Equal(t, "indexer.jobs.runner", props.Queue)
	assert.Equal(t, "direct", props.Binding.ExchangeKind())
	assert.Equal(t, "normal", props.Binding.RoutingKey())
	assert.Equal(t, uint16(1), props.Prefetch)
	assert.Equal(t, int64(100*mib), props.MaxLenBytes)
	assert.False(t, props.AutoDelete)
	require.NotNil(t, props.Retry)
	assert.Equal(t, uint64(5), props.Retry.MaxTries)
	assert.Equal(t, 5*time.Second, props.Retry.DelayHint)
	assert.Equal(t, 10*time.Minute, props.Retry.MaxDelay)

	props, err = NewJobsQueue("indexer", StartupTypeAll, DebugSuffix("bob"))
	require.NoError(t, err)
	assert.Equal(t, "indexer.jobs.runner.debug.bob", props.Queue)
	assert.Equal(t, "startup-all", props.Binding.RoutingKey())
	assert.True(t, props.AutoDelete)
}
