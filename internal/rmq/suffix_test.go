package rmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuffix_Format(t *testing.T) {
	name, err := StagingSuffix().Format("mainnet.accounts.indexer")
	require.NoError(t, err)
	assert.Equal(t, "mainnet.accounts.indexer.staging", name)

	name, err = DebugSuffix("alice").Format("mainnet.accounts.indexer")
	require.NoError(t, err)
	assert.Equal(t, "mainnet.accounts.indexer.debug.alice", name)

	name, err = ProductionUncheckedSuffix().Format("mainnet.accounts.indexer")
	require.NoError(t, err)
	assert.Equal(t, "mainnet.accounts.indexer", name)
}

func TestSuffix_ProductionFormat(t *testing.T) {
	name, err := ProductionSuffix().Format("mainnet.accounts.indexer")
	if debugBuild {
		// debug 构建不允许无后缀生产名
		assert.Error(t, err)
	} else {
		require.NoError(t, err)
		assert.Equal(t, "mainnet.accounts.indexer", name)
	}
}

func TestSuffix_IsDebug(t *testing.T) {
	assert.True(t, DebugSuffix("x").IsDebug())
	assert.False(t, ProductionSuffix().IsDebug())
	assert.False(t, StagingSuffix().IsDebug())
	assert.False(t, ProductionUncheckedSuffix().IsDebug())
}
