package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkey_JSON(t *testing.T) {
	key := PubkeyFromBase58("So11111111111111111111111111111111111111112")

	data, err := json.Marshal(key)
	require.NoError(t, err)
	assert.Equal(t, `"So11111111111111111111111111111111111111112"`, string(data))

	var out Pubkey
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, key.Equals(out))

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &out))
	assert.Error(t, json.Unmarshal([]byte(`123`), &out))
}
