package geyser

import (
	"testing"

	"geyser-mq-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawKey(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

func TestBuildAccountKeys(t *testing.T) {
	tx := &pb.SubscribeUpdateTransactionInfo{
		Transaction: &pb.Transaction{
			Message: &pb.Message{
				AccountKeys: [][]byte{rawKey(0x01), rawKey(0x02)},
			},
		},
		Meta: &pb.TransactionStatusMeta{
			LoadedWritableAddresses: [][]byte{rawKey(0x03)},
			LoadedReadonlyAddresses: [][]byte{rawKey(0x04), rawKey(0x05)},
		},
	}

	keys, err := buildAccountKeys(tx)
	require.NoError(t, err)
	require.Len(t, keys, 5)

	// 顺序：message 账户表 → ALT writable → ALT readonly
	for i, b := range []byte{0x01, 0x02, 0x03, 0x04, 0x05} {
		var want types.Pubkey
		copy(want[:], rawKey(b))
		assert.Equal(t, want, keys[i])
	}
}

func TestBuildAccountKeys_InvalidLength(t *testing.T) {
	tx := &pb.SubscribeUpdateTransactionInfo{
		Transaction: &pb.Transaction{
			Message: &pb.Message{
				AccountKeys: [][]byte{rawKey(0x01), rawKey(0x02)[:31]},
			},
		},
		Meta: &pb.TransactionStatusMeta{},
	}

	_, err := buildAccountKeys(tx)
	assert.Error(t, err)
}
