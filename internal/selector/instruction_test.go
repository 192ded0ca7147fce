package selector

import (
	"encoding/binary"
	"testing"

	"geyser-mq-sol/internal/consts"
	"geyser-mq-sol/internal/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// burnData 构造 Burn 指令数据：1 字节操作码 + 8 字节小端 amount
func burnData(amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = byte(sdktoken.InstructionBurn)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

func TestNewInstructionSelector_InvalidProgram(t *testing.T) {
	_, err := NewInstructionSelector(InstructionsConfig{Programs: []string{"bad!"}})
	assert.Error(t, err)
}

func TestInstructionSelector_IsEmpty(t *testing.T) {
	s, err := NewInstructionSelector(InstructionsConfig{})
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())

	s, err = NewInstructionSelector(InstructionsConfig{
		Programs: []string{consts.TokenProgramStr},
	})
	require.NoError(t, err)
	assert.False(t, s.IsEmpty())
}

func TestInstructionSelector_ProgramAllowList(t *testing.T) {
	program := testPubkey(0x42)
	s, err := NewInstructionSelector(InstructionsConfig{
		Programs: []string{program.String()},
	})
	require.NoError(t, err)

	assert.True(t, s.SelectResolved(program, []byte{0x01, 0x02}))
	assert.False(t, s.SelectResolved(testPubkey(0x43), []byte{0x01, 0x02}))
}

func TestInstructionSelector_BurnScreening(t *testing.T) {
	s, err := NewInstructionSelector(InstructionsConfig{
		Programs: []string{consts.TokenProgramStr},
	})
	require.NoError(t, err)

	// 仅放行 amount=1 的 Burn
	assert.True(t, s.SelectResolved(consts.TokenProgram, burnData(1)))
	assert.False(t, s.SelectResolved(consts.TokenProgram, burnData(2)))
	assert.False(t, s.SelectResolved(consts.TokenProgram, burnData(0)))

	// 其他操作码（如 Transfer=3）拒绝
	transfer := burnData(1)
	transfer[0] = byte(sdktoken.InstructionTransfer)
	assert.False(t, s.SelectResolved(consts.TokenProgram, transfer))

	// 长度不符拒绝
	assert.False(t, s.SelectResolved(consts.TokenProgram, burnData(1)[:8]))
	assert.False(t, s.SelectResolved(consts.TokenProgram, append(burnData(1), 0)))
	assert.False(t, s.SelectResolved(consts.TokenProgram, nil))
}

func TestInstructionSelector_BurnScreeningOnlyHitsTokenProgram(t *testing.T) {
	other := testPubkey(0x42)
	s, err := NewInstructionSelector(InstructionsConfig{
		Programs: []string{consts.TokenProgramStr, other.String()},
	})
	require.NoError(t, err)

	// 筛查只针对 Token 程序，其他白名单程序不受数据形状限制
	assert.True(t, s.SelectResolved(other, burnData(100)))
	assert.True(t, s.SelectResolved(other, nil))
	assert.False(t, s.SelectResolved(consts.TokenProgram, burnData(100)))
}

func TestInstructionSelector_AllTokenCalls(t *testing.T) {
	s, err := NewInstructionSelector(InstructionsConfig{
		Programs:      []string{consts.TokenProgramStr},
		AllTokenCalls: true,
	})
	require.NoError(t, err)

	// 筛查关闭时任意 Token 指令放行
	assert.True(t, s.SelectResolved(consts.TokenProgram, burnData(100)))
	assert.True(t, s.SelectResolved(consts.TokenProgram, []byte{byte(sdktoken.InstructionTransfer), 1}))
	assert.True(t, s.SelectResolved(consts.TokenProgram, nil))
}

func TestInstructionSelector_ScreeningStaticallyDisabled(t *testing.T) {
	program := testPubkey(0x42)
	s, err := NewInstructionSelector(InstructionsConfig{
		Programs: []string{program.String()},
	})
	require.NoError(t, err)

	// Token 程序不在白名单时筛查静态禁用，不影响其他程序的判定
	assert.True(t, s.SelectResolved(program, burnData(100)))
	assert.False(t, s.SelectResolved(consts.TokenProgram, burnData(1)))
}

func TestInstructionSelector_Select(t *testing.T) {
	program := testPubkey(0x42)
	s, err := NewInstructionSelector(InstructionsConfig{
		Programs: []string{program.String()},
	})
	require.NoError(t, err)

	table := []types.Pubkey{testPubkey(0x01), program}
	lookup := func(idx uint32) (types.Pubkey, bool) {
		if int(idx) >= len(table) {
			return types.Pubkey{}, false
		}
		return table[idx], true
	}

	ok, err := s.Select(lookup, 1, []byte{0x01})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Select(lookup, 0, []byte{0x01})
	require.NoError(t, err)
	assert.False(t, ok)

	// 账户索引越界属于事件级错误
	_, err = s.Select(lookup, 7, []byte{0x01})
	assert.ErrorIs(t, err, ErrMissingAccountIndex)
}
