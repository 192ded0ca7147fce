package selector

import (
	"encoding/binary"
	"errors"
	"fmt"

	"geyser-mq-sol/internal/consts"
	"geyser-mq-sol/internal/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// ErrMissingAccountIndex 表示指令引用了交易账户表中不存在的账户索引。
// 属于单条事件级可恢复错误：丢弃该事件并计数，流继续。
var ErrMissingAccountIndex = errors.New("instruction references an account index missing from the transaction account table")

// burnDataLen 是 Burn 指令数据的精确长度：1 字节操作码 + 8 字节小端 amount
const burnDataLen = 9

// InstructionSelector 判定一条指令执行是否需要转发。构造后不可变，可被任意并发读取。
type InstructionSelector struct {
	programs map[types.Pubkey]struct{}

	// screenTokens：Programs 不含 TokenProgram 时静态禁用
	screenTokens Heuristic[bool]
}

// NewInstructionSelector 根据配置构造指令选择器，程序地址解析失败即返回错误（启动期致命）。
func NewInstructionSelector(cfg InstructionsConfig) (*InstructionSelector, error) {
	programs, err := types.TryPubkeySetFromBase58(cfg.Programs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instruction program keys: %w", err)
	}

	s := &InstructionSelector{
		programs:     programs,
		screenTokens: UsedHeuristic(!cfg.AllTokenCalls),
	}

	// Token 指令永远不会被选中时，不做 Token 筛查
	if _, ok := s.programs[consts.TokenProgram]; !ok {
		s.screenTokens = UnusedHeuristic[bool]()
	}

	return s, nil
}

// IsEmpty 返回该选择器是否永远不会选中任何指令，
// 调用方可据此跳过整笔交易的指令处理。
func (s *InstructionSelector) IsEmpty() bool {
	return len(s.programs) == 0
}

// Select 先通过账户索引回调解析目标程序地址，再做选择判定。
// 索引缺失时返回 ErrMissingAccountIndex。
func (s *InstructionSelector) Select(
	lookup func(idx uint32) (types.Pubkey, bool),
	programIdx uint32,
	data []byte,
) (bool, error) {
	program, ok := lookup(programIdx)
	if !ok {
		return false, fmt.Errorf("%w: program index %d", ErrMissingAccountIndex, programIdx)
	}
	return s.SelectResolved(program, data), nil
}

// SelectResolved 对已解析出的程序地址做选择判定。纯函数，不会失败。
//
// 判定顺序：
//  1. 目标程序不在白名单 → 拒绝
//  2. Burn 筛查启用且目标为 TokenProgram 时：仅放行 data 恰为
//     [Burn 操作码, LE64(1)] 的指令；其他操作码、长度不符或
//     amount != 1 一律拒绝
func (s *InstructionSelector) SelectResolved(program types.Pubkey, data []byte) bool {
	if _, ok := s.programs[program]; !ok {
		return false
	}

	if screen, ok := s.screenTokens.TryGet(); ok && screen && program == consts.TokenProgram {
		if len(data) != burnDataLen || data[0] != byte(sdktoken.InstructionBurn) {
			return false
		}
		if binary.LittleEndian.Uint64(data[1:burnDataLen]) != 1 {
			return false
		}
	}

	return true
}
