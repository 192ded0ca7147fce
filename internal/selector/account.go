package selector

import (
	"encoding/binary"
	"fmt"

	"geyser-mq-sol/internal/consts"
	"geyser-mq-sol/internal/rmq"
	"geyser-mq-sol/internal/types"
)

// tokenAccount 是 SPL Token Account 定长布局中本模块关心的字段。
// 布局（共 165 字节）：mint[0:32]、owner[32:64]、amount[64:72]（小端 u64）。
type tokenAccount struct {
	mint   types.Pubkey
	amount uint64
}

// parseTokenAccount 尝试把账户数据按 SPL Token Account 布局解释。
// owner 不是 TokenProgram 或长度不等于 165 字节都视为“非 Token 账户”，不是错误。
func parseTokenAccount(owner types.Pubkey, data []byte) (tokenAccount, bool) {
	if owner != consts.TokenProgram || len(data) != consts.TokenAccountSize {
		return tokenAccount{}, false
	}
	var t tokenAccount
	copy(t.mint[:], data[:32])
	t.amount = binary.LittleEndian.Uint64(data[64:72])
	return t, true
}

// AccountSelector 判定一条账户更新是否需要转发。
// 除 InitTokenRegistry 的一次性填充外，构造后不可变，可被任意并发读取。
type AccountSelector struct {
	owners  map[types.Pubkey]struct{}
	pubkeys map[types.Pubkey]struct{}
	mints   map[types.Pubkey]struct{}
	startup *bool

	// tokenReg 内层取值三态：
	//   - Heuristic 禁用：Owners 不含 TokenProgram，排除筛查永远不会命中；
	//   - 内层 nil：all_tokens=true，不做排除筛查；
	//   - 内层非 nil：排除名单（空 map 表示等待 InitTokenRegistry 填充）。
	tokenReg Heuristic[map[types.Pubkey]struct{}]
}

// NewAccountSelector 根据配置构造账户选择器，任一地址解析失败即返回错误（启动期致命）。
func NewAccountSelector(cfg AccountsConfig) (*AccountSelector, error) {
	owners, err := types.TryPubkeySetFromBase58(cfg.Owners)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account owner keys: %w", err)
	}
	pubkeys, err := types.TryPubkeySetFromBase58(cfg.Pubkeys)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account pubkeys: %w", err)
	}
	mints, err := types.TryPubkeySetFromBase58(cfg.Mints)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token account mint addresses: %w", err)
	}

	s := &AccountSelector{
		owners:  owners,
		pubkeys: pubkeys,
		mints:   mints,
		startup: cfg.Startup,
	}

	if cfg.AllTokens {
		s.tokenReg = UsedHeuristic[map[types.Pubkey]struct{}](nil)
	} else {
		s.tokenReg = UsedHeuristic(map[types.Pubkey]struct{}{})
	}

	// Token 账户永远不会被选中时，不做任何 Token 筛查
	if _, ok := s.owners[consts.TokenProgram]; !ok {
		s.tokenReg = UnusedHeuristic[map[types.Pubkey]struct{}]()
	}

	return s, nil
}

// Startup 返回按 startup 配置推导的队列启动类型
func (s *AccountSelector) Startup() rmq.StartupType {
	return rmq.StartupTypeFromFlag(s.startup)
}

// ScreenTokenRegistry 返回是否需要加载外部排除名单
func (s *AccountSelector) ScreenTokenRegistry() bool {
	reg, ok := s.tokenReg.TryGet()
	return ok && reg != nil
}

// InitTokenRegistry 一次性填充外部获取的 mint 排除名单。
// 名单未被需要、或已填充过时 panic（构造/启动期缺陷）。
// 必须在任何并发 IsSelected 调用开始之前完成。
func (s *AccountSelector) InitTokenRegistry(addrs map[types.Pubkey]struct{}) {
	reg := s.tokenReg.Get()
	if reg == nil {
		panic("token registry not wanted by selector configuration")
	}
	if len(reg) != 0 {
		panic("token registry already populated")
	}
	s.tokenReg.Set(addrs)
}

// IsSelected 返回该账户更新是否被选中。纯函数，无副作用，无错误出口：
// 数据不匹配定长 Token 布局时按“非 Token 账户”降级处理。
//
// 判定为有序短路谓词列表，顺序即优先级：
//  1. startup 阶段过滤（先于所有规则，包括显式白名单）
//  2. 显式 pubkey 白名单，命中即放行
//  3. mint 白名单（需可解释为 Token 账户）
//  4. owner 白名单，不命中即拒绝
//  5. Token 排除启发式：仅放行未被排除的单枚持仓（近似 NFT）
func (s *AccountSelector) IsSelected(pubkey, owner types.Pubkey, data []byte, isStartup bool) bool {
	if s.startup != nil && *s.startup != isStartup {
		return false
	}

	if _, ok := s.pubkeys[pubkey]; ok {
		return true
	}

	// 仅在可能影响结果时才解析 Token 账户布局
	var tok *tokenAccount
	if len(s.mints) > 0 || s.ScreenTokenRegistry() {
		if t, ok := parseTokenAccount(owner, data); ok {
			tok = &t
		}
	}

	if tok != nil {
		if _, ok := s.mints[tok.mint]; ok {
			return true
		}
	}

	if _, ok := s.owners[owner]; !ok {
		return false
	}

	if reg, ok := s.tokenReg.TryGet(); ok && reg != nil && tok != nil {
		if _, excluded := reg[tok.mint]; excluded || tok.amount > 1 {
			return false
		}
	}

	return true
}
