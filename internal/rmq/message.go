package rmq

import (
	"fmt"

	"geyser-mq-sol/internal/types"
)

// AccountUpdate 是一条账户状态变更消息
type AccountUpdate struct {
	// Key 账户公钥
	Key types.Pubkey `msgpack:"key" json:"key"`
	// Lamports 账户余额
	Lamports uint64 `msgpack:"lamports" json:"lamports"`
	// Owner 控制该账户的程序
	Owner types.Pubkey `msgpack:"owner" json:"owner"`
	// Executable 账户数据是否为可执行合约
	Executable bool `msgpack:"executable" json:"executable"`
	// RentEpoch 下一个需缴租金的 epoch
	RentEpoch uint64 `msgpack:"rentEpoch" json:"rentEpoch"`
	// Data 账户数据原始字节
	Data []byte `msgpack:"data" json:"data"`
	// WriteVersion 单账户单调递增的写序号
	WriteVersion uint64 `msgpack:"writeVersion" json:"writeVersion"`
	// Slot 更新发生的 slot
	Slot uint64 `msgpack:"slot" json:"slot"`
	// IsStartup 是否为 validator 启动回放阶段产生
	IsStartup bool `msgpack:"isStartup" json:"isStartup"`
}

// InstructionIndex 标识指令在交易中的位置。
// Parent 为 -1 表示主指令，否则为所属主指令的序号（inner 指令）。
type InstructionIndex struct {
	Index  uint32 `msgpack:"index" json:"index"`
	Parent int32  `msgpack:"parent" json:"parent"`
}

// TopLevelIndex 构造主指令位置
func TopLevelIndex(i uint32) InstructionIndex {
	return InstructionIndex{Index: i, Parent: -1}
}

// InnerIndex 构造 inner 指令位置
func InnerIndex(parent uint32, i uint32) InstructionIndex {
	return InstructionIndex{Index: i, Parent: int32(parent)}
}

// IsTopLevel 返回是否为主指令
func (i InstructionIndex) IsTopLevel() bool {
	return i.Parent < 0
}

// InstructionNotify 是一条指令执行消息（仅来自执行成功的交易）
type InstructionNotify struct {
	// Program 被调用的程序
	Program types.Pubkey `msgpack:"program" json:"program"`
	// Data 指令操作码与参数字节
	Data []byte `msgpack:"data" json:"data"`
	// Accounts 指令的输入账户列表，保持原始顺序
	Accounts []types.Pubkey `msgpack:"accounts" json:"accounts"`
	// Slot 所属交易上报的 slot
	Slot uint64 `msgpack:"slot" json:"slot"`
	// TxnSignature 所属交易签名
	TxnSignature []byte `msgpack:"txnSignature" json:"txnSignature"`
	// Index 指令位置
	Index InstructionIndex `msgpack:"index" json:"index"`
}

// SlotStatus 是 slot 状态枚举，Rooted 为终态
type SlotStatus uint8

const (
	SlotProcessed SlotStatus = iota
	SlotConfirmed
	SlotRooted
)

func (s SlotStatus) String() string {
	switch s {
	case SlotProcessed:
		return "processed"
	case SlotConfirmed:
		return "confirmed"
	case SlotRooted:
		return "rooted"
	default:
		return fmt.Sprintf("slot-status(%d)", uint8(s))
	}
}

// SlotStatusUpdate 是一条 slot 状态变更消息
type SlotStatusUpdate struct {
	Slot   uint64     `msgpack:"slot" json:"slot"`
	Parent *uint64    `msgpack:"parent,omitempty" json:"parent,omitempty"`
	Status SlotStatus `msgpack:"status" json:"status"`
}

// Message 是发往 accounts 队列的外层信封。恰有一个变体非 nil；
// 字段按名编码，新增可选字段不会破坏旧消费者。
type Message struct {
	AccountUpdate     *AccountUpdate     `msgpack:"accountUpdate,omitempty" json:"accountUpdate,omitempty"`
	InstructionNotify *InstructionNotify `msgpack:"instructionNotify,omitempty" json:"instructionNotify,omitempty"`
	SlotStatus        *SlotStatusUpdate  `msgpack:"slotStatus,omitempty" json:"slotStatus,omitempty"`
}

// SlotReindex 请求对指定 slot 重新建立索引
type SlotReindex struct {
	Slot uint64 `msgpack:"slot" json:"slot"`
	// Startup 目标 AMQP 队列的启动类型
	Startup StartupType `msgpack:"startup" json:"startup"`
}

// JobMessage 是发往 jobs 队列的外层信封
type JobMessage struct {
	// RefreshTable 请求刷新指定缓存表
	RefreshTable string `msgpack:"refreshTable,omitempty" json:"refreshTable,omitempty"`
	// ReindexSlot 请求重建指定 slot
	ReindexSlot *SlotReindex `msgpack:"reindexSlot,omitempty" json:"reindexSlot,omitempty"`
}
