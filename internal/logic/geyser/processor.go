package geyser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"geyser-mq-sol/internal/consts"
	"geyser-mq-sol/internal/metrics"
	"geyser-mq-sol/internal/rmq"
	"geyser-mq-sol/internal/svc"
	"geyser-mq-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/metric"
	"github.com/zeromicro/go-zero/core/threading"
)

const defaultPublishTimeout = 30 * time.Second

// Processor 消费订阅流的原始更新，逐条做选择判定，被选中的事件
// 构造为类型化消息后异步发布（等待 broker 确认）。
//
// 每条更新是独立调度的工作单元：选择判定同步无阻塞（选择器状态只读共享，
// 无锁）；发布异步，慢 broker 只拖慢该单元，不影响其他并发单元。
// 不同单元的发布之间没有顺序保证。
type Processor struct {
	sc         *svc.ServiceContext
	updateChan chan *pb.SubscribeUpdate
	ctx        context.Context
	cancel     func(err error)
	sem        chan struct{} // 在途发布上限
	wg         sync.WaitGroup
	logx.Logger
}

func NewProcessor(sc *svc.ServiceContext, updateChan chan *pb.SubscribeUpdate) *Processor {
	limit := sc.Config.Jobs.Limit
	if limit <= 0 {
		limit = consts.CpuCount
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Processor{
		sc:         sc,
		updateChan: updateChan,
		ctx:        ctx,
		cancel:     cancel,
		sem:        make(chan struct{}, limit),
		Logger:     logx.WithContext(ctx).WithFields(logx.Field("service", "processor")),
	}
}

func (p *Processor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case update := <-p.updateChan:
			p.handleUpdate(update)
		}
	}
}

// Stop 取消在途发布并等待其退出（尽力送达，不保证已入队消息全部确认）
func (p *Processor) Stop() {
	p.cancel(errors.New("service stop"))
	p.wg.Wait()
}

func (p *Processor) handleUpdate(update *pb.SubscribeUpdate) {
	switch u := update.GetUpdateOneof().(type) {
	case *pb.SubscribeUpdate_Account:
		p.handleAccount(u.Account)
	case *pb.SubscribeUpdate_Transaction:
		p.handleTransaction(u.Transaction)
	case *pb.SubscribeUpdate_Slot:
		p.handleSlot(u.Slot)
	}
}

func (p *Processor) handleAccount(acct *pb.SubscribeUpdateAccount) {
	if acct == nil || acct.Account == nil {
		return
	}
	metrics.AcctRecvs.Inc()

	info := acct.Account
	pubkey, ok := types.PubkeyFromBytes(info.Pubkey)
	if !ok {
		metrics.Errs.Inc()
		p.Errorf("account update with invalid pubkey length %d, slot=%d", len(info.Pubkey), acct.Slot)
		return
	}
	owner, ok := types.PubkeyFromBytes(info.Owner)
	if !ok {
		metrics.Errs.Inc()
		p.Errorf("account update with invalid owner length %d, pubkey=%s", len(info.Owner), pubkey)
		return
	}

	if !p.sc.AcctSel.IsSelected(pubkey, owner, info.Data, acct.IsStartup) {
		return
	}

	p.publish(&rmq.Message{
		AccountUpdate: &rmq.AccountUpdate{
			Key:          pubkey,
			Lamports:     info.Lamports,
			Owner:        owner,
			Executable:   info.Executable,
			RentEpoch:    info.RentEpoch,
			Data:         info.Data,
			WriteVersion: info.WriteVersion,
			Slot:         acct.Slot,
			IsStartup:    acct.IsStartup,
		},
	}, metrics.AcctSends)
}

func (p *Processor) handleTransaction(txu *pb.SubscribeUpdateTransaction) {
	// 白名单为空时整笔交易都不可能被选中
	if p.sc.InsSel.IsEmpty() {
		return
	}
	if txu == nil || txu.Transaction == nil {
		return
	}
	tx := txu.Transaction
	if tx.IsVote || tx.Transaction == nil || tx.Transaction.Message == nil || tx.Meta == nil {
		return
	}
	// 只转发执行成功的交易
	if tx.Meta.Err != nil {
		metrics.TxnErrs.Inc()
		return
	}
	metrics.TxnRecvs.Inc()

	keys, err := buildAccountKeys(tx)
	if err != nil {
		metrics.Errs.Inc()
		p.Errorf("tx account table invalid: %v, slot=%d", err, txu.Slot)
		return
	}

	slot := txu.Slot
	signature := tx.Signature

	for i, ins := range tx.Transaction.Message.Instructions {
		p.processInstruction(rmq.TopLevelIndex(uint32(i)), ins.ProgramIdIndex, ins.Accounts, ins.Data, keys, slot, signature)
	}
	for _, group := range tx.Meta.InnerInstructions {
		for j, inner := range group.Instructions {
			p.processInstruction(rmq.InnerIndex(group.Index, uint32(j)), inner.ProgramIdIndex, inner.Accounts, inner.Data, keys, slot, signature)
		}
	}
}

// processInstruction 对单条指令做选择判定并发布。
// 账户索引缺失属于单条事件级错误：丢弃并计数，流继续。
func (p *Processor) processInstruction(
	index rmq.InstructionIndex,
	programIdx uint32,
	accountIdxs []byte,
	data []byte,
	keys []types.Pubkey,
	slot uint64,
	signature []byte,
) {
	lookup := func(idx uint32) (types.Pubkey, bool) {
		if int(idx) < len(keys) {
			return keys[idx], true
		}
		return types.Pubkey{}, false
	}

	selected, err := p.sc.InsSel.Select(lookup, programIdx, data)
	if err != nil {
		metrics.Errs.Inc()
		p.Errorf("instruction dropped: %v, slot=%d index=%+v", err, slot, index)
		return
	}
	if !selected {
		return
	}

	accounts := make([]types.Pubkey, len(accountIdxs))
	for i, idx := range accountIdxs {
		acct, ok := lookup(uint32(idx))
		if !ok {
			metrics.Errs.Inc()
			p.Errorf("instruction dropped: input account index %d out of range, slot=%d index=%+v", idx, slot, index)
			return
		}
		accounts[i] = acct
	}

	p.publish(&rmq.Message{
		InstructionNotify: &rmq.InstructionNotify{
			Program:      keys[programIdx],
			Data:         data,
			Accounts:     accounts,
			Slot:         slot,
			TxnSignature: signature,
			Index:        index,
		},
	}, metrics.InsSends)
}

func (p *Processor) handleSlot(s *pb.SubscribeUpdateSlot) {
	if s == nil {
		return
	}
	metrics.StatusRecvs.Inc()

	var status rmq.SlotStatus
	switch s.Status {
	case pb.SlotStatus_SLOT_PROCESSED:
		status = rmq.SlotProcessed
	case pb.SlotStatus_SLOT_CONFIRMED:
		status = rmq.SlotConfirmed
	case pb.SlotStatus_SLOT_FINALIZED:
		status = rmq.SlotRooted
	default:
		// 分片接收等中间状态对下游无意义，直接忽略
		return
	}

	p.publish(&rmq.Message{
		SlotStatus: &rmq.SlotStatusUpdate{
			Slot:   s.Slot,
			Parent: s.Parent,
			Status: status,
		},
	}, metrics.StatusSends)
}

// publish 异步发布一条消息并等待 broker 确认。信号量限制在途发布数，
// 单元内部 判定 → 构造 → 序列化 → 发布 保持顺序，单元之间无顺序保证。
func (p *Processor) publish(msg *rmq.Message, sent metric.CounterVec) {
	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		return
	}

	p.wg.Add(1)
	threading.GoSafe(func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		ctx, cancel := context.WithTimeout(p.ctx, defaultPublishTimeout)
		defer cancel()

		if err := p.sc.Producer.Publish(ctx, msg); err != nil {
			metrics.Errs.Inc()
			p.Errorf("publish failed: %v", err)
			return
		}
		sent.Inc()
	})
}

// buildAccountKeys 构造交易完整的账户表：message.accountKeys 拼接
// Address Lookup Table 加载的 writable / readonly 地址，供账户索引直接寻址。
func buildAccountKeys(tx *pb.SubscribeUpdateTransactionInfo) ([]types.Pubkey, error) {
	msgKeys := tx.Transaction.Message.AccountKeys
	writable := tx.Meta.LoadedWritableAddresses
	readonly := tx.Meta.LoadedReadonlyAddresses

	keys := make([]types.Pubkey, 0, len(msgKeys)+len(writable)+len(readonly))
	for _, group := range [][][]byte{msgKeys, writable, readonly} {
		for _, b := range group {
			k, ok := types.PubkeyFromBytes(b)
			if !ok {
				return nil, fmt.Errorf("invalid pubkey length %d at index %d", len(b), len(keys))
			}
			keys = append(keys, k)
		}
	}
	return keys, nil
}
