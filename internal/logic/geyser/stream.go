package geyser

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"geyser-mq-sol/internal/metrics"
	"geyser-mq-sol/internal/svc"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// StreamManager 维护到 validator geyser 接口的订阅流：
// 建连、认证、应用层心跳、断流重连，并把原始更新推入 updateChan。
type StreamManager struct {
	mu                    sync.Mutex
	conn                  *grpc.ClientConn
	client                pb.GeyserClient
	stream                pb.Geyser_SubscribeClient
	stopped               bool
	reconnectAttempts     int
	reconnectInterval     time.Duration
	xToken                string
	streamPingIntervalSec int
	updateChan            chan *pb.SubscribeUpdate
	connCtx               context.Context
	connCancel            context.CancelFunc
	sendTimeoutSec        int
	updateRecvTimeoutSec  int
	subscribeTxs          bool

	logx.Logger
}

func NewStreamManager(sc *svc.ServiceContext, updateChan chan *pb.SubscribeUpdate) (*StreamManager, error) {
	grpcConf := sc.Config.Grpc

	configTls := &tls.Config{
		InsecureSkipVerify: true,
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(grpcConf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		grpcConf.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(configTls)),
		grpc.WithInitialWindowSize(int32(grpcConf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(grpcConf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcConf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(grpcConf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(grpcConf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(grpcConf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &StreamManager{
		conn:                  conn,
		client:                pb.NewGeyserClient(conn),
		reconnectInterval:     time.Duration(grpcConf.ReconnectIntervalSec) * time.Second,
		xToken:                grpcConf.XToken,
		streamPingIntervalSec: grpcConf.StreamPingIntervalSec,
		updateChan:            updateChan,
		sendTimeoutSec:        grpcConf.SendTimeoutSec,
		updateRecvTimeoutSec:  grpcConf.UpdateRecvTimeoutSec,
		// 指令选择器为空时整笔交易都不会被选中，直接跳过交易订阅
		subscribeTxs: !sc.InsSel.IsEmpty(),
		Logger:       logx.WithContext(context.Background()).WithFields(logx.Field("service", "stream_manager")),
	}, nil
}

func (m *StreamManager) Start() {
	m.mustConnect()
}

func (m *StreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// 内部循环直到连接成功
func (m *StreamManager) mustConnect() {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if m.reconnectAttempts > 0 {
			if m.reconnectAttempts > 3 {
				time.Sleep(m.reconnectInterval * 2)
			} else {
				time.Sleep(m.reconnectInterval)
			}
		}
		m.Infof("connecting... attempt %d", m.reconnectAttempts+1)
		m.reconnectAttempts++
		err := m.connect()
		if err == nil {
			return
		}
		m.Errorf("connect failed: %v, will retry...", err)
	}
}

// buildSubscribeRequest 构造订阅请求。服务端不做过滤，选择引擎在本地逐条判定，
// 保证判定顺序与优先级完全可控。
func (m *StreamManager) buildSubscribeRequest() *pb.SubscribeRequest {
	accounts := map[string]*pb.SubscribeRequestFilterAccounts{
		"all": {},
	}
	slots := map[string]*pb.SubscribeRequestFilterSlots{
		"all": {},
	}

	req := &pb.SubscribeRequest{
		Accounts: accounts,
		Slots:    slots,
	}

	if m.subscribeTxs {
		req.Transactions = map[string]*pb.SubscribeRequestFilterTransactions{
			"all": {
				Vote:   boolPtr(false),
				Failed: boolPtr(false),
			},
		}
	}

	commitment := pb.CommitmentLevel_PROCESSED
	req.Commitment = &commitment
	return req
}

// connect 只尝试一次连接
func (m *StreamManager) connect() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return errors.New("manager is stopped")
	}
	defer m.mu.Unlock()

	// 先关闭旧的 context，优雅退出旧 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(
		m.connCtx,
		metadata.New(map[string]string{"x-token": m.xToken}),
	)
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	req := m.buildSubscribeRequest()
	if err := sendWithTimeout(m.connCtx, stream.Send, req, time.Duration(m.sendTimeoutSec)*time.Second); err != nil {
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}

	m.stream = stream
	m.reconnectAttempts = 0
	m.Infof("stream established (transactions=%v)", m.subscribeTxs)

	go m.pingLoop(m.connCtx)
	go m.recvLoop(m.connCtx)

	return nil
}

func (m *StreamManager) recvLoop(ctx context.Context) {
	last := time.Now()
	recvTimeout := time.Duration(m.updateRecvTimeoutSec) * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		update, err := m.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				m.Errorf("stream closed by server (EOF), will reconnect")
				m.reconnect()
				return
			}
			m.Errorf("stream error: %v", err)
			if m.reconnectIfStale(last, recvTimeout) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		last = time.Now()

		// 阻塞写入形成背压：处理端追不上时由 gRPC 流控减速，而不是丢更新
		select {
		case m.updateChan <- update:
		case <-ctx.Done():
			return
		}
	}
}

// 心跳检测
func (m *StreamManager) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.streamPingIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: 1},
			}
			if err := sendWithTimeout(ctx, m.stream.Send, pingReq, time.Duration(m.sendTimeoutSec)*time.Second); err != nil {
				m.Errorf("ping failed: %v", err)
				// 只记录日志，不触发重连
			}
		}
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

func (m *StreamManager) reconnectIfStale(last time.Time, timeout time.Duration) bool {
	if timeout > 0 && time.Since(last) > timeout {
		m.Errorf("no updates received for %v, reconnecting", timeout)
		m.reconnect()
		return true
	}
	return false
}

func (m *StreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	metrics.Reconnects.Inc()
	go m.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
