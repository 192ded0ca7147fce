package tokenreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"geyser-mq-sol/internal/types"
	"geyser-mq-sol/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/rest/httpc"
)

// DefaultListURL 是 Solana 官方 token list，作为已知同质化代币的排除名单来源
const DefaultListURL = "https://raw.githubusercontent.com/solana-labs/token-list/main/src/tokens/solana.tokenlist.json"

// Redis 缓存 key 与默认 TTL（token list 体量大且更新不频繁，重启时避免重复拉取）
const (
	cacheKey   = "tokenreg:mints"
	defaultTTL = 24 * time.Hour
)

type tokenItem struct {
	Address string `json:"address"`
}

type tokenList struct {
	Tokens []tokenItem `json:"tokens"`
}

// Loader 拉取 mint 排除名单，可选经由 Redis 读穿缓存。
type Loader struct {
	rdb *redis.Client // 可为 nil：不启用缓存
	url string
	ttl time.Duration
}

func NewLoader(rdb *redis.Client, url string, ttl time.Duration) *Loader {
	if url == "" {
		url = DefaultListURL
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Loader{rdb: rdb, url: url, ttl: ttl}
}

// Load 返回排除名单。优先读缓存，未命中则拉取远端并回填。
// 名单中任一地址非法视为致命错误（与选择器配置同级）。
func (l *Loader) Load(ctx context.Context) (map[types.Pubkey]struct{}, error) {
	if set, ok := l.loadCached(ctx); ok {
		return set, nil
	}

	set, raw, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	l.storeCached(ctx, raw)
	return set, nil
}

// loadCached 从 Redis 读取缓存名单，任何错误都降级为未命中
func (l *Loader) loadCached(ctx context.Context) (map[types.Pubkey]struct{}, bool) {
	if l.rdb == nil {
		return nil, false
	}
	members, err := l.rdb.SMembers(ctx, cacheKey).Result()
	if err != nil || len(members) == 0 {
		if err != nil && err != redis.Nil {
			logger.Warnf("token registry cache read failed: %v", err)
		}
		return nil, false
	}

	set := make(map[types.Pubkey]struct{}, len(members))
	for _, m := range members {
		p, err := types.TryPubkeyFromBase58(m)
		if err != nil {
			// 缓存被污染，放弃并走远端
			logger.Warnf("token registry cache corrupted (%v), refetching", err)
			return nil, false
		}
		set[p] = struct{}{}
	}
	logger.Infof("token registry loaded from cache: %d mints", len(set))
	return set, true
}

// storeCached 将名单回填 Redis，失败仅告警不影响启动
func (l *Loader) storeCached(ctx context.Context, addrs []string) {
	if l.rdb == nil || len(addrs) == 0 {
		return
	}
	pipe := l.rdb.Pipeline()
	members := make([]interface{}, len(addrs))
	for i, a := range addrs {
		members[i] = a
	}
	pipe.SAdd(ctx, cacheKey, members...)
	pipe.Expire(ctx, cacheKey, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf("token registry cache write failed: %v", err)
	}
}

// fetch 拉取远端 token list 并解析为地址集合
func (l *Loader) fetch(ctx context.Context) (map[types.Pubkey]struct{}, []string, error) {
	resp, err := httpc.Do(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("token registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("token registry request failed: status %d", resp.StatusCode)
	}

	var list tokenList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, nil, fmt.Errorf("failed to parse token registry response: %w", err)
	}

	set := make(map[types.Pubkey]struct{}, len(list.Tokens))
	raw := make([]string, 0, len(list.Tokens))
	for _, item := range list.Tokens {
		p, err := types.TryPubkeyFromBase58(item.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to convert token list entry: %w", err)
		}
		set[p] = struct{}{}
		raw = append(raw, item.Address)
	}
	logger.Infof("token registry fetched: %d mints", len(set))
	return set, raw, nil
}
