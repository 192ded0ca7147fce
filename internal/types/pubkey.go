package types

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/vmihailenco/msgpack/v5"
)

type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

// EncodeMsgpack 以 msgpack bin 格式编码（32 字节原始数据，而非整数数组）
func (p Pubkey) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(p[:])
}

func (p *Pubkey) DecodeMsgpack(dec *msgpack.Decoder) error {
	b, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("invalid pubkey length: got %d, want 32", len(b))
	}
	copy(p[:], b)
	return nil
}

// MarshalJSON 以 base58 字符串编码（JSON 仅用于调试输出，可读性优先）
func (p Pubkey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pubkey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := TryPubkeyFromBase58(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PubkeyFromBytes 从原始字节构造 Pubkey，长度不为 32 时返回 false
func PubkeyFromBytes(b []byte) (Pubkey, bool) {
	if len(b) != 32 {
		return Pubkey{}, false
	}
	var p Pubkey
	copy(p[:], b)
	return p, true
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// TryPubkeySetFromBase58 将配置中的 base58 地址列表解析为集合，任一地址非法即失败
func TryPubkeySetFromBase58(strs []string) (map[Pubkey]struct{}, error) {
	result := make(map[Pubkey]struct{}, len(strs))
	for _, s := range strs {
		p, err := TryPubkeyFromBase58(s)
		if err != nil {
			return nil, err
		}
		result[p] = struct{}{}
	}
	return result, nil
}
