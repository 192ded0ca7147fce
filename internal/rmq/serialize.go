package rmq

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Serialize 将消息编码为紧凑的按名编码（map-of-name-to-value）msgpack 信封。
// 字段按名而非按位，保证前后向 schema 兼容。
func Serialize(msg any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("serialize %T: %w", msg, err)
	}
	return buf.Bytes(), nil
}

// Deserialize 从 msgpack 字节流解码消息
func Deserialize(data []byte, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("deserialize %T: %w", out, err)
	}
	return nil
}

// SerializeJSON 输出 JSON 变体，仅用于调试排查，不走生产链路
func SerializeJSON(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("serialize %T to json: %w", msg, err)
	}
	return data, nil
}
