package rmq

import "fmt"

type suffixKind int

const (
	suffixProduction suffixKind = iota
	suffixStaging
	suffixDebug
	suffixProductionUnchecked
)

// Suffix 为 AMQP 对象名追加环境后缀，避免 staging / debug 环境与生产环境撞名。
type Suffix struct {
	kind suffixKind
	tag  string
}

// ProductionSuffix 生产环境名（debug 构建下 Format 会拒绝，防止误连生产队列）
func ProductionSuffix() Suffix {
	return Suffix{kind: suffixProduction}
}

// StagingSuffix 预发环境名，处理方式与生产一致
func StagingSuffix() Suffix {
	return Suffix{kind: suffixStaging}
}

// DebugSuffix 调试环境名，追加唯一标识避免互相干扰
func DebugSuffix(tag string) Suffix {
	return Suffix{kind: suffixDebug, tag: tag}
}

// ProductionUncheckedSuffix 强制生产名，绕过 debug 构建检查。仅在明确知道后果时使用。
func ProductionUncheckedSuffix() Suffix {
	return Suffix{kind: suffixProductionUnchecked}
}

// IsDebug 返回是否为调试后缀（调试队列声明为 auto-delete）
func (s Suffix) IsDebug() bool {
	return s.kind == suffixDebug
}

// Format 为前缀追加后缀。debug 构建下的无后缀生产名直接报错，
// 防止调试进程挂到生产队列上。
func (s Suffix) Format(prefix string) (string, error) {
	switch s.kind {
	case suffixProduction:
		if debugBuild {
			return "", fmt.Errorf("debug builds must specify a unique debug suffix for all AMQP names")
		}
		return prefix, nil
	case suffixProductionUnchecked:
		return prefix, nil
	case suffixStaging:
		return prefix + ".staging", nil
	case suffixDebug:
		return prefix + ".debug." + s.tag, nil
	default:
		return "", fmt.Errorf("invalid queue suffix kind %d", s.kind)
	}
}
