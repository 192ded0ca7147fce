package selector

// AccountsConfig 是账户选择器的配置块，地址均为 base58 字符串，构造时解析。
type AccountsConfig struct {
	// Owners 按账户 owner 程序过滤
	Owners []string `yaml:"owners"`

	// Pubkeys 显式账户白名单：除 startup 过滤外无条件放行
	Pubkeys []string `yaml:"pubkeys"`

	// Mints 按 SPL Token 账户的 mint 过滤
	Mints []string `yaml:"mints"`

	// Startup 三态开关：
	//   - nil：忽略 is_startup 标志，全部推送；
	//   - true：仅推送 startup 回放阶段的更新；
	//   - false：仅推送实时流阶段的更新。
	Startup *bool `yaml:"startup"`

	// AllTokens 为 true 时关闭 Token 账户降噪启发式。
	// Owners 不含 TokenProgram 时该开关无效。
	AllTokens bool `yaml:"all_tokens"`
}

// InstructionsConfig 是指令选择器的配置块。
type InstructionsConfig struct {
	// Programs 目标程序白名单
	Programs []string `yaml:"programs"`

	// AllTokenCalls 为 true 时关闭 Token 指令降噪启发式。
	// 启发式只放行 amount=1 的 Burn 指令（NFT 销毁的近似判定），
	// 抑制量级高得多的普通 transfer/approve 流量。
	// Programs 不含 TokenProgram 时该开关无效。
	AllTokenCalls bool `yaml:"all_token_calls"`
}
