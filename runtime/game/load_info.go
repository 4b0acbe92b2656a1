package game

// LoadInfo 负载信息，用于计算节点综合负载评分
type LoadInfo struct {
	MatchCount  int     // 当前对局数
	PlayerCount int     // 当前在座玩家数
	CPUUsage    float64 // 0-100
	MemUsage    float64 // 0-100
}

// CalculateLoad 权重：CPU 30%、内存 20%、对局数 25%、玩家数 25%；越小负载越低
func (li *LoadInfo) CalculateLoad() float64 {
	// 对局数与玩家数按 100 归一化
	normalizedMatches := float64(li.MatchCount) / 100.0
	if normalizedMatches > 1.0 {
		normalizedMatches = 1.0
	}

	normalizedPlayers := float64(li.PlayerCount) / 400.0
	if normalizedPlayers > 1.0 {
		normalizedPlayers = 1.0
	}

	return li.CPUUsage*0.3 + li.MemUsage*0.2 + normalizedMatches*100*0.25 + normalizedPlayers*100*0.25
}
