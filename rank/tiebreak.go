package rank

// TieBreakWeight 是 tie-break 项的上限（不含）。
const TieBreakWeight = 0.01

// HashID 是 32 位多项式滚动哈希：h = h*33 + b，初值 5381，按字节迭代，溢出回绕。
// 与 map 遍历顺序无关，同一个 ID 在任何进程里结果都相同。
func HashID(id string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(id); i++ {
		h = h*33 + uint32(id[i])
	}
	return h
}

// TieBreak 返回 [0, 0.01) 内由 ID 决定的微小分数，仅用于同分时稳定排序。
// 空 ID 返回 0。
func TieBreak(id string) float64 {
	if id == "" {
		return 0
	}
	return TieBreakWeight * float64(HashID(id)%1000) / 1000
}
