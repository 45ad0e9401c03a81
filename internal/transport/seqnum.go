// =============================================================================
// 文件: internal/transport/seqnum.go
// 描述: 序列号空间算术 - 模数可配置，回绕安全
// =============================================================================
package transport

// Space 序列号空间
// 所有序列号比较都必须经过前向距离计算，禁止直接用 < 比较，
// 否则回绕处 (modulus-1 -> 0) 的判断会出错
type Space struct {
	modulus uint32
}

// NewSpace 创建序列号空间 (modulus >= 2)
func NewSpace(modulus uint32) Space {
	if modulus < 2 {
		modulus = 2
	}
	return Space{modulus: modulus}
}

// Modulus 获取模数
func (s Space) Modulus() uint32 {
	return s.modulus
}

// Wrap 把任意值折回空间内
func (s Space) Wrap(v uint32) uint32 {
	return v % s.modulus
}

// Next 后继序列号
func (s Space) Next(v uint32) uint32 {
	return s.Add(v, 1)
}

// Prev 前驱序列号
func (s Space) Prev(v uint32) uint32 {
	return s.Add(v, s.modulus-1)
}

// Add 前进 n 步
func (s Space) Add(v, n uint32) uint32 {
	// 用 64 位中间值避免 modulus 接近 2^32 时溢出
	return uint32((uint64(v) + uint64(n)) % uint64(s.modulus))
}

// Dist 从 from 到 to 的前向距离 (0 <= Dist < modulus)
func (s Space) Dist(from, to uint32) uint32 {
	return uint32((uint64(to) + uint64(s.modulus) - uint64(from)) % uint64(s.modulus))
}

// InWindow 判断 seq 是否落在 [base, base+size) 窗口内
func (s Space) InWindow(seq, base, size uint32) bool {
	return s.Dist(base, seq) < size
}
