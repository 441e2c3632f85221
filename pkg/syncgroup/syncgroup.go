package syncgroup

import "sync"

// SyncGroup 收集一批任务函数并并发执行，封装 sync.WaitGroup 的
// Add/Done 配对，避免遗漏 Done 导致的永久阻塞。
// 用法：Add 注册任务 → Run 启动 → Wait 等待全部结束。
type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	pending []func()
	running int
}

// New 创建空任务组
func New() *SyncGroup {
	return &SyncGroup{}
}

// Add 注册一个任务函数
// 上一轮任务还在运行时注册无效，需先 WaitAndClear
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running > 0 {
		return
	}
	g.pending = append(g.pending, fn)
}

// Run 并发启动所有已注册任务并清空注册表
func (g *SyncGroup) Run() {
	g.mu.Lock()
	if g.running > 0 {
		g.mu.Unlock()
		return
	}
	fns := g.pending
	g.pending = nil
	g.running = len(fns)
	g.mu.Unlock()

	for _, fn := range fns {
		g.wg.Add(1)
		go func(task func()) {
			defer func() {
				g.wg.Done()
				g.mu.Lock()
				g.running--
				g.mu.Unlock()
			}()
			task()
		}(fn)
	}
}

// Wait 阻塞直到本轮所有任务结束
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}

// WaitAndClear 等待所有任务结束并复位，可复用同一个组
func (g *SyncGroup) WaitAndClear() {
	g.wg.Wait()
	g.mu.Lock()
	g.pending = nil
	g.running = 0
	g.mu.Unlock()
}
