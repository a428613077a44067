// Package pool は固定数のワーカーでタスクを処理するワーカープールを提供する
//
// キューが満杯のとき Submit は空きが出るまでブロックする。
// 受け付けループから呼ぶことで、処理中の接続数を上限までに抑える。
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrClosed はクローズ後に Submit した場合に返される
var ErrClosed = errors.New("ワーカープールは停止しています")

// Task はワーカーで実行する処理
type Task func()

// Stats はワーカープールの状態
type Stats struct {
	Workers   int   `json:"workers"`
	QueueSize int   `json:"queue_size"`
	Busy      int64 `json:"busy"`
	Queued    int   `json:"queued"`
	Completed int64 `json:"completed"`
	Panics    int64 `json:"panics"`
}

// Pool は固定数のワーカーを持つプール
type Pool struct {
	workers   int
	queueSize int
	tasks     chan Task
	quit      chan struct{}
	logger    *zap.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup

	busy      atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

// New は新しいPoolを作成し、ワーカーを起動する
// queueSize が 0 の場合、空いているワーカーがいるときだけ Submit が完了する
func New(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		workers:   workers,
		queueSize: queueSize,
		tasks:     make(chan Task, queueSize),
		quit:      make(chan struct{}),
		logger:    logger,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}

	return p
}

// Submit はタスクを投入する
// 満杯の間はブロックし、ctx のキャンセルかプールの停止で中断する
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close は新規投入を止め、投入済みのタスクがすべて終わるまで待つ
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)

		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()

		p.wg.Wait()
	})
}

// Stats は現在の状態を返す
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		QueueSize: p.queueSize,
		Busy:      p.busy.Load(),
		Queued:    len(p.tasks),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(id, task)
	}
}

// run はタスクを実行する
// タスク内のpanicはワーカーを止めずにログに残す
func (p *Pool) run(id int, task Task) {
	p.busy.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.logger.Error("タスクがpanicしました", zap.Int("worker", id), zap.Any("panic", r), zap.Stack("stack"))
		}
		p.busy.Add(-1)
		p.completed.Add(1)
	}()

	task()
}
