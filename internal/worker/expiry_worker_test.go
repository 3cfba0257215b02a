package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockExpirer struct {
	mock.Mock
}

func (m *MockExpirer) ExpireStale(ctx context.Context) (int, int) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1)
}

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) Prune(time.Time) int {
	p.calls.Add(1)
	return 1
}

func TestSweep_CallsExpirerAndPruner(t *testing.T) {
	expirer := &MockExpirer{}
	expirer.On("ExpireStale", mock.Anything).Return(2, 1).Once()
	pruner := &countingPruner{}

	Sweep(context.Background(), time.Now(), expirer, pruner, zap.NewNop())

	expirer.AssertExpectations(t)
	assert.Equal(t, int32(1), pruner.calls.Load())
}

func TestStartExpiryWorker_StopsWithContext(t *testing.T) {
	expirer := &MockExpirer{}
	expirer.On("ExpireStale", mock.Anything).Return(0, 0)
	pruner := &countingPruner{}

	ctx, cancel := context.WithCancel(context.Background())
	done := StartExpiryWorker(ctx, 5*time.Millisecond, expirer, pruner, nil)

	assert.Eventually(t, func() bool { return pruner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartExpiryWorker_DisabledInterval(t *testing.T) {
	done := StartExpiryWorker(context.Background(), 0, &MockExpirer{}, nil, nil)
	_, open := <-done
	assert.False(t, open)
}
