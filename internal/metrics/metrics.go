package metrics

import (
	"sync"
	"time"
)

// Metrics — счетчики процесса. Сценарий интервью их только пишет.
type Metrics struct {
	mu                 sync.RWMutex
	sessionsStarted    int64
	answersAccepted    int64
	answersRejected    int64
	storiesGenerated   int64
	apiCallsTotal      int64
	apiCallsSuccessful int64
	lastUpdateTime     time.Time
}

// Snapshot — копия счетчиков на момент чтения
type Snapshot struct {
	SessionsStarted    int64
	AnswersAccepted    int64
	AnswersRejected    int64
	StoriesGenerated   int64
	APICallsTotal      int64
	APICallsSuccessful int64
	LastUpdateTime     time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		lastUpdateTime: time.Now(),
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	m.update(func() { m.sessionsStarted++ })
}

func (m *Metrics) IncrementAnswers(accepted bool) {
	m.update(func() {
		if accepted {
			m.answersAccepted++
		} else {
			m.answersRejected++
		}
	})
}

func (m *Metrics) IncrementStoriesGenerated() {
	m.update(func() { m.storiesGenerated++ })
}

func (m *Metrics) IncrementAPICall(success bool) {
	m.update(func() {
		m.apiCallsTotal++
		if success {
			m.apiCallsSuccessful++
		}
	})
}

// ObserveCall подходит для interview.Deps.OnCall
func (m *Metrics) ObserveCall(op string, err error) {
	m.IncrementAPICall(err == nil)
}

func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		SessionsStarted:    m.sessionsStarted,
		AnswersAccepted:    m.answersAccepted,
		AnswersRejected:    m.answersRejected,
		StoriesGenerated:   m.storiesGenerated,
		APICallsTotal:      m.apiCallsTotal,
		APICallsSuccessful: m.apiCallsSuccessful,
		LastUpdateTime:     m.lastUpdateTime,
	}
}

func (m *Metrics) update(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
	m.lastUpdateTime = time.Now()
}
