package adapter

import (
	"context"
	"fmt"
	"sync"
)

// Call records one mock invocation for test assertions.
type Call struct {
	Message string
	Model   string
	History []Message
}

type mockReply struct {
	content string
	err     error
	usage   Usage
	cost    float64
}

// Mock returns scripted responses for local runs and tests. Replies
// are queued per model; when a queue runs dry the last reply repeats.
type Mock struct {
	mu              sync.Mutex
	replies         map[string][]mockReply
	defaultResponse string
	calls           []Call
}

// NewMock creates a mock assistant with a default response.
func NewMock() *Mock {
	return &Mock{
		replies:         make(map[string][]mockReply),
		defaultResponse: "mock response:",
	}
}

// Name returns the assistant identifier.
func (m *Mock) Name() string {
	return "mock"
}

// Models returns the list of scripted models.
func (m *Mock) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.replies))
	for model := range m.replies {
		out = append(out, model)
	}
	return out
}

// Script queues a successful reply for a model.
func (m *Mock) Script(model, content string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[model] = append(m.replies[model], mockReply{content: content})
	return m
}

// ScriptUsage queues a successful reply with usage and cost.
func (m *Mock) ScriptUsage(model, content string, usage Usage, cost float64) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[model] = append(m.replies[model], mockReply{content: content, usage: usage, cost: cost})
	return m
}

// ScriptError queues a failing reply for a model.
func (m *Mock) ScriptError(model string, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[model] = append(m.replies[model], mockReply{err: err})
	return m
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the number of invocations against one model.
func (m *Mock) CallsFor(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Model == model {
			n++
		}
	}
	return n
}

// GetResponse pops the next scripted reply for the model.
func (m *Mock) GetResponse(ctx context.Context, message string, history []Message, model string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Message: message, Model: model, History: history})
	queue := m.replies[model]
	var reply mockReply
	switch {
	case len(queue) == 0:
		reply = mockReply{content: fmt.Sprintf("%s\n%s", m.defaultResponse, message)}
	case len(queue) == 1:
		reply = queue[0]
	default:
		reply = queue[0]
		m.replies[model] = queue[1:]
	}
	m.mu.Unlock()

	if reply.err != nil {
		return nil, reply.err
	}
	return &Response{Content: reply.content, Model: model, Usage: reply.usage, Cost: reply.cost}, nil
}
