package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reqchain/internal/history"
	"reqchain/internal/httpclient"
	"reqchain/internal/jsonpath"
	"reqchain/internal/registry"
	"reqchain/internal/vars"
)

// fakeTransport records every resolved request it is handed and answers via
// a scriptable handler. The default handler returns 200 with an empty JSON
// object.
type fakeTransport struct {
	mu       sync.Mutex
	requests []httpclient.Request
	handler  func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

func (f *fakeTransport) Send(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req.Clone())
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		return handler(ctx, req)
	}
	return jsonResponse(200, `{}`), nil
}

func (f *fakeTransport) sent() []httpclient.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]httpclient.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// recordingListener captures event order as compact strings.
type recordingListener struct {
	mu       sync.Mutex
	events   []string
	outcomes []Outcome
}

func (l *recordingListener) RequestSent(chain string, step int, req httpclient.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf("requestSent:%s:%d", chain, step))
}

func (l *recordingListener) ResponseReceived(entry history.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf("responseReceived:%s:%d", entry.Chain, entry.Step))
}

func (l *recordingListener) ChainFinished(chain string, outcome Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "chainFinished:"+chain)
	l.outcomes = append(l.outcomes, outcome)
}

func (l *recordingListener) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

func jsonResponse(status int, body string) *httpclient.Response {
	return &httpclient.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

func newTestRunner(t *testing.T, chains ...registry.Chain) (*Runner, *fakeTransport, *vars.Environment, *history.Log) {
	t.Helper()
	reg := registry.New()
	for _, c := range chains {
		require.NoError(t, reg.Create(c.Name))
		for _, s := range c.Steps {
			require.NoError(t, reg.AppendStep(c.Name, s))
		}
	}
	env := vars.NewEnvironment()
	log := history.NewLog()
	transport := &fakeTransport{}
	return NewRunner(reg, env, log, transport), transport, env, log
}

func TestRunThreeStepFlow(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Name: "login", Method: "POST", URL: "https://api.test/login", Body: `{"user": "ada"}`},
			{Name: "whoami", Method: "GET", URL: "https://api.test/me", Extract: &registry.Extract{Path: "$.id", Variable: "userId"}},
			{Method: "GET", URL: "https://api.test/users/{{userId}}"},
		},
	}
	runner, transport, env, log := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		switch req.URL {
		case "https://api.test/me":
			return jsonResponse(200, `{"id": 42}`), nil
		default:
			return jsonResponse(200, `{"ok": true}`), nil
		}
	}

	outcome, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, outcome.Phase)
	assert.Equal(t, 3, outcome.Steps)
	require.True(t, outcome.Phase.Terminal())

	sent := transport.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "https://api.test/users/42", sent[2].URL, "step 3 must see the value extracted by step 2")

	val, ok := env.Get("userId")
	require.True(t, ok)
	assert.Equal(t, "42", val.String())

	entries := log.Entries()
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Step)
		assert.NotNil(t, entry.Response, "every successful step pairs a response")
		assert.Empty(t, entry.Err)
	}
}

func TestRunTransportFailureAborts(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "GET", URL: "https://api.test/1"},
			{Method: "GET", URL: "https://api.test/2"},
			{Method: "GET", URL: "https://api.test/3"},
		},
	}
	runner, transport, _, log := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		if req.URL == "https://api.test/2" {
			return nil, errors.New("connection refused")
		}
		return jsonResponse(200, `{}`), nil
	}

	outcome, err := runner.Run(context.Background(), "flow")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, PhaseAborted, outcome.Phase)
	assert.Equal(t, 1, outcome.Steps, "the cursor must not advance past the failed step")

	require.Len(t, transport.sent(), 2, "step 3 must never be sent")

	entries := log.Entries()
	require.Len(t, entries, 2, "one completed entry plus the failed attempt record")
	assert.NotNil(t, entries[0].Response)
	assert.Nil(t, entries[1].Response)
	assert.Contains(t, entries[1].Err, "connection refused")
	assert.Equal(t, "https://api.test/2", entries[1].Request.URL, "the failed attempt keeps its resolved request")
}

func TestRunExtractionNotFoundAborts(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "GET", URL: "https://api.test/1", Extract: &registry.Extract{Path: "$.field[0]", Variable: "userId"}},
			{Method: "GET", URL: "https://api.test/2"},
		},
	}
	runner, transport, env, log := newTestRunner(t, flow)
	env.SetString("userId", "keep")
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		return jsonResponse(200, `{"field": []}`), nil
	}

	outcome, err := runner.Run(context.Background(), "flow")
	require.Error(t, err)
	assert.ErrorIs(t, err, jsonpath.ErrNotFound)
	assert.Equal(t, PhaseAborted, outcome.Phase)
	assert.Equal(t, 0, outcome.Steps)

	val, ok := env.Get("userId")
	require.True(t, ok)
	assert.Equal(t, "keep", val.String(), "a failed extraction must not touch the target variable")

	require.Len(t, transport.sent(), 1)
	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].Response, "the response was received even though extraction failed")
}

func TestRunExtractionParseErrorAborts(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "GET", URL: "https://api.test/1", Extract: &registry.Extract{Path: "$.id", Variable: "id"}},
		},
	}
	runner, transport, env, _ := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		return &httpclient.Response{StatusCode: 200, Status: "200 OK", Body: []byte("<html>not json</html>")}, nil
	}

	_, err := runner.Run(context.Background(), "flow")
	require.Error(t, err)
	assert.ErrorIs(t, err, jsonpath.ErrParse)
	_, ok := env.Get("id")
	assert.False(t, ok)
}

func TestRunHTTPErrorStatusDoesNotAbort(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "GET", URL: "https://api.test/missing"},
			{Method: "GET", URL: "https://api.test/next"},
		},
	}
	runner, transport, _, _ := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		if req.URL == "https://api.test/missing" {
			return jsonResponse(404, `{"error": "not found"}`), nil
		}
		return jsonResponse(200, `{}`), nil
	}

	outcome, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err, "an error status is a response, not a transport failure")
	assert.Equal(t, PhaseCompleted, outcome.Phase)
	assert.Len(t, transport.sent(), 2)
}

func TestRunZeroStepChain(t *testing.T) {
	runner, transport, _, log := newTestRunner(t, registry.Chain{Name: "empty"})
	listener := &recordingListener{}
	runner.Subscribe(listener)

	outcome, err := runner.Run(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, outcome.Phase)
	assert.Equal(t, 0, outcome.Steps)
	assert.Empty(t, transport.sent())
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, []string{"chainFinished:empty"}, listener.seen())
}

func TestRunUnknownChain(t *testing.T) {
	runner, _, _, _ := newTestRunner(t)
	listener := &recordingListener{}
	runner.Subscribe(listener)

	outcome, err := runner.Run(context.Background(), "ghost")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Equal(t, PhaseIdle, outcome.Phase)
	assert.Empty(t, listener.seen(), "a run that never started emits nothing")
}

func TestRunEventOrder(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "GET", URL: "https://api.test/1"},
			{Method: "GET", URL: "https://api.test/2"},
		},
	}
	runner, _, _, _ := newTestRunner(t, flow)
	listener := &recordingListener{}
	runner.Subscribe(listener)

	_, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"requestSent:flow:1",
		"responseReceived:flow:1",
		"requestSent:flow:2",
		"responseReceived:flow:2",
		"chainFinished:flow",
	}, listener.seen())

	require.Len(t, listener.outcomes, 1)
	assert.Equal(t, PhaseCompleted, listener.outcomes[0].Phase)
}

func TestRunVariablesSurviveAbort(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "POST", URL: "https://api.test/login", Extract: &registry.Extract{Path: "$.token", Variable: "token"}},
			{Method: "GET", URL: "https://api.test/protected"},
		},
	}
	runner, transport, env, _ := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		if req.URL == "https://api.test/login" {
			return jsonResponse(200, `{"token": "t-1"}`), nil
		}
		return nil, errors.New("boom")
	}

	_, err := runner.Run(context.Background(), "flow")
	require.Error(t, err)

	val, ok := env.Get("token")
	require.True(t, ok, "variables extracted before the abort stay visible")
	assert.Equal(t, "t-1", val.String())
}

func TestRunDeterminismWithFreshEnvironment(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "GET", URL: "{{base}}/users", Extract: &registry.Extract{Path: "$.ids[0]", Variable: "id"}},
			{Method: "GET", URL: "{{base}}/users/{{id}}"},
		},
	}
	runner, transport, env, _ := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		return jsonResponse(200, `{"ids": [7, 8]}`), nil
	}
	seed := map[string]vars.Value{"base": vars.StringValue("https://api.test")}

	env.Reset(seed)
	_, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)
	firstRun := transport.sent()

	env.Reset(seed)
	_, err = runner.Run(context.Background(), "flow")
	require.NoError(t, err)
	secondRun := transport.sent()[len(firstRun):]

	assert.Equal(t, firstRun, secondRun, "identical seeds and responses must resolve identical requests")
}

func TestRunAlreadyRunning(t *testing.T) {
	flow := registry.Chain{
		Name:  "flow",
		Steps: []registry.Step{{Method: "GET", URL: "https://api.test/slow"}},
	}
	runner, transport, _, _ := newTestRunner(t, flow)
	gate := make(chan struct{})
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		<-gate
		return jsonResponse(200, `{}`), nil
	}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := runner.Run(context.Background(), "flow")
		done <- result{outcome, err}
	}()

	require.Eventually(t, func() bool { return runner.Status("flow") == PhaseRunning }, time.Second, 5*time.Millisecond)

	_, err := runner.Run(context.Background(), "flow")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(gate)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, PhaseCompleted, first.outcome.Phase)
	assert.Equal(t, PhaseIdle, runner.Status("flow"), "a finished chain is runnable again")

	outcome, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, outcome.Phase)
}

func TestAbort(t *testing.T) {
	flow := registry.Chain{
		Name:  "flow",
		Steps: []registry.Step{{Method: "GET", URL: "https://api.test/slow"}},
	}
	runner, transport, _, _ := newTestRunner(t, flow)
	transport.handler = func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := runner.Run(context.Background(), "flow")
		done <- result{outcome, err}
	}()

	require.Eventually(t, func() bool { return runner.Status("flow") == PhaseRunning }, time.Second, 5*time.Millisecond)
	require.NoError(t, runner.Abort("flow"))

	res := <-done
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Equal(t, PhaseAborted, res.outcome.Phase)
	assert.Equal(t, PhaseIdle, runner.Status("flow"))

	assert.ErrorIs(t, runner.Abort("flow"), ErrNotRunning)
}

func TestResolveContentType(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{Method: "POST", URL: "https://api.test/json", Body: `{"a": 1}`},
			{Method: "POST", URL: "https://api.test/plain", Body: "plain text"},
			{Method: "POST", URL: "https://api.test/explicit", Body: `{"a": 1}`, Headers: map[string]string{"Content-Type": "text/plain"}},
		},
	}
	runner, transport, _, _ := newTestRunner(t, flow)

	_, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)

	sent := transport.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "application/json", sent[0].Headers["Content-Type"], "JSON bodies get a content type when none is set")
	assert.Empty(t, sent[1].Headers["Content-Type"])
	assert.Equal(t, "text/plain", sent[2].Headers["Content-Type"], "an explicit content type wins")
}

type mockTransport struct {
	mock.Mock
}

var _ Transport = (*mockTransport)(nil)

func (m *mockTransport) Send(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*httpclient.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRunInvokesTransportOncePerStep(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Create("flow"))
	require.NoError(t, reg.AppendStep("flow", registry.Step{Method: "GET", URL: "https://api.test/1"}))

	transport := &mockTransport{}
	transport.On("Send", mock.Anything, mock.MatchedBy(func(req httpclient.Request) bool {
		return req.Method == "GET" && req.URL == "https://api.test/1"
	})).Return(jsonResponse(200, `{}`), nil).Once()

	runner := NewRunner(reg, vars.NewEnvironment(), history.NewLog(), transport)
	outcome, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, outcome.Phase)
	transport.AssertExpectations(t)
}

func TestResolveSubstitutesHeadersAndBody(t *testing.T) {
	flow := registry.Chain{
		Name: "flow",
		Steps: []registry.Step{
			{
				Method:  "POST",
				URL:     "{{base}}/users",
				Headers: map[string]string{"Authorization": "Bearer {{token}}"},
				Body:    `{"name": "{{name}}"}`,
			},
		},
	}
	runner, transport, env, _ := newTestRunner(t, flow)
	env.SetString("base", "https://api.test")
	env.SetString("token", "t-9")
	env.SetString("name", "ada")

	_, err := runner.Run(context.Background(), "flow")
	require.NoError(t, err)

	sent := transport.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://api.test/users", sent[0].URL)
	assert.Equal(t, "Bearer t-9", sent[0].Headers["Authorization"])
	assert.Equal(t, `{"name": "ada"}`, sent[0].Body)
}
