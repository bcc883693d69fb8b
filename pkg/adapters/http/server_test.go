package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seltreehttp "github.com/aretw0/seltree/pkg/adapters/http"
	"github.com/aretw0/seltree/pkg/adapters/memory"
	"github.com/aretw0/seltree/pkg/agent"
	"github.com/aretw0/seltree/pkg/observability"
	"github.com/aretw0/seltree/pkg/registry"
	"github.com/aretw0/seltree/pkg/session"
	"github.com/aretw0/seltree/pkg/tree"
)

const defs = `<SelectionTrees>
  <SelectionTree name="Guard" type="Human">
    <Variables><Variable name="alarm"/></Variables>
    <SignalVariables><Signal name="OnAlarm" variable="alarm"/></SignalVariables>
    <LeafTranslations><Translation source="Root:Run" target="Flee"/></LeafTranslations>
    <Priority name="Root">
      <Leaf name="Run" condition="alarm"/>
      <Leaf name="Idle" condition="!alarm"/>
    </Priority>
  </SelectionTree>
  <SelectionTree name="Dog" type="Animal">
    <Leaf name="Root"/>
  </SelectionTree>
</SelectionTrees>`

type env struct {
	handler http.Handler
	server  *seltreehttp.Server
	metrics *observability.Metrics
}

func setup(t *testing.T, opts ...seltreehttp.Option) *env {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	trees := registry.New(registry.WithHooks(m.Hooks()))
	require.NoError(t, trees.Load(memory.NewLoader(map[string]string{"defs.xml": defs})))

	mgr := session.NewManager(memory.NewStore(), trees,
		session.WithAgentOptions(agent.WithTreeOptions(tree.WithHooks(m.Hooks()))),
	)
	srv := seltreehttp.NewServer(mgr, trees, append([]seltreehttp.Option{seltreehttp.WithGatherer(reg)}, opts...)...)
	return &env{handler: srv.Routes(), server: srv, metrics: m}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestTemplates(t *testing.T) {
	e := setup(t)

	w := e.do(t, "GET", "/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Dog", "Guard"}, decode[[]string](t, w))

	w = e.do(t, "GET", "/templates?type=Human", nil)
	assert.Equal(t, []string{"Guard"}, decode[[]string](t, w))

	w = e.do(t, "GET", "/templates?type=Robot", nil)
	assert.Equal(t, []string{}, decode[[]string](t, w))

	w = e.do(t, "GET", "/templates/Guard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[seltreehttp.TemplateView](t, w)
	assert.Equal(t, "Human", view.Type)
	assert.Equal(t, map[string]bool{"alarm": false}, view.Variables)
	assert.Equal(t, []string{"OnAlarm"}, view.Signals)
	require.Len(t, view.Nodes, 3)
	assert.Equal(t, "Flee", view.Nodes[1].Behavior)

	w = e.do(t, "GET", "/templates/Ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentLifecycle(t *testing.T) {
	e := setup(t)

	w := e.do(t, "POST", "/agents", seltreehttp.CreateAgentRequest{Template: "Guard"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[seltreehttp.AgentView](t, w)
	require.NotEmpty(t, created.ID, "an id is generated")
	assert.Equal(t, "", created.Behavior)

	base := "/agents/" + created.ID
	w = e.do(t, "POST", base+"/tick", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Idle", decode[seltreehttp.AgentView](t, w).Behavior)

	w = e.do(t, "POST", base+"/signals/OnAlarm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sig := decode[seltreehttp.AgentView](t, w)
	require.NotNil(t, sig.Matched)
	assert.True(t, *sig.Matched)
	assert.True(t, sig.Variables["alarm"])

	w = e.do(t, "POST", base+"/tick", nil)
	got := decode[seltreehttp.AgentView](t, w)
	assert.Equal(t, "Flee", got.Behavior)
	assert.Equal(t, "Root:Run", got.Path)

	w = e.do(t, "POST", base+"/tick", seltreehttp.TickRequest{Variables: map[string]bool{"alarm": false}})
	assert.Equal(t, "Idle", decode[seltreehttp.AgentView](t, w).Behavior)

	w = e.do(t, "PUT", base+"/variables", map[string]bool{"alarm": true})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, "GET", base, nil)
	assert.True(t, decode[seltreehttp.AgentView](t, w).Variables["alarm"])

	w = e.do(t, "GET", "/agents", nil)
	assert.Equal(t, []string{created.ID}, decode[[]string](t, w))

	w = e.do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Contains(t, e.do(t, "GET", "/metrics", nil).Body.String(), `seltree_selections_total{behavior="Flee",template="Guard"} 1`)
}

func TestAgentErrors(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown template", "POST", "/agents", seltreehttp.CreateAgentRequest{Template: "Ghost"}, http.StatusNotFound},
		{"missing template", "POST", "/agents", seltreehttp.CreateAgentRequest{ID: "x"}, http.StatusBadRequest},
		{"unknown agent", "POST", "/agents/nobody/tick", nil, http.StatusNotFound},
		{"unknown variable", "PUT", "/agents/g1/variables", map[string]bool{"nope": true}, http.StatusBadRequest},
	}

	w := e.do(t, "POST", "/agents", seltreehttp.CreateAgentRequest{ID: "g1", Template: "Guard"})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.do(t, tt.method, tt.path, tt.body).Code)
		})
	}

	w = e.do(t, "POST", "/agents/g1/signals/OnNothing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, *decode[seltreehttp.AgentView](t, w).Matched)
}

func TestInfoAndHealth(t *testing.T) {
	e := setup(t)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, e.do(t, "GET", "/health", nil)))

	info := decode[map[string]any](t, e.do(t, "GET", "/info", nil))
	assert.Equal(t, "seltree-http", info["app"])
	assert.Equal(t, 2.0, info["templates"])
}

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestSubscribeEvents_Agent(t *testing.T) {
	e := setup(t)
	ts := httptest.NewServer(e.handler)
	defer ts.Close()

	require.Equal(t, http.StatusCreated, e.do(t, "POST", "/agents", seltreehttp.CreateAgentRequest{ID: "g1", Template: "Guard"}).Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events?agent_id=g1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, r))
	require.Eventually(t, func() bool { return e.server.Streams.Subscribers("g1") == 1 }, time.Second, 10*time.Millisecond)

	res, err := http.Post(ts.URL+"/agents/g1/tick", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()

	assert.JSONEq(t, `{"agent_id":"g1","current_node_id":3}`, readEvent(t, r))
}

type staticWatcher struct{ ids []string }

func (w staticWatcher) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, len(w.ids))
	for _, id := range w.ids {
		ch <- id
	}
	close(ch)
	return ch, nil
}

func TestSubscribeEvents_Reload(t *testing.T) {
	e := setup(t, seltreehttp.WithWatcher(staticWatcher{ids: []string{"defs.xml"}}))

	w := e.do(t, "GET", "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: ping")
	assert.Contains(t, w.Body.String(), "data: defs.xml")

	e = setup(t)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "GET", "/events", nil).Code)
}
