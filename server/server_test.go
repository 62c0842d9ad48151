package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/slopefem/analysis"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/mesh"
)

type reply struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  *struct {
		Nodes   []geom.Point `json:"nodes"`
		Targets map[string]struct {
			UY float64 `json:"uy"`
		} `json:"targets"`
		Stats struct {
			Elements int    `json:"elements"`
			Method   string `json:"method"`
		} `json:"stats"`
	} `json:"result"`
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts := analysis.DefaultOptions()
	opts.Provider = mesh.Grid{NX: 10, NY: 5}
	opts.Logger = logger
	srv := httptest.NewServer(NewServer(":0", opts).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))
	var r reply
	require.NoError(t, conn.ReadJSON(&r))
	return r
}

func footing(t *testing.T) *analysis.Problem {
	t.Helper()
	p, err := analysis.ReadProblemFile("../analysis/testdata/footing.json")
	require.NoError(t, err)
	return p
}

func TestSolve(t *testing.T) {
	conn := dial(t)
	require.NoError(t, conn.WriteJSON(Request{Type: TypeSolve, Problem: footing(t)}))

	r := receive(t, conn)
	assert.Equal(t, TypeStarted, r.Type)
	assert.True(t, r.Success)

	r = receive(t, conn)
	require.Equal(t, TypeResult, r.Type, r.Message)
	assert.True(t, r.Success)
	assert.Equal(t, "analysis completed", r.Message)
	require.NotNil(t, r.Result)
	assert.Len(t, r.Result.Nodes, 66)
	assert.Equal(t, 100, r.Result.Stats.Elements)
	assert.Equal(t, "penalty", r.Result.Stats.Method)
	assert.Less(t, r.Result.Targets["footing"].UY, 0.0)

	// the connection serves further requests
	require.NoError(t, conn.WriteJSON(Request{Type: TypeSolve, Problem: footing(t)}))
	assert.Equal(t, TypeStarted, receive(t, conn).Type)
	assert.Equal(t, TypeResult, receive(t, conn).Type)
}

func TestSolveFailure(t *testing.T) {
	conn := dial(t)
	p := footing(t)
	p.Constraints = nil
	require.NoError(t, conn.WriteJSON(Request{Type: TypeSolve, Problem: p}))

	assert.Equal(t, TypeStarted, receive(t, conn).Type)
	r := receive(t, conn)
	assert.Equal(t, TypeError, r.Type)
	assert.False(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Message, "analysis failed: "), r.Message)
	assert.Nil(t, r.Result)
}

func TestBadRequests(t *testing.T) {
	conn := dial(t)

	require.NoError(t, conn.WriteJSON(Request{Type: "mesh"}))
	r := receive(t, conn)
	assert.Equal(t, TypeError, r.Type)
	assert.Equal(t, "unknown message type mesh", r.Message)

	require.NoError(t, conn.WriteJSON(Request{Type: TypeSolve}))
	r = receive(t, conn)
	assert.Equal(t, TypeError, r.Type)
	assert.Equal(t, "solve request carries no problem", r.Message)

	require.NoError(t, conn.WriteJSON(Request{Type: TypeCancel}))
	r = receive(t, conn)
	assert.Equal(t, TypeError, r.Type)
	assert.Equal(t, "no analysis running", r.Message)
}
