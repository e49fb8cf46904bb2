package coordinator_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/federator/coordinator"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func newHubServer(t *testing.T, snapshot func() coordinator.ReadModel) (*coordinator.Hub, string) {
	t.Helper()
	hub := coordinator.NewHub(snapshot, slog.Default())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go hub.HandleConn(ws)
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	return ws
}

func register(t *testing.T, ws *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func readModel(t *testing.T, ws *websocket.Conn) coordinator.ReadModel {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var model coordinator.ReadModel
	require.NoError(t, json.Unmarshal(data, &model))

	return model
}

func staticSnapshot() coordinator.ReadModel {
	return coordinator.ReadModel{
		Status:      coordinator.Status{CampaignID: 1, Round: 1, State: "Submission"},
		Submissions: map[string]string{},
	}
}

func TestHubDashboardRegistration(t *testing.T) {
	_, url := newHubServer(t, staticSnapshot)

	ws := dial(t, url)
	register(t, ws, `{"type":"register_dashboard"}`)

	// Registration triggers an immediate snapshot push.
	model := readModel(t, ws)
	assert.Equal(t, uint64(1), model.Status.CampaignID)
	assert.Equal(t, "Submission", model.Status.State)
}

func TestHubNodeRegistration(t *testing.T) {
	hub, url := newHubServer(t, staticSnapshot)

	dashboard := dial(t, url)
	register(t, dashboard, `{"type":"register_dashboard"}`)
	readModel(t, dashboard)

	node := dial(t, url)
	register(t, node, `{"type":"register_node","address":"0xtrainer1"}`)

	// The node joining is observable in the next dashboard snapshot.
	model := readModel(t, dashboard)
	assert.Equal(t, []string{"0xtrainer1"}, model.Participants)

	require.Eventually(t, func() bool {
		return len(hub.Participants()) == 1
	}, time.Second, 10*time.Millisecond)

	// Disconnecting the node broadcasts the departure.
	node.Close()
	model = readModel(t, dashboard)
	assert.Empty(t, model.Participants)
}

func TestHubNodeAddressLastRegistrationWins(t *testing.T) {
	hub, url := newHubServer(t, staticSnapshot)

	stale := dial(t, url)
	register(t, stale, `{"type":"register_node","address":"0xtrainer1"}`)
	require.Eventually(t, func() bool {
		return len(hub.Participants()) == 1
	}, time.Second, 10*time.Millisecond)

	fresh := dial(t, url)
	register(t, fresh, `{"type":"register_node","address":"0xtrainer1"}`)

	// The stale connection is closed server-side; its read loop observes it.
	require.NoError(t, stale.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := stale.ReadMessage()
	assert.Error(t, err)

	// The address still maps to exactly one registration.
	assert.Equal(t, []string{"0xtrainer1"}, hub.Participants())
}

func TestHubMalformedMessages(t *testing.T) {
	_, url := newHubServer(t, staticSnapshot)

	ws := dial(t, url)
	register(t, ws, `not-json`)
	register(t, ws, `{"type":"register_spaceship"}`)
	register(t, ws, `{"type":"register_node"}`)

	// Malformed messages are dropped per-message, the connection survives.
	register(t, ws, `{"type":"register_dashboard"}`)
	model := readModel(t, ws)
	assert.Equal(t, "Submission", model.Status.State)
}

func TestHubBroadcastResync(t *testing.T) {
	hub, url := newHubServer(t, staticSnapshot)

	ws := dial(t, url)
	register(t, ws, `{"type":"register_dashboard"}`)
	readModel(t, ws)

	// Every broadcast is a full snapshot: a viewer that missed any number of
	// ticks converges on the next one.
	hub.Broadcast()
	hub.Broadcast()
	first := readModel(t, ws)
	second := readModel(t, ws)
	assert.Equal(t, first.Status, second.Status)
}
