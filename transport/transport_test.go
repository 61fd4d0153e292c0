package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"charging_station/scheduler"
)

func TestAssemblerWholeFrame(t *testing.T) {
	var a frameAssembler
	frames := a.feed([]byte(`[2,"id","Heartbeat",{}]`))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if string(frames[0]) != `[2,"id","Heartbeat",{}]` {
		t.Fatalf("unexpected frame %q", frames[0])
	}
}

func TestAssemblerSplitFrame(t *testing.T) {
	var a frameAssembler
	if frames := a.feed([]byte(`[2,"id","Trans`)); len(frames) != 0 {
		t.Fatalf("incomplete input yielded %d frames", len(frames))
	}
	frames := a.feed([]byte(`actionEvent",{"seqNo":1}]`))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame after completion, got %d", len(frames))
	}
	if string(frames[0]) != `[2,"id","TransactionEvent",{"seqNo":1}]` {
		t.Fatalf("unexpected frame %q", frames[0])
	}
}

func TestAssemblerBracketsInsideStrings(t *testing.T) {
	var a frameAssembler
	frames := a.feed([]byte(`[3,"id",{"note":"closing ] inside \" string"}]`))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
}

func TestAssemblerTwoFramesOneMessage(t *testing.T) {
	var a frameAssembler
	frames := a.feed([]byte(`[3,"a",{}][3,"b",{}]`))
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func TestBackoffGrowsAndIsBounded(t *testing.T) {
	opts := Options{
		BackOffWaitMinimum: time.Second,
		BackOffRepeatTimes: 3,
	}
	if d := backoff(opts, 1); d != time.Second {
		t.Fatalf("first retry: expected 1s, got %v", d)
	}
	if d := backoff(opts, 3); d != 4*time.Second {
		t.Fatalf("third retry: expected 4s, got %v", d)
	}
	// doublings are capped at BackOffRepeatTimes
	if d := backoff(opts, 10); d != 8*time.Second {
		t.Fatalf("capped retry: expected 8s, got %v", d)
	}
}

func newEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{
		Subprotocols: []string{"ocpp2.0.1"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientConnectSendReceive(t *testing.T) {
	srv, url := newEchoServer(t)
	defer srv.Close()

	cq := scheduler.NewCallbackQueue()
	defer cq.Close()

	log := logrus.New()
	client := NewClient(Options{
		URL:                url,
		StationID:          "CS001",
		PingInterval:       time.Second,
		PongTimeout:        time.Second,
		BackOffWaitMinimum: 10 * time.Millisecond,
		ConnectionAttempts: 3,
	}, cq, log)

	connected := make(chan struct{})
	received := make(chan []byte, 1)
	var once sync.Once
	client.OnConnected(func() { once.Do(func() { close(connected) }) })
	client.OnMessage(func(data []byte) { received <- data })

	client.Start()
	defer client.Stop()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("never connected")
	}

	if !client.Send([]byte(`[2,"1","Heartbeat",{}]`)) {
		t.Fatal("send failed")
	}
	select {
	case data := <-received:
		if string(data) != `[2,"1","Heartbeat",{}]` {
			t.Fatalf("unexpected echo %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("echo never arrived")
	}
	if !client.IsConnected() {
		t.Fatal("expected connected state")
	}
}

func TestClientStoppedConnectingAfterRetryBudget(t *testing.T) {
	cq := scheduler.NewCallbackQueue()
	defer cq.Close()

	client := NewClient(Options{
		URL:                "ws://127.0.0.1:1", // nothing listens here
		StationID:          "CS001",
		BackOffWaitMinimum: time.Millisecond,
		ConnectionAttempts: 2,
	}, cq, logrus.New())

	gaveUp := make(chan struct{})
	var once sync.Once
	client.OnStoppedConnecting(func() { once.Do(func() { close(gaveUp) }) })

	failures := make(chan FailureReason, 8)
	client.OnConnectionFailed(func(r FailureReason) { failures <- r })

	client.Start()
	defer client.Stop()

	select {
	case <-gaveUp:
	case <-time.After(5 * time.Second):
		t.Fatal("transport never gave up")
	}
	select {
	case r := <-failures:
		if r != FailureNetwork {
			t.Fatalf("expected Network failure, got %s", r)
		}
	default:
		t.Fatal("no failure reported")
	}
}
