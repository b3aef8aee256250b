package remoteprofile

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sentra/internal/engine"
)

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: addr, Path: "/profile"}
	var conn *websocket.Conn
	var err error
	for i := 0; i < 20; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(u.String(), nil)
		if err == nil {
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", u.String(), err)
	return nil
}

func TestPushBroadcastsToAttachedClient(t *testing.T) {
	const addr = "127.0.0.1:18099"
	sink, err := Listen(addr)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sink.Close()

	conn := dial(t, addr)
	defer conn.Close()

	// give the server goroutine time to register the upgraded
	// connection before Push fans out.
	time.Sleep(20 * time.Millisecond)

	p := engine.Profile{RunID: uuid.New(), Calls: 3, TotalElapsedNs: 150}
	sink.Push(42, p)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got sample
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Fingerprint != 42 || got.Calls != 3 || got.TotalNs != 150 {
		t.Fatalf("unexpected sample: %+v", got)
	}
}

func TestPushWithNoClientsIsANoop(t *testing.T) {
	sink, err := Listen("127.0.0.1:18100")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sink.Close()

	sink.Push(1, engine.Profile{Calls: 1})
}
