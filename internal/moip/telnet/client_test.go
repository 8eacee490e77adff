package telnet

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// mockController simulates the controller's line protocol endpoint. Each
// accepted connection serves exactly one command, mirroring the client's
// connection-per-command contract.
type mockController struct {
	listener net.Listener
	respond  func(cmd string) string

	// holdAfter keeps the connection open after responding, so tests can
	// exercise deadline and marker termination instead of EOF.
	holdAfter time.Duration

	// chunkGap, when set, writes the response line by line with a pause
	// between writes to exercise multi-chunk reads.
	chunkGap time.Duration

	mu       sync.Mutex
	commands []string

	done chan struct{}
}

func newMockController(t *testing.T, respond func(cmd string) string) *mockController {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	s := &mockController{
		listener: listener,
		respond:  respond,
		done:     make(chan struct{}),
	}
	go s.acceptLoop()

	t.Cleanup(s.Close)
	return s
}

func (s *mockController) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *mockController) handle(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	cmd := strings.TrimSpace(line)

	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	resp := s.respond(cmd)
	switch {
	case resp == "":
		// No response; the client must hit its read deadline or EOF
	case s.chunkGap > 0:
		for _, part := range strings.SplitAfter(resp, "\n") {
			if part == "" {
				continue
			}
			conn.Write([]byte(part))
			time.Sleep(s.chunkGap)
		}
	default:
		conn.Write([]byte(resp))
	}

	if s.holdAfter > 0 {
		select {
		case <-s.done:
		case <-time.After(s.holdAfter):
		}
	}
}

func (s *mockController) Address() string {
	return s.listener.Addr().String()
}

func (s *mockController) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.listener.Close()
}

func (s *mockController) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.commands...)
}

func newTestClient(t *testing.T, addr string, timeout time.Duration) *Client {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Failed to split address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Failed to parse port %q: %v", portStr, err)
	}
	return New(Config{Host: host, Port: port, Timeout: timeout})
}

// unreachableAddr returns an address nothing is listening on.
func unreachableAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()
	return addr
}

func TestParseCounts(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want moip.DeviceCounts
	}{
		{
			name: "valid response",
			resp: "?Devices=7,10\r\n",
			want: moip.DeviceCounts{Transmitters: 7, Receivers: 10},
		},
		{
			name: "garbage",
			resp: "garbage",
			want: moip.DeviceCounts{},
		},
		{
			name: "empty",
			resp: "",
			want: moip.DeviceCounts{},
		},
		{
			name: "missing receiver count",
			resp: "?Devices=7",
			want: moip.DeviceCounts{},
		},
		{
			name: "non-numeric counts",
			resp: "?Devices=a,b",
			want: moip.DeviceCounts{},
		},
		{
			name: "embedded in noise",
			resp: "\r\n?Devices=16,32\r\n",
			want: moip.DeviceCounts{Transmitters: 16, Receivers: 32},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCounts(tt.resp)
			if got != tt.want {
				t.Errorf("parseCounts(%q) = %+v, want %+v", tt.resp, got, tt.want)
			}
		})
	}
}

func TestParseRouting(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want []moip.RoutingAssignment
	}{
		{
			name: "valid pairs",
			resp: "?Receivers=1:10,2:8\r\n",
			want: []moip.RoutingAssignment{{Tx: 1, Rx: 10}, {Tx: 2, Rx: 8}},
		},
		{
			name: "malformed pairs dropped",
			resp: "?Receivers=1:10,bogus,3,4:5:6,x:2,2:8\r\n",
			want: []moip.RoutingAssignment{{Tx: 1, Rx: 10}, {Tx: 2, Rx: 8}},
		},
		{
			name: "unassigned receiver",
			resp: "?Receivers=0:3\r\n",
			want: []moip.RoutingAssignment{{Tx: 0, Rx: 3}},
		},
		{
			name: "empty payload",
			resp: "?Receivers=\r\n",
			want: nil,
		},
		{
			name: "no prefix",
			resp: "junk\r\n",
			want: nil,
		},
		{
			name: "spaces around numbers",
			resp: "?Receivers=1: 10, 2:8\r\n",
			want: []moip.RoutingAssignment{{Tx: 1, Rx: 10}, {Tx: 2, Rx: 8}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRouting(tt.resp)
			if len(got) != len(tt.want) {
				t.Fatalf("parseRouting(%q) = %+v, want %+v", tt.resp, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("assignment[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseNames(t *testing.T) {
	resp := "?Name=1,1,Apple TV\r\n" +
		"?Name=1,2,Sky Box\r\n" +
		"?Name=0,1,Lounge Screen\r\n" +
		"?Name=1,3,Media Server, Rack 2\r\n" +
		"noise line\r\n"

	names := parseNames(resp, 1)
	if len(names) != 3 {
		t.Fatalf("len(names) = %d, want 3: %v", len(names), names)
	}
	if names[1] != "Apple TV" {
		t.Errorf("names[1] = %q, want %q", names[1], "Apple TV")
	}
	if names[2] != "Sky Box" {
		t.Errorf("names[2] = %q, want %q", names[2], "Sky Box")
	}
	if names[3] != "Media Server, Rack 2" {
		t.Errorf("names[3] = %q, want %q", names[3], "Media Server, Rack 2")
	}

	receivers := parseNames(resp, 0)
	if len(receivers) != 1 || receivers[1] != "Lounge Screen" {
		t.Errorf("receiver names = %v, want index 1 = Lounge Screen", receivers)
	}
}

func TestDeviceCounts(t *testing.T) {
	server := newMockController(t, func(cmd string) string {
		if cmd == "?Devices" {
			return "?Devices=7,10\r\n"
		}
		return "#Error unknown command\r\n"
	})

	client := newTestClient(t, server.Address(), time.Second)
	counts, err := client.DeviceCounts(context.Background())
	if err != nil {
		t.Fatalf("DeviceCounts() error: %v", err)
	}
	if counts.Transmitters != 7 || counts.Receivers != 10 {
		t.Errorf("counts = %+v, want {7 10}", counts)
	}
}

func TestDeviceCountsGarbageResponse(t *testing.T) {
	server := newMockController(t, func(_ string) string {
		return "complete nonsense\r\n"
	})

	client := newTestClient(t, server.Address(), time.Second)
	counts, err := client.DeviceCounts(context.Background())
	if err != nil {
		t.Fatalf("DeviceCounts() error: %v", err)
	}
	if counts.Transmitters != 0 || counts.Receivers != 0 {
		t.Errorf("counts = %+v, want {0 0}", counts)
	}
}

func TestDeviceCountsUnreachable(t *testing.T) {
	client := newTestClient(t, unreachableAddr(t), 500*time.Millisecond)

	_, err := client.DeviceCounts(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("DeviceCounts() = %v, want ErrUnreachable", err)
	}
}

func TestRouting(t *testing.T) {
	server := newMockController(t, func(_ string) string {
		return "?Receivers=1:10,2:8,garbage\r\n"
	})

	client := newTestClient(t, server.Address(), time.Second)
	table, err := client.Routing(context.Background())
	if err != nil {
		t.Fatalf("Routing() error: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("len(table) = %d, want 2: %v", len(table), table)
	}
	if table[0].Tx != 1 || table[0].Rx != 10 {
		t.Errorf("table[0] = %+v, want {1 10}", table[0])
	}

	cmds := server.Commands()
	if len(cmds) != 1 || cmds[0] != "?Receivers" {
		t.Errorf("commands = %v, want [?Receivers]", cmds)
	}
}

func TestSwitch(t *testing.T) {
	t.Run("acknowledged", func(t *testing.T) {
		server := newMockController(t, func(cmd string) string {
			return cmd + " OK\r\n"
		})

		client := newTestClient(t, server.Address(), time.Second)
		ok, err := client.Switch(context.Background(), 3, 7)
		if err != nil {
			t.Fatalf("Switch() error: %v", err)
		}
		if !ok {
			t.Error("Switch() = false, want true")
		}

		cmds := server.Commands()
		if len(cmds) != 1 || cmds[0] != "!Switch=3,7" {
			t.Errorf("commands = %v, want [!Switch=3,7]", cmds)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		server := newMockController(t, func(_ string) string {
			return "#Error bad channel\r\n"
		})

		client := newTestClient(t, server.Address(), time.Second)
		ok, err := client.Switch(context.Background(), 99, 7)
		if err != nil {
			t.Fatalf("Switch() error: %v", err)
		}
		if ok {
			t.Error("Switch() = true, want false")
		}
	})

	t.Run("no response reads as false", func(t *testing.T) {
		server := newMockController(t, func(_ string) string {
			return ""
		})
		server.holdAfter = time.Second

		client := newTestClient(t, server.Address(), 150*time.Millisecond)
		ok, err := client.Switch(context.Background(), 1, 2)
		if err != nil {
			t.Fatalf("Switch() error: %v", err)
		}
		if ok {
			t.Error("Switch() = true on timeout, want false")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		client := newTestClient(t, unreachableAddr(t), 500*time.Millisecond)

		_, err := client.Switch(context.Background(), 1, 2)
		if !errors.Is(err, ErrUnreachable) {
			t.Errorf("Switch() = %v, want ErrUnreachable", err)
		}
	})
}

func TestNames(t *testing.T) {
	server := newMockController(t, func(cmd string) string {
		if cmd != "?Name=1" {
			return "#Error unknown command\r\n"
		}
		return "?Name=1,1,Apple TV\r\n?Name=1,2,Sky Box\r\nnoise\r\n"
	})
	server.chunkGap = 20 * time.Millisecond

	client := newTestClient(t, server.Address(), 500*time.Millisecond)
	names, err := client.Names(context.Background(), moip.KindTransmitter)
	if err != nil {
		t.Fatalf("Names() error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2: %v", len(names), names)
	}
	if names[1] != "Apple TV" || names[2] != "Sky Box" {
		t.Errorf("names = %v", names)
	}
}

func TestErrorMarkerTermination(t *testing.T) {
	// The marker arrives without a trailing newline and the connection
	// stays open; the read loop must still return promptly.
	server := newMockController(t, func(_ string) string {
		return "#Error syntax"
	})
	server.holdAfter = 2 * time.Second

	client := newTestClient(t, server.Address(), time.Second)

	start := time.Now()
	counts, err := client.DeviceCounts(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("DeviceCounts() error: %v", err)
	}
	if counts.Transmitters != 0 || counts.Receivers != 0 {
		t.Errorf("counts = %+v, want {0 0}", counts)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, want early return on error marker", elapsed)
	}
}

func TestSendCEC(t *testing.T) {
	server := newMockController(t, func(cmd string) string {
		return cmd + " OK\r\n"
	})

	client := newTestClient(t, server.Address(), time.Second)
	ok, err := client.SendCEC(context.Background(), 4, "36")
	if err != nil {
		t.Fatalf("SendCEC() error: %v", err)
	}
	if !ok {
		t.Error("SendCEC() = false, want true")
	}

	cmds := server.Commands()
	if len(cmds) != 1 || cmds[0] != "!CEC=4,36" {
		t.Errorf("commands = %v, want [!CEC=4,36]", cmds)
	}
}

func TestSendCECCommand(t *testing.T) {
	t.Run("multi-code sequence", func(t *testing.T) {
		server := newMockController(t, func(cmd string) string {
			return cmd + " OK\r\n"
		})

		client := newTestClient(t, server.Address(), time.Second)
		ok, err := client.SendCECCommand(context.Background(), 4, "volume_up")
		if err != nil {
			t.Fatalf("SendCECCommand() error: %v", err)
		}
		if !ok {
			t.Error("SendCECCommand() = false, want true")
		}

		cmds := server.Commands()
		want := []string{"!CEC=4,44 41", "!CEC=4,45"}
		if len(cmds) != len(want) {
			t.Fatalf("commands = %v, want %v", cmds, want)
		}
		for i := range want {
			if cmds[i] != want[i] {
				t.Errorf("commands[%d] = %q, want %q", i, cmds[i], want[i])
			}
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		server := newMockController(t, func(cmd string) string {
			return cmd + " OK\r\n"
		})

		client := newTestClient(t, server.Address(), time.Second)
		_, err := client.SendCECCommand(context.Background(), 4, "self_destruct")
		if err == nil {
			t.Fatal("SendCECCommand() expected error for unknown command")
		}
		if len(server.Commands()) != 0 {
			t.Error("unknown command must not reach the controller")
		}
	})

	t.Run("rejected code stops sequence", func(t *testing.T) {
		server := newMockController(t, func(_ string) string {
			return "#Error busy\r\n"
		})

		client := newTestClient(t, server.Address(), time.Second)
		ok, err := client.SendCECCommand(context.Background(), 4, "mute")
		if err != nil {
			t.Fatalf("SendCECCommand() error: %v", err)
		}
		if ok {
			t.Error("SendCECCommand() = true, want false")
		}
		if got := len(server.Commands()); got != 1 {
			t.Errorf("commands sent = %d, want 1 (stop after first rejection)", got)
		}
	})
}

func TestPing(t *testing.T) {
	server := newMockController(t, func(_ string) string {
		return "?Devices=2,4\r\n"
	})

	client := newTestClient(t, server.Address(), time.Second)
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}

	down := newTestClient(t, unreachableAddr(t), 500*time.Millisecond)
	if err := down.Ping(context.Background()); !errors.Is(err, ErrUnreachable) {
		t.Errorf("Ping() = %v, want ErrUnreachable", err)
	}
}

func TestContextCancellation(t *testing.T) {
	server := newMockController(t, func(_ string) string {
		return "?Devices=1,1\r\n"
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.Address(), time.Second)
	_, err := client.DeviceCounts(ctx)
	if err == nil {
		t.Error("DeviceCounts() with cancelled context should fail")
	}
}

func TestClientDefaults(t *testing.T) {
	client := New(Config{Host: "10.0.1.50"})
	if client.addr != "10.0.1.50:23" {
		t.Errorf("addr = %q, want 10.0.1.50:23", client.addr)
	}
	if client.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", client.timeout, defaultTimeout)
	}
}
