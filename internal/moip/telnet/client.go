package telnet

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// Defaults and protocol constants for controller communication.
const (
	// defaultPort is the controller's telnet service port.
	defaultPort = 23

	// defaultTimeout bounds a full command round trip, dial included.
	defaultTimeout = 10 * time.Second

	// nameReadWindow bounds the read phase of multi-line name listings,
	// which terminate by silence rather than by newline.
	nameReadWindow = 2 * time.Second

	// readBufferSize is the chunk size for response reads.
	readBufferSize = 4096

	// errorMarker appears in the response when the controller rejects a
	// command.
	errorMarker = "#Error"
)

// Line protocol commands.
const (
	queryDevices   = "?Devices"
	queryReceivers = "?Receivers"
	queryNameFmt   = "?Name=%d"
	switchFmt      = "!Switch=%d,%d"
	cecFmt         = "!CEC=%d,%s"
)

// Response patterns.
var (
	countsRE   = regexp.MustCompile(`\?Devices=(\d+),(\d+)`)
	nameLineRE = regexp.MustCompile(`^\?Name=(\d+),(\d+),(.+)$`)
)

// readMode selects how much of a response an operation waits for.
type readMode int

const (
	// readLine completes on the first newline.
	readLine readMode = iota

	// readAll keeps reading until the deadline or the error marker, for
	// multi-line responses that have no terminator.
	readAll
)

// Config holds connection parameters for the line protocol.
type Config struct {
	// Host is the controller's address.
	Host string

	// Port is the telnet service port. Default: 23.
	Port int

	// Timeout bounds each command round trip. Default: 10 seconds.
	Timeout time.Duration
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
}

// Client talks the controller's line protocol.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Each operation opens its
//     own connection, so a single Client can be shared freely.
type Client struct {
	addr    string
	timeout time.Duration

	// logger for command tracing (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a line protocol client. The client holds no connection
// state; construction cannot fail.
func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout: cfg.Timeout,
	}
}

// SetLogger sets the logger for command tracing.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Addr returns the controller endpoint as host:port.
func (c *Client) Addr() string {
	return c.addr
}

// DeviceCounts reports how many transmitters and receivers the controller
// has discovered. A response that does not match the expected form yields
// zero counts and no error; callers treat zero counts as an offline or
// empty matrix.
func (c *Client) DeviceCounts(ctx context.Context) (moip.DeviceCounts, error) {
	resp, err := c.roundTrip(ctx, queryDevices, readLine)
	if err != nil {
		return moip.DeviceCounts{}, err
	}
	return parseCounts(resp), nil
}

// Routing returns the live routing table. Malformed entries are dropped;
// an empty or unparsable response yields an empty table.
func (c *Client) Routing(ctx context.Context) ([]moip.RoutingAssignment, error) {
	resp, err := c.roundTrip(ctx, queryReceivers, readLine)
	if err != nil {
		return nil, err
	}
	return parseRouting(resp), nil
}

// Switch routes receiver rx to transmitter tx. Passing tx = 0 unassigns
// the receiver. Success means the controller acknowledged with an OK
// token; a timeout or empty response reads as false with no error.
func (c *Client) Switch(ctx context.Context, tx, rx int) (bool, error) {
	resp, err := c.roundTrip(ctx, fmt.Sprintf(switchFmt, tx, rx), readLine)
	if err != nil {
		return false, err
	}
	return strings.Contains(resp, "OK"), nil
}

// Names returns the display names the controller holds for one side of
// the matrix, keyed by device index. Lines that do not match the expected
// per-line pattern are ignored.
//
// Name listings are multi-line with no terminator, so the read phase runs
// to a short silence window rather than stopping at the first newline.
func (c *Client) Names(ctx context.Context, kind moip.Kind) (map[int]string, error) {
	side := kind.Side()
	resp, err := c.roundTrip(ctx, fmt.Sprintf(queryNameFmt, side), readAll)
	if err != nil {
		return nil, err
	}
	return parseNames(resp, side), nil
}

// SendCEC forwards a raw CEC user-control code to the display attached to
// receiver rx. The OK acknowledgement means the controller accepted the
// command, not that the display acted on it.
func (c *Client) SendCEC(ctx context.Context, rx int, code string) (bool, error) {
	resp, err := c.roundTrip(ctx, fmt.Sprintf(cecFmt, rx, code), readLine)
	if err != nil {
		return false, err
	}
	return strings.Contains(resp, "OK"), nil
}

// SendCECCommand sends a named remote-control command from the CEC
// catalogue, transmitting each code of the sequence in order. Every code
// must be acknowledged for the command to count as sent.
func (c *Client) SendCECCommand(ctx context.Context, rx int, command string) (bool, error) {
	codes, err := moip.CECCodes(command)
	if err != nil {
		return false, err
	}
	for _, code := range codes {
		ok, err := c.SendCEC(ctx, rx, code)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Ping verifies the controller answers on the line protocol port.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, queryDevices, readLine)
	return err
}

// roundTrip executes one command on a fresh connection: dial, write the
// newline-terminated command, read until complete, close.
//
// Completion depends on mode: readLine stops at the first newline,
// readAll runs until the deadline. Both stop early when the error marker
// appears. A read timeout is not an error; whatever bytes arrived are
// returned and the parse helpers decide what they mean.
func (c *Client) roundTrip(ctx context.Context, command string, mode readMode) (string, error) {
	start := time.Now()

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %w", ErrUnreachable, c.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("telnet: set deadline: %w", err)
	}

	// Check context before write (dial may have consumed the budget)
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("telnet: %w", ctx.Err())
	default:
	}

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("%w: write %q: %w", ErrUnreachable, command, err)
	}

	// Multi-line listings end by silence; shorten the read deadline so a
	// quiet controller does not hold the caller for the full timeout.
	if mode == readAll {
		if w := time.Now().Add(nameReadWindow); w.Before(deadline) {
			_ = conn.SetReadDeadline(w)
		}
	}

	var resp strings.Builder
	buf := make([]byte, readBufferSize)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			resp.Write(buf[:n])
			if mode == readLine && bytes.IndexByte(buf[:n], '\n') >= 0 {
				break
			}
			if strings.Contains(resp.String(), errorMarker) {
				break
			}
		}
		if rerr != nil {
			break
		}
	}

	c.logDebug("command complete",
		"command", command,
		"bytes", resp.Len(),
		"duration_ms", time.Since(start).Milliseconds())

	return resp.String(), nil
}

// logDebug logs a debug message if a logger is set.
func (c *Client) logDebug(msg string, args ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// parseCounts extracts transmitter and receiver counts from a ?Devices
// response. Anything that does not match yields zero counts.
func parseCounts(resp string) moip.DeviceCounts {
	m := countsRE.FindStringSubmatch(resp)
	if m == nil {
		return moip.DeviceCounts{}
	}

	// Submatches are all-digit by construction
	tx, _ := strconv.Atoi(m[1])
	rx, _ := strconv.Atoi(m[2])
	return moip.DeviceCounts{Transmitters: tx, Receivers: rx}
}

// parseRouting extracts tx:rx pairs from a ?Receivers response. Tokens
// that do not split into exactly two integers are dropped.
func parseRouting(resp string) []moip.RoutingAssignment {
	_, payload, found := strings.Cut(resp, queryReceivers+"=")
	if !found {
		return nil
	}
	if i := strings.IndexByte(payload, '\n'); i >= 0 {
		payload = payload[:i]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}

	var table []moip.RoutingAssignment
	for _, token := range strings.Split(payload, ",") {
		parts := strings.Split(token, ":")
		if len(parts) != 2 {
			continue
		}
		tx, txErr := strconv.Atoi(strings.TrimSpace(parts[0]))
		rx, rxErr := strconv.Atoi(strings.TrimSpace(parts[1]))
		if txErr != nil || rxErr != nil {
			continue
		}
		table = append(table, moip.RoutingAssignment{Tx: tx, Rx: rx})
	}
	return table
}

// parseNames extracts index→name entries for one side from a multi-line
// ?Name listing. Lines for the other side, or in any other shape, are
// ignored.
func parseNames(resp string, side int) map[int]string {
	names := make(map[int]string)
	wantSide := strconv.Itoa(side)

	for _, line := range strings.Split(resp, "\n") {
		m := nameLineRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[1] != wantSide {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		names[idx] = strings.TrimSpace(m[3])
	}
	return names
}
