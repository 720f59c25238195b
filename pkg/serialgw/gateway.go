// Package serialgw implements the synchronized request/response
// gateway to the robot arm's microcontroller: a delimiter-terminated
// line protocol over a USB-ACM-class serial port, with at-most-one
// command in flight at a time.
package serialgw

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrSerialUnavailable is returned when the port cannot be opened.
var ErrSerialUnavailable = errors.New("serialgw: serial port unavailable")

// ErrSerialIO wraps a transport-level failure during an exchange.
var ErrSerialIO = errors.New("serialgw: serial transport error")

// replyTerminator is the literal line the microcontroller emits to
// mark the end of a command's reply.
const replyTerminator = "%"

// DefaultTimeout is the per-exchange read timeout (spec: 45s).
const DefaultTimeout = 45 * time.Second

// DefaultBaud is the microcontroller's fixed baud rate.
const DefaultBaud = 9600

// bootSettleDelay is how long the gateway waits after opening the
// port for the peer's post-reset boot sequence before flushing it.
const bootSettleDelay = 2 * time.Second

// candidatePatterns are substrings that mark a serial port name as a
// USB-ACM-class candidate, tried in this priority order.
var candidatePatterns = []string{"usbmodem", "ttyACM", "ttyUSB", "COM"}

// Port is the minimal serial transport the gateway needs, matching
// go.bug.st/serial's Port interface. Abstracted for testability
// without real hardware.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// opener abstracts serial.Open for tests.
type opener func(portName string, mode *serial.Mode) (serial.Port, error)

// Gateway serializes request/response exchanges with the robot's
// microcontroller. Exactly one command is in flight at a time,
// enforced by mu, which is held for the entire write-then-read-until-
// terminator exchange.
type Gateway struct {
	mu sync.Mutex

	portName string
	timeout  time.Duration
	open     opener

	port Port
}

// NewGateway builds a gateway that lazily connects on first use. If
// portName is empty, Connect enumerates candidate ports and picks the
// first by natural-number order.
func NewGateway(portName string) *Gateway {
	return &Gateway{
		portName: portName,
		timeout:  DefaultTimeout,
		open: func(name string, mode *serial.Mode) (serial.Port, error) {
			return serial.Open(name, mode)
		},
	}
}

// SetTimeout overrides the per-exchange read timeout.
func (g *Gateway) SetTimeout(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeout = d
}

// ensureConnected opens the port if it is not already open. Must be
// called with mu held.
func (g *Gateway) ensureConnected() error {
	if g.port != nil {
		return nil
	}

	name := g.portName
	if name == "" {
		picked, err := SelectPort()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialUnavailable, err)
		}
		name = picked
	}

	mode := &serial.Mode{
		BaudRate: DefaultBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := g.open(name, mode)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrSerialUnavailable, name, err)
	}

	if err := p.SetReadTimeout(g.timeout); err != nil {
		p.Close()
		return fmt.Errorf("%w: setting read timeout: %v", ErrSerialUnavailable, err)
	}

	time.Sleep(bootSettleDelay)
	_ = p.ResetInputBuffer()

	g.port = p
	g.portName = name
	return nil
}

// SendCommand writes cmd+"\n" and reads the reply line by line until
// the terminator line "%" or a driver-side read timeout with nothing
// pending. It returns the non-empty lines joined with "\n", or
// "Success" if the reply was empty.
func (g *Gateway) SendCommand(cmd string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureConnected(); err != nil {
		return "", err
	}

	if _, err := io.WriteString(g.port, cmd+"\n"); err != nil {
		g.closeLocked()
		return "", fmt.Errorf("%w: writing command: %v", ErrSerialIO, err)
	}

	reader := bufio.NewReader(g.port)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")

		if trimmed == replyTerminator {
			break
		}
		if trimmed != "" {
			lines = append(lines, trimmed)
		}

		if err != nil {
			if errors.Is(err, io.EOF) && trimmed == "" {
				// Driver-side read timeout with nothing available:
				// end the reply early.
				break
			}
			if !errors.Is(err, io.EOF) {
				g.closeLocked()
				return "", fmt.Errorf("%w: reading reply: %v", ErrSerialIO, err)
			}
			break
		}
	}

	if len(lines) == 0 {
		return "Success", nil
	}
	return strings.Join(lines, "\n"), nil
}

// Close releases the serial port, if open.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closeLocked()
}

func (g *Gateway) closeLocked() error {
	if g.port == nil {
		return nil
	}
	err := g.port.Close()
	g.port = nil
	return err
}

// naturalSuffix extracts the trailing run of digits from a port name,
// or -1 if there is none.
var trailingDigits = regexp.MustCompile(`(\d+)$`)

func naturalSuffix(name string) int {
	m := trailingDigits.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// SelectPort enumerates available serial ports and picks the first
// USB-ACM-class candidate by natural-number order: names are first
// filtered to those containing any of candidatePatterns, then sorted
// by their trailing numeric suffix rather than lexically (so ttyACM2
// sorts before ttyACM10).
func SelectPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("listing serial ports: %w", err)
	}
	return selectOrDefault(ports), nil
}

// selectOrDefault picks a candidate from ports, falling back to the
// platform default when none match.
func selectOrDefault(ports []string) string {
	if picked, err := selectFrom(ports); err == nil {
		return picked
	}
	return defaultPortForPlatform(runtime.GOOS)
}

// defaultPortForPlatform returns the platform-typical microcontroller
// serial device to try when enumeration finds no USB-ACM-class
// candidate at all, matching the original's own documented defaults.
func defaultPortForPlatform(goos string) string {
	switch goos {
	case "darwin":
		return "/dev/cu.usbmodem1"
	case "windows":
		return "COM3"
	default:
		return "/dev/ttyACM0"
	}
}

func selectFrom(ports []string) (string, error) {
	var candidates []string
	for _, p := range ports {
		for _, pat := range candidatePatterns {
			if strings.Contains(p, pat) {
				candidates = append(candidates, p)
				break
			}
		}
	}

	if len(candidates) == 0 {
		return "", errors.New("no candidate serial ports found")
	}

	sort.Slice(candidates, func(i, j int) bool {
		ni, nj := naturalSuffix(candidates[i]), naturalSuffix(candidates[j])
		if ni != nj {
			return ni < nj
		}
		return candidates[i] < candidates[j]
	})

	return candidates[0], nil
}
