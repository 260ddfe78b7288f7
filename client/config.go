package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-fins/fins"
	"github.com/arloliu/go-fins/finstcp"
	"github.com/arloliu/go-fins/logger"
)

// DefaultPort is the well-known FINS/TCP port.
const DefaultPort = 9600

// Dialer opens the TCP connection of a session. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network string, address string) (net.Conn, error)
}

// SessionConfig represents the configuration parameters of a FINS/TCP session.
type SessionConfig struct {
	mu sync.RWMutex

	// host specifies the host of the FINS/TCP server.
	host string

	// port specifies the TCP port of the FINS/TCP server.
	port int

	// clientNode is the node address requested in the handshake. finstcp.AnyNode lets the server assign one.
	// Defaults to finstcp.AnyNode.
	clientNode finstcp.NodeAddress

	// connectTimeout defines the timeout for establishing the TCP connection. It should be between 1 and 30 seconds.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// responseTimeout bounds every wait for the server: the handshake reply and each command response.
	// It should be between 10 milliseconds and 120 seconds.
	// Defaults to 2 seconds.
	responseTimeout time.Duration

	// maxFrameSize is the largest FINS response frame accepted, in bytes.
	// A response header declaring a longer frame fails with finstcp.ErrFrameTooLarge before anything is allocated.
	// Defaults to 2010.
	maxFrameSize int

	// lenientMagic disables the "FINS" magic check on received headers.
	// Defaults to false.
	lenientMagic bool

	// dialer opens the TCP connection.
	// Defaults to a net.Dialer with 30 seconds keep-alive.
	dialer Dialer

	// logger provides a logger instance for logging session events and errors.
	logger logger.Logger
}

// NewSessionConfig creates a new session configuration with the given host, port number, and optional functional options.
//
// It initializes a SessionConfig struct with default values and then applies the provided options to customize the configuration.
//
// Returns a pointer to the initialized SessionConfig and an error if any occurred during the configuration process.
func NewSessionConfig(host string, port int, opts ...ConnOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		clientNode:      finstcp.AnyNode,
		connectTimeout:  3 * time.Second,
		responseTimeout: 2 * time.Second,
		maxFrameSize:    2010,
		dialer:          &net.Dialer{KeepAlive: 30 * time.Second},
		logger:          logger.GetLogger(),
	}

	if err := withRemoteHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the server host.
func (cfg *SessionConfig) Host() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.host
}

// Port returns the server port.
func (cfg *SessionConfig) Port() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.port
}

// Address returns the "host:port" dial address.
func (cfg *SessionConfig) Address() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

// ClientNode returns the node address requested during the handshake.
func (cfg *SessionConfig) ClientNode() finstcp.NodeAddress {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.clientNode
}

// ConnectTimeout returns the TCP connect timeout.
func (cfg *SessionConfig) ConnectTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.connectTimeout
}

// ResponseTimeout returns the bound on every wait for the server.
func (cfg *SessionConfig) ResponseTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.responseTimeout
}

// MaxFrameSize returns the largest accepted response frame in bytes.
func (cfg *SessionConfig) MaxFrameSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.maxFrameSize
}

// LenientMagic reports whether the "FINS" magic check on received headers is disabled.
func (cfg *SessionConfig) LenientMagic() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.lenientMagic
}

// Logger returns the configured logger.
func (cfg *SessionConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

func (cfg *SessionConfig) getDialer() Dialer {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.dialer
}

// ConnOption represents a functional option for configuring a SessionConfig.
type ConnOption interface {
	apply(*SessionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*SessionConfig) error
}

func (c *connOptFunc) apply(cfg *SessionConfig) error {
	if cfg == nil {
		return ErrConnConfigNil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if err := c.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	return nil
}

func newConnOptFunc(name string, f func(*SessionConfig) error) *connOptFunc {
	return &connOptFunc{
		name:      name,
		applyFunc: f,
	}
}

// withRemoteHost sets the host of the FINS/TCP server.
// An IP address or a syntactically valid host name is accepted; names are resolved when dialing.
func withRemoteHost(host string) ConnOption {
	return newConnOptFunc("withRemoteHost", func(cfg *SessionConfig) error {
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		host = strings.TrimSuffix(strings.TrimPrefix(host, "."), ".")
		if host == "" || strings.ContainsAny(host, " /:") {
			return errors.New("invalid host")
		}
		cfg.host = host

		return nil
	})
}

// withPort sets the TCP port of the FINS/TCP server.
func withPort(port int) ConnOption {
	return newConnOptFunc("withPort", func(cfg *SessionConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithClientNode sets the node address the client requests during the handshake.
//
// The default is finstcp.AnyNode, which lets the server assign the node address.
func WithClientNode(node finstcp.NodeAddress) ConnOption {
	return newConnOptFunc("WithClientNode", func(cfg *SessionConfig) error {
		if node > 254 {
			return errors.New("client node is out of range [0, 254]")
		}
		cfg.clientNode = node

		return nil
	})
}

// WithConnectTimeout sets the timeout for establishing the TCP connection.
// The value should be between 1 and 30 seconds.
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithConnectTimeout", func(cfg *SessionConfig) error {
		if val < 1*time.Second || val > 30*time.Second {
			return errors.New("connect timeout out of range [1, 30] seconds")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithResponseTimeout sets how long the session waits for the handshake reply and for each command response.
// The value should be between 10 milliseconds and 120 seconds.
//
// The default value is 2 seconds.
func WithResponseTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithResponseTimeout", func(cfg *SessionConfig) error {
		if val < 10*time.Millisecond || val > 120*time.Second {
			return errors.New("response timeout out of range [10ms, 120s]")
		}
		cfg.responseTimeout = val

		return nil
	})
}

// WithMaxFrameSize sets the largest accepted FINS response frame in bytes.
// The value should be between fins.MinResponseSize and 65535.
//
// The default value is 2010.
func WithMaxFrameSize(size int) ConnOption {
	return newConnOptFunc("WithMaxFrameSize", func(cfg *SessionConfig) error {
		if size < fins.MinResponseSize || size > 65535 {
			return fmt.Errorf("max frame size out of range [%d, 65535]", fins.MinResponseSize)
		}
		cfg.maxFrameSize = size

		return nil
	})
}

// WithLenientMagic disables the "FINS" magic check on received headers, for servers that
// do not fill it in. Headers are then decoded by position only.
func WithLenientMagic() ConnOption {
	return newConnOptFunc("WithLenientMagic", func(cfg *SessionConfig) error {
		cfg.lenientMagic = true
		return nil
	})
}

// WithStrictMagic enables the "FINS" magic check on received headers.
//
// This is the default.
func WithStrictMagic() ConnOption {
	return newConnOptFunc("WithStrictMagic", func(cfg *SessionConfig) error {
		cfg.lenientMagic = false
		return nil
	})
}

// WithDialer sets the dialer used to open the TCP connection.
func WithDialer(dialer Dialer) ConnOption {
	return newConnOptFunc("WithDialer", func(cfg *SessionConfig) error {
		if dialer == nil {
			return errors.New("dialer is nil")
		}
		cfg.dialer = dialer

		return nil
	})
}

// WithLogger sets the logger of the session.
//
// The default is the logger package's default logger.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
