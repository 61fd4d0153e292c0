// Package transport maintains the one logical websocket connection to the
// CSMS: TLS, HTTP basic auth, application-level ping/pong liveness,
// randomized exponential reconnect backoff and inbound frame reassembly.
// All callbacks into higher layers are delivered through the deferred
// callback queue, never from the I/O goroutine itself.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"charging_station/scheduler"
	"charging_station/types"
)

// FailureReason classifies why a connection attempt or an established
// connection failed.
type FailureReason string

const (
	FailureInvalidCsmsCertificate FailureReason = "InvalidCsmsCertificate"
	FailureFailedToAuthenticate   FailureReason = "FailedToAuthenticate"
	FailurePongTimeout            FailureReason = "PongTimeout"
	FailureNetwork                FailureReason = "Network"
	FailureOther                  FailureReason = "Other"
)

// Options describes one connection target, derived from the active network
// profile plus the security knobs of the device model.
type Options struct {
	URL               string
	StationID         string
	SecurityProfile   int
	BasicAuthPassword string
	TLSConfig         *tls.Config

	PingInterval time.Duration
	PongTimeout  time.Duration

	BackOffWaitMinimum time.Duration
	BackOffRepeatTimes int
	BackOffRandomRange time.Duration
	ConnectionAttempts int
}

// Client is the websocket transport. One worker goroutine owns the socket;
// Send may be called from any goroutine.
type Client struct {
	log *logrus.Logger
	cq  *scheduler.CallbackQueue

	mu      sync.Mutex
	opts    Options
	conn    *websocket.Conn
	started bool
	stopped bool
	epoch   int // increments on every teardown, fences stale goroutines

	lastPong time.Time

	// connection failure dedup: certificate failures are reported once per
	// disconnected episode.
	certFailureReported bool

	connected         func()
	disconnected      func()
	message           func([]byte)
	connectionFailed  func(FailureReason)
	stoppedConnecting func()

	assembler frameAssembler
}

func NewClient(opts Options, cq *scheduler.CallbackQueue, log *logrus.Logger) *Client {
	return &Client{log: log, cq: cq, opts: opts}
}

func (c *Client) OnConnected(fn func())                     { c.connected = fn }
func (c *Client) OnDisconnected(fn func())                  { c.disconnected = fn }
func (c *Client) OnMessage(fn func([]byte))                 { c.message = fn }
func (c *Client) OnConnectionFailed(fn func(FailureReason)) { c.connectionFailed = fn }

// OnStoppedConnecting fires after the retry budget of the current options
// is exhausted; the connectivity manager reacts by advancing to the next
// network profile.
func (c *Client) OnStoppedConnecting(fn func()) { c.stoppedConnecting = fn }

// SetOptions replaces the connection target. Takes effect on the next
// Start or Reconnect.
func (c *Client) SetOptions(opts Options) {
	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()
}

// Start begins connection attempts. Idempotent while already running.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	epoch := c.epoch
	c.mu.Unlock()
	go c.connectLoop(epoch, 0)
}

// Reconnect tears down any live connection, waits delay, then starts
// connecting again.
func (c *Client) Reconnect(delay time.Duration) {
	c.teardown(websocket.CloseServiceRestart, "reconnect", false)
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	epoch := c.epoch
	c.mu.Unlock()
	go func() {
		time.Sleep(delay)
		c.connectLoop(epoch, 0)
	}()
}

// Disconnect closes the connection without reconnecting.
func (c *Client) Disconnect(code int, reason string) {
	c.teardown(code, reason, true)
}

// Stop shuts the transport down permanently.
func (c *Client) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.teardown(websocket.CloseGoingAway, "GoingAway", true)
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send hands one text frame to the socket. The return value only means the
// frame was written to the connection, not that the peer received it.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.WithField("error", err).Warn("websocket write failed")
		go c.handleSocketFailure(FailureNetwork)
		return false
	}
	return true
}

func (c *Client) connectLoop(epoch int, attempt int) {
	for {
		c.mu.Lock()
		if c.stopped || epoch != c.epoch {
			c.mu.Unlock()
			return
		}
		opts := c.opts
		c.mu.Unlock()

		reason, err := c.dial(opts)
		if err == nil {
			return // readLoop owns the connection now
		}

		c.log.WithFields(logrus.Fields{"url": opts.URL, "attempt": attempt + 1, "error": err}).
			Warn("connection attempt failed")
		c.reportFailure(reason)

		attempt++
		if opts.ConnectionAttempts > 0 && attempt >= opts.ConnectionAttempts {
			c.mu.Lock()
			c.started = false
			c.mu.Unlock()
			if c.stoppedConnecting != nil {
				c.cq.Post(c.stoppedConnecting)
			}
			return
		}
		time.Sleep(backoff(opts, attempt))
	}
}

// backoff computes the randomized exponential wait before the given
// attempt, bounded by BackOffRepeatTimes doublings.
func backoff(opts Options, attempt int) time.Duration {
	min := opts.BackOffWaitMinimum
	if min <= 0 {
		min = time.Second
	}
	doublings := attempt - 1
	if opts.BackOffRepeatTimes > 0 && doublings > opts.BackOffRepeatTimes {
		doublings = opts.BackOffRepeatTimes
	}
	d := min
	for i := 0; i < doublings; i++ {
		d *= 2
	}
	if opts.BackOffRandomRange > 0 {
		d += time.Duration(rand.Int63n(int64(opts.BackOffRandomRange)))
	}
	return d
}

func (c *Client) dial(opts Options) (FailureReason, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{types.SubProtocol201},
		TLSClientConfig:  opts.TLSConfig,
		HandshakeTimeout: 30 * time.Second,
	}
	header := http.Header{}
	if opts.SecurityProfile <= 2 && opts.BasicAuthPassword != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(opts.StationID + ":" + opts.BasicAuthPassword))
		header.Set("Authorization", "Basic "+cred)
	}

	conn, resp, err := dialer.Dial(opts.URL, header)
	if err != nil {
		return classifyDialError(err, resp), err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return FailureOther, errors.New("stopped during dial")
	}
	c.conn = conn
	c.lastPong = time.Now()
	c.certFailureReported = false
	c.assembler.reset()
	epoch := c.epoch
	c.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		return nil
	})

	c.log.WithField("url", opts.URL).Info("connected to CSMS")
	if c.connected != nil {
		c.cq.Post(c.connected)
	}

	go c.readLoop(conn, epoch)
	go c.livenessLoop(conn, epoch, opts)
	return "", nil
}

func classifyDialError(err error, resp *http.Response) FailureReason {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return FailureInvalidCsmsCertificate
	}
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) || errors.As(err, &certInvalid) {
		return FailureInvalidCsmsCertificate
	}
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return FailureFailedToAuthenticate
	}
	return FailureNetwork
}

func (c *Client) readLoop(conn *websocket.Conn, epoch int) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := epoch != c.epoch
			c.mu.Unlock()
			if !stale {
				c.handleSocketFailure(FailureNetwork)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		for _, frame := range c.assembler.feed(data) {
			if c.message != nil {
				f := frame
				c.cq.Post(func() { c.message(f) })
			}
		}
	}
}

func (c *Client) livenessLoop(conn *websocket.Conn, epoch int, opts Options) {
	if opts.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		if epoch != c.epoch {
			c.mu.Unlock()
			return
		}
		sincePong := time.Since(c.lastPong)
		c.mu.Unlock()

		if opts.PongTimeout > 0 && sincePong > opts.PingInterval+opts.PongTimeout {
			c.log.Warn("pong timeout, tearing connection down")
			c.handleSocketFailure(FailurePongTimeout)
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			c.handleSocketFailure(FailureNetwork)
			return
		}
	}
}

// handleSocketFailure tears down a live connection and schedules a fresh
// connect loop.
func (c *Client) handleSocketFailure(reason FailureReason) {
	c.reportFailure(reason)
	c.teardown(websocket.CloseAbnormalClosure, string(reason), false)

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	epoch := c.epoch
	opts := c.opts
	c.mu.Unlock()
	go func() {
		time.Sleep(backoff(opts, 1))
		c.connectLoop(epoch, 0)
	}()
}

func (c *Client) reportFailure(reason FailureReason) {
	if c.connectionFailed == nil {
		return
	}
	if reason == FailureInvalidCsmsCertificate {
		c.mu.Lock()
		dup := c.certFailureReported
		c.certFailureReported = true
		c.mu.Unlock()
		if dup {
			return
		}
	}
	c.cq.Post(func() { c.connectionFailed(reason) })
}

func (c *Client) teardown(code int, reason string, notify bool) {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.epoch++
	c.started = false
	c.mu.Unlock()

	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
	if c.disconnected != nil {
		c.cq.Post(c.disconnected)
	}
}
