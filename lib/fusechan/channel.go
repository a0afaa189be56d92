// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/burrow/lib/fusekernel"
)

// DefaultMaxWrite is the write size advertised at INIT when Options
// does not override it.
const DefaultMaxWrite = 128 * 1024

// readBufferSlack covers the request header and opcode payload in
// front of WRITE data in the per-worker read buffer.
const readBufferSlack = 4096

// Options configures a Channel.
type Options struct {
	// DeviceFD is the open FUSE device descriptor. The channel owns
	// it: it is closed on Close unless StealDevice transferred
	// ownership first. The mount itself is performed by a
	// privileged helper; the channel only ever sees the descriptor.
	DeviceFD int

	// MountPath is informational, used in log messages.
	MountPath string

	// Workers is the worker goroutine count (>= 1).
	Workers int

	// Dispatcher implements the filesystem semantics.
	Dispatcher Dispatcher

	// MaxWrite is the maximum write size advertised at INIT.
	// Defaults to DefaultMaxWrite; values below the kernel minimum
	// read buffer are raised to it.
	MaxWrite uint32

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Channel owns the FUSE device descriptor and the pool of worker
// goroutines that read requests from it. Lifecycle: construct with
// NewChannel, then either Initialize (fresh mount, INIT handshake)
// or InitializeFromTakeover (graceful restart, pre-negotiated
// connection). RequestSessionExit begins draining; SessionComplete
// is signalled once all workers have stopped and no request is in
// flight.
type Channel struct {
	mountPath  string
	numWorkers int
	dispatcher Dispatcher
	logger     *slog.Logger
	maxWrite   uint32
	bufferSize int

	// device is guarded by deviceMu. stolen marks that ownership
	// moved to a successor process; Close must not close the
	// descriptor then. Workers keep reading the descriptor after a
	// steal — the successor resumes the session, this process just
	// stops being responsible for closing it.
	deviceMu sync.Mutex
	device   int
	stolen   bool

	// connInfo is written exactly once, by the INIT worker or by
	// takeover, before the remaining workers start.
	connInfo atomic.Pointer[fusekernel.InitOut]

	// sessionFinished tells workers to exit their read loop.
	sessionFinished atomic.Bool

	registry *requestRegistry

	// state guards worker accounting for the session-complete
	// signal.
	state struct {
		sync.Mutex
		startedWorkers int
		stoppedWorkers int
		initSucceeded  bool
	}

	initOnce sync.Once
	initDone chan error

	sessionComplete     chan struct{}
	sessionCompleteOnce sync.Once

	// unhandledOpcodes dedupes unknown-opcode log lines.
	unhandledMu      sync.Mutex
	unhandledOpcodes map[fusekernel.Opcode]struct{}
}

// NewChannel constructs a channel around an already-open device
// descriptor. Call Initialize or InitializeFromTakeover to start
// serving.
func NewChannel(options Options) (*Channel, error) {
	if options.DeviceFD < 0 {
		return nil, fmt.Errorf("device descriptor is required")
	}
	if options.Workers < 1 {
		return nil, fmt.Errorf("worker count must be >= 1, got %d", options.Workers)
	}
	if options.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if options.MaxWrite == 0 {
		options.MaxWrite = DefaultMaxWrite
	}
	if options.MaxWrite < fusekernel.MinReadBuffer {
		options.MaxWrite = fusekernel.MinReadBuffer
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	bufferSize := int(options.MaxWrite)
	if bufferSize < DefaultMaxWrite {
		bufferSize = DefaultMaxWrite
	}

	return &Channel{
		mountPath:        options.MountPath,
		numWorkers:       options.Workers,
		dispatcher:       options.Dispatcher,
		logger:           options.Logger,
		maxWrite:         options.MaxWrite,
		bufferSize:       bufferSize + readBufferSlack,
		device:           options.DeviceFD,
		registry:         newRequestRegistry(),
		initDone:         make(chan error, 1),
		sessionComplete:  make(chan struct{}),
		unhandledOpcodes: make(map[fusekernel.Opcode]struct{}),
	}, nil
}

// ConnInfo returns the negotiated connection parameters, or nil
// before initialization completes.
func (c *Channel) ConnInfo() *fusekernel.InitOut {
	return c.connInfo.Load()
}

// Initialize starts one worker that performs the INIT handshake with
// the kernel. On success that worker stores the negotiated
// connection info, starts the remaining workers, and completes the
// returned channel; until then no other request is serviced.
func (c *Channel) Initialize() <-chan error {
	c.initOnce.Do(func() {
		c.startWorker(c.initWorker)
	})
	return c.initDone
}

// InitializeFromTakeover adopts a connection negotiated by a
// predecessor process: it stores connInfo and starts all workers
// immediately, with no INIT exchange.
func (c *Channel) InitializeFromTakeover(connInfo fusekernel.InitOut) <-chan error {
	c.initOnce.Do(func() {
		c.connInfo.Store(&connInfo)
		c.markInitSucceeded()
		c.initDone <- nil
		c.startWorkers(c.numWorkers)
		c.logger.Info("session taken over",
			"mount", c.mountPath,
			"proto_minor", connInfo.Minor,
			"workers", c.numWorkers,
		)
	})
	return c.initDone
}

// SessionComplete is closed once initialization succeeded, every
// worker has stopped, and no request is in flight. It is never
// closed when initialization failed; that failure surfaces through
// the Initialize result instead.
func (c *Channel) SessionComplete() <-chan struct{} {
	return c.sessionComplete
}

// RequestSessionExit asks the workers to stop. Workers observe the
// flag between reads; a worker blocked in the device read returns
// when the kernel ends the session (unmount) or the successor takes
// over. In-flight requests are cancelled and still receive replies.
func (c *Channel) RequestSessionExit() {
	c.sessionFinished.Store(true)
	c.registry.cancelAll()
}

// StealDevice transfers ownership of the device descriptor to the
// caller for handoff to a successor process. The channel's Close
// will no longer close it; workers continue serving until the
// session exits. StealDevice and Close must not race — that is a
// caller bug.
func (c *Channel) StealDevice() (int, error) {
	c.deviceMu.Lock()
	defer c.deviceMu.Unlock()

	if c.stolen {
		return -1, fmt.Errorf("device already stolen")
	}
	c.stolen = true
	return c.device, nil
}

// Close tears the channel down: requests session exit and closes
// the device descriptor unless it was stolen. Closing the
// descriptor unblocks workers parked in the device read.
func (c *Channel) Close() error {
	c.RequestSessionExit()

	c.deviceMu.Lock()
	defer c.deviceMu.Unlock()
	if c.stolen {
		return nil
	}
	if c.device >= 0 {
		if err := unix.Close(c.device); err != nil {
			return fmt.Errorf("closing fuse device: %w", err)
		}
		c.device = -1
	}
	return nil
}

func (c *Channel) fd() int {
	c.deviceMu.Lock()
	defer c.deviceMu.Unlock()
	return c.device
}

func (c *Channel) markInitSucceeded() {
	c.state.Lock()
	c.state.initSucceeded = true
	c.state.Unlock()
}

func (c *Channel) startWorkers(count int) {
	for range count {
		c.startWorker(c.processSession)
	}
}

func (c *Channel) startWorker(loop func()) {
	c.state.Lock()
	c.state.startedWorkers++
	c.state.Unlock()

	go func() {
		defer c.workerStopped()
		loop()
	}()
}

func (c *Channel) workerStopped() {
	c.state.Lock()
	c.state.stoppedWorkers++
	c.state.Unlock()
	c.maybeSignalSessionComplete()
}

// maybeSignalSessionComplete fires the session-complete signal
// exactly once, when init succeeded, every started worker stopped,
// and the in-flight set is empty.
func (c *Channel) maybeSignalSessionComplete() {
	c.state.Lock()
	done := c.state.initSucceeded &&
		c.state.startedWorkers > 0 &&
		c.state.stoppedWorkers == c.state.startedWorkers &&
		c.sessionFinished.Load()
	c.state.Unlock()

	if done && c.registry.empty() {
		c.sessionCompleteOnce.Do(func() { close(c.sessionComplete) })
	}
}

// initWorker reads requests until the INIT exchange completes, then
// becomes a regular session worker. Anything that is not INIT before
// the handshake is rejected with EINVAL.
func (c *Channel) initWorker() {
	buf := make([]byte, c.bufferSize)

	for !c.sessionFinished.Load() {
		request, err := c.readRequest(buf)
		if err != nil {
			c.initDone <- err
			c.sessionFinished.Store(true)
			return
		}
		if request == nil {
			if c.sessionFinished.Load() {
				c.initDone <- fmt.Errorf("session closed before INIT")
				return
			}
			continue
		}

		header, err := fusekernel.ParseHeader(request)
		if err != nil {
			c.protocolViolation(err)
			c.initDone <- err
			return
		}

		if header.Opcode != fusekernel.OpInit {
			c.logger.Warn("request before INIT rejected",
				"opcode", header.Opcode.String(),
				"unique", header.Unique,
			)
			c.replyError(header, unix.EINVAL)
			continue
		}

		if err := c.negotiate(header, request[fusekernel.InHeaderSize:]); err != nil {
			c.initDone <- err
			c.sessionFinished.Store(true)
			return
		}

		c.markInitSucceeded()
		c.startWorkers(c.numWorkers - 1)
		c.initDone <- nil

		// This worker joins the pool.
		c.sessionLoop(buf)
		return
	}
	c.initDone <- fmt.Errorf("session exit requested before INIT")
}

// negotiate performs the INIT exchange: protocol version is the
// minimum of both sides, capability flags are the intersection of
// what the kernel offers and what burrow supports.
func (c *Channel) negotiate(header *fusekernel.InHeader, payload []byte) error {
	in, ok := fusekernel.ParseAs[fusekernel.InitIn](payload)
	if !ok {
		return fmt.Errorf("INIT payload of %d bytes is too short", len(payload))
	}

	if in.Major != fusekernel.KernelVersion {
		c.replyError(header, unix.EPROTO)
		return fmt.Errorf("unsupported kernel protocol version %d.%d", in.Major, in.Minor)
	}
	if in.Minor < fusekernel.MinMinorVersion {
		c.replyError(header, unix.EPROTO)
		return fmt.Errorf("kernel protocol 7.%d is older than the minimum supported 7.%d",
			in.Minor, fusekernel.MinMinorVersion)
	}

	minor := uint32(fusekernel.KernelMinorVersion)
	if in.Minor < minor {
		minor = in.Minor
	}

	supported := fusekernel.CapAsyncRead |
		fusekernel.CapBigWrites |
		fusekernel.CapAtomicOTrunc |
		fusekernel.CapParallelDirops |
		fusekernel.CapCacheSymlinks
	out := fusekernel.InitOut{
		Major:               fusekernel.KernelVersion,
		Minor:               minor,
		MaxReadahead:        in.MaxReadahead,
		Flags:               in.Flags & supported,
		MaxBackground:       12,
		CongestionThreshold: 9,
		MaxWrite:            c.maxWrite,
	}

	replyBytes := fusekernel.AsBytes(&out)
	if minor < 23 {
		replyBytes = replyBytes[:fusekernel.InitOutCompatSize]
	}
	if err := c.sendReplyBytes(header, replyBytes); err != nil {
		return fmt.Errorf("sending INIT reply: %w", err)
	}

	c.connInfo.Store(&out)
	c.logger.Info("session initialized",
		"mount", c.mountPath,
		"proto", fmt.Sprintf("%d.%d", out.Major, out.Minor),
		"max_write", out.MaxWrite,
		"workers", c.numWorkers,
	)
	return nil
}

// processSession is the worker loop for post-init workers.
func (c *Channel) processSession() {
	c.sessionLoop(make([]byte, c.bufferSize))
}

func (c *Channel) sessionLoop(buf []byte) {
	for !c.sessionFinished.Load() {
		request, err := c.readRequest(buf)
		if err != nil {
			c.logger.Error("fuse read failed", "error", err)
			c.sessionFinished.Store(true)
			return
		}
		if request == nil {
			continue
		}

		header, err := fusekernel.ParseHeader(request)
		if err != nil {
			c.protocolViolation(err)
			return
		}
		c.dispatchRequest(header, request[fusekernel.InHeaderSize:])
	}
}

// readRequest performs one device read. A nil request with nil
// error means "nothing this round" (EINTR, a request the kernel
// already cancelled, or session end).
func (c *Channel) readRequest(buf []byte) ([]byte, error) {
	n, err := unix.Read(c.fd(), buf)
	switch err {
	case nil:
	case unix.EINTR, unix.EAGAIN:
		return nil, nil
	case unix.ENOENT:
		// The kernel cancelled the request between queueing it and
		// our read; nothing to service.
		return nil, nil
	case unix.ENODEV:
		// Unmounted. Clean session termination.
		c.logger.Info("fuse device unmounted", "mount", c.mountPath)
		c.sessionFinished.Store(true)
		return nil, nil
	case unix.EBADF:
		// Close tore the descriptor down under us during shutdown.
		c.sessionFinished.Store(true)
		return nil, nil
	default:
		return nil, fmt.Errorf("reading fuse device: %w", err)
	}

	if n == 0 {
		// EOF: the peer end of the session is gone.
		c.sessionFinished.Store(true)
		return nil, nil
	}
	if n < fusekernel.InHeaderSize {
		return nil, fmt.Errorf("short read of %d bytes from fuse device", n)
	}
	return buf[:n], nil
}

// dispatchRequest routes one decoded request through the handler
// table and writes the reply.
func (c *Channel) dispatchRequest(header *fusekernel.InHeader, payload []byte) {
	if header.Opcode == fusekernel.OpInterrupt {
		in, ok := fusekernel.ParseAs[fusekernel.InterruptIn](payload)
		if ok {
			c.registry.cancel(in.Unique)
		}
		// INTERRUPT itself is never replied to.
		return
	}

	entry, known := handlerMap[header.Opcode]
	if !known {
		c.logUnhandledOnce(header.Opcode)
		c.replyError(header, unix.ENOSYS)
		return
	}

	if !entry.expectsReply {
		// Forget family: no registry entry, no reply.
		if _, err := entry.invoke(c, context.Background(), header, payload); err != nil {
			c.logger.Warn("forget request failed", "opcode", header.Opcode.String(), "error", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.registry.insert(header.Unique, cancel); err != nil {
		// A duplicate unique id means the kernel and channel
		// disagree about the in-flight set. Unrecoverable.
		c.protocolViolation(err)
		return
	}

	buffers, err := entry.invoke(c, ctx, header, payload)
	if err != nil {
		c.replyError(header, errnoOf(err))
	} else if err := c.sendReplyVec(header, buffers); err != nil {
		c.logger.Error("reply write failed",
			"opcode", header.Opcode.String(),
			"unique", header.Unique,
			"error", err,
		)
	}

	c.registry.finish(header.Unique)
	c.maybeSignalSessionComplete()
}

// protocolViolation handles unrecoverable framing errors: the
// session cannot continue once the request stream is misaligned.
func (c *Channel) protocolViolation(err error) {
	c.logger.Error("fuse protocol violation, terminating session",
		"mount", c.mountPath,
		"error", err,
	)
	c.sessionFinished.Store(true)
}

func (c *Channel) logUnhandledOnce(opcode fusekernel.Opcode) {
	c.unhandledMu.Lock()
	_, seen := c.unhandledOpcodes[opcode]
	if !seen {
		c.unhandledOpcodes[opcode] = struct{}{}
	}
	c.unhandledMu.Unlock()

	if !seen {
		c.logger.Warn("unhandled fuse opcode", "opcode", opcode.String())
	}
}
