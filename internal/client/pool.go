package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// DialFunc creates a new connection. The default dials per the pool's Config.
type DialFunc func(ctx context.Context) (*Conn, error)

// PoolConfig configures a connection pool.
type PoolConfig struct {
	Config      *Config
	MaxIdle     int
	MaxActive   int
	MaxLifetime time.Duration
	IdleTimeout time.Duration
	Dial        DialFunc // optional override, for tests and custom transports

	// Circuit breaker over dialing; a relay that stops answering trips the
	// breaker instead of stalling every borrower for a full timeout.
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
}

// DefaultPoolConfig returns a small pool against cfg.
func DefaultPoolConfig(cfg *Config) PoolConfig {
	return PoolConfig{
		Config:          cfg,
		MaxIdle:         4,
		MaxActive:       16,
		MaxLifetime:     15 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		BreakerInterval: time.Minute,
		BreakerTimeout:  30 * time.Second,
	}
}

// pooledConn tracks reuse metadata for one pooled connection.
type pooledConn struct {
	conn       *Conn
	createdAt  time.Time
	lastUsedAt time.Time
}

// Pool keeps a bounded set of reusable connections. Borrowed connections are
// health-probed with NOOP; idle ones are reaped on a maintenance loop.
type Pool struct {
	cfg     PoolConfig
	dial    DialFunc
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	idle   chan *pooledConn
	active int32

	mu     sync.Mutex
	closed bool

	maintCancel context.CancelFunc
	maintGroup  *errgroup.Group
}

// NewPool creates and starts a pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Config == nil && cfg.Dial == nil {
		return nil, fmt.Errorf("pool: either Config or Dial is required")
	}
	if cfg.MaxIdle <= 0 {
		return nil, fmt.Errorf("pool: MaxIdle must be > 0")
	}
	if cfg.MaxActive < cfg.MaxIdle {
		return nil, fmt.Errorf("pool: MaxActive must be >= MaxIdle")
	}

	logger := slog.Default().With("component", "smtp-pool")

	p := &Pool{
		cfg:    cfg,
		dial:   cfg.Dial,
		logger: logger,
		idle:   make(chan *pooledConn, cfg.MaxIdle),
	}
	if p.dial == nil {
		p.dial = func(ctx context.Context) (*Conn, error) {
			return Connect(ctx, cfg.Config)
		}
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "smtp-dial",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("dial circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String())
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	p.maintCancel = cancel
	p.maintGroup = g
	g.Go(func() error {
		p.maintain(gctx)
		return nil
	})

	return p, nil
}

// Get borrows a connection: a healthy idle one if available, otherwise a
// fresh dial through the circuit breaker, bounded by MaxActive.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool: closed")
	}
	p.mu.Unlock()

	for {
		select {
		case pc := <-p.idle:
			if !p.validate(ctx, pc) {
				p.discard(ctx, pc)
				continue
			}
			atomic.AddInt32(&p.active, 1)
			GetMetrics().PoolReused.Inc()
			return pc.conn, nil
		default:
		}
		break
	}

	if int(atomic.LoadInt32(&p.active)) >= p.cfg.MaxActive {
		return nil, fmt.Errorf("pool: all %d connections active", p.cfg.MaxActive)
	}

	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.dial(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("pool: dial: %w", err)
	}

	atomic.AddInt32(&p.active, 1)
	GetMetrics().PoolCreated.Inc()
	return res.(*Conn), nil
}

// Put returns a borrowed connection. Unhealthy or surplus connections are
// closed instead of pooled.
func (p *Pool) Put(ctx context.Context, conn *Conn) {
	atomic.AddInt32(&p.active, -1)

	if conn == nil {
		return
	}
	if !conn.IsConnected() {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		_ = conn.Close(ctx)
		return
	}

	pc := &pooledConn{conn: conn, createdAt: conn.openedAt, lastUsedAt: time.Now()}
	select {
	case p.idle <- pc:
	default:
		_ = conn.Close(ctx)
	}
}

// validate reports whether a pooled connection is still usable: connected,
// within its lifetime, and answering NOOP.
func (p *Pool) validate(ctx context.Context, pc *pooledConn) bool {
	if !pc.conn.IsConnected() {
		return false
	}
	if p.cfg.MaxLifetime > 0 && time.Since(pc.createdAt) > p.cfg.MaxLifetime {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pc.conn.Noop(probeCtx); err != nil {
		p.logger.Debug("idle connection failed probe", "error", err)
		return false
	}
	return true
}

func (p *Pool) discard(ctx context.Context, pc *pooledConn) {
	if pc.conn.IsConnected() {
		_ = pc.conn.Close(ctx)
	}
}

// maintain reaps idle-timed-out connections until the pool closes.
func (p *Pool) maintain(ctx context.Context) {
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(p.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reapIdle(ctx)
		}
	}
}

func (p *Pool) reapIdle(ctx context.Context) {
	for {
		select {
		case pc := <-p.idle:
			if time.Since(pc.lastUsedAt) > p.cfg.IdleTimeout {
				p.logger.Debug("reaping idle connection",
					"idle", time.Since(pc.lastUsedAt).String())
				p.discard(ctx, pc)
				continue
			}
			// Still fresh; put it back and stop scanning.
			select {
			case p.idle <- pc:
			default:
				p.discard(ctx, pc)
			}
			return
		default:
			return
		}
	}
}

// Close shuts the maintenance loop down and closes every idle connection.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.maintCancel()
	_ = p.maintGroup.Wait()

	for {
		select {
		case pc := <-p.idle:
			p.discard(ctx, pc)
		default:
			return nil
		}
	}
}
