// Package runtime implements §5's concurrency and resource model: a
// single process-wide Runtime holding shared immutable references to
// storage, the catalog, and the function registry, plus a
// connection_id->Connection map an external wire-protocol front-end
// drives one statement at a time. Grounded on the teacher's
// "small struct wrapping a handle, behind a mutex where state is shared"
// idiom (internal/catalog.Catalog's own sync.RWMutex-guarded tables map),
// generalized from catalog metadata to per-connection session state.
package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"incresql/internal/ast"
	"incresql/internal/catalog"
	"incresql/internal/executor"
	"incresql/internal/functions"
	"incresql/internal/planner"
	"incresql/internal/storage"
)

// Runtime is the process-wide shared state (§5: "Init during Runtime::new;
// teardown when the runtime drops. No lazy global singletons.").
type Runtime struct {
	Store    *storage.Store
	Catalog  *catalog.Catalog
	Registry *functions.Registry
	Logger   *zap.Logger

	nextConnID int64

	mu          sync.RWMutex
	connections map[int64]*Connection
}

// Open builds a Runtime over a storage directory: opens the pebble store,
// bootstraps the catalog's system tables, and constructs the process-wide
// function registry.
func Open(dir string, logger *zap.Logger) (*Runtime, error) {
	store, err := storage.Open(dir)
	if err != nil {
		return nil, errors.Wrap(err, "runtime: open storage")
	}
	cat, err := catalog.Open(store)
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "runtime: open catalog")
	}
	return &Runtime{
		Store:       store,
		Catalog:     cat,
		Registry:    functions.NewRegistry(),
		Logger:      logger,
		connections: map[int64]*Connection{},
	}, nil
}

func (r *Runtime) Close() error {
	return r.Store.Close()
}

// NewConnection assigns the next monotonically increasing connection_id
// and registers it in the runtime's connection map (§5's connection
// lifecycle).
func (r *Runtime) NewConnection(user string) *Connection {
	id := atomic.AddInt64(&r.nextConnID, 1)
	conn := &Connection{
		id:              id,
		runtime:         r,
		currentDatabase: "incresql",
		user:            user,
	}
	r.mu.Lock()
	r.connections[id] = conn
	r.mu.Unlock()
	return conn
}

// closeConnection removes a connection from the runtime's map (§5: "dropping the
// last strong reference to a connection removes it from the runtime map").
func (r *Runtime) closeConnection(id int64) {
	r.mu.Lock()
	delete(r.connections, id)
	r.mu.Unlock()
}

// KillConnection sets the target connection's cooperative cancellation
// flag, if it is still live. Best-effort: Execute checks Killed() before
// each statement; a statement already running is not interrupted (§5, §9
// open question).
func (r *Runtime) KillConnection(id int64) bool {
	r.mu.RLock()
	conn, ok := r.connections[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	conn.kill()
	return true
}

// ConnectionCount reports how many connections the runtime currently
// tracks, mainly for diagnostics/tests.
func (r *Runtime) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Connection is one client session: its own mutable state, running
// statements to completion on the calling goroutine (§5: "queries execute
// single-threaded per connection... each connection owns its own mutable
// session and runs its statement to completion on the calling thread").
// Session fields are held behind their own mutex so another goroutine
// (e.g. a `SHOW PROCESSLIST`-style operator) can observe them (§5).
type Connection struct {
	id      int64
	runtime *Runtime

	mu              sync.RWMutex
	currentDatabase string
	user            string

	killed atomic.Bool
}

func (c *Connection) ID() int64 { return c.id }

func (c *Connection) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Connection) CurrentDatabase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentDatabase
}

func (c *Connection) SetCurrentDatabase(db string) {
	c.mu.Lock()
	c.currentDatabase = db
	c.mu.Unlock()
}

func (c *Connection) kill() { c.killed.Store(true) }

// Killed reports whether an operator (kill_connection) has requested this
// connection's in-flight statement stop; Execute checks it before each
// statement, and executor loops do not check it (§5).
func (c *Connection) Killed() bool { return c.killed.Load() }

var ErrKilled = errors.New("runtime: connection killed")

// Close removes this connection from its runtime's tracking map.
func (c *Connection) Close() { c.runtime.closeConnection(c.id) }

// Row is one result row together with its signed frequency, the shape
// every statement's result set is rendered from.
type Row struct {
	Values []any
	Freq   int64
}

// Execute parses, plans, and runs one or more ;-separated SQL statements
// against the connection's current database, returning the last
// statement's result rows (§5's "statement dispatch": parse via the
// text->AST boundary spec.md leaves external, here served in-process by
// internal/ast.Adapter, then Planner.Plan, then executor.Build).
func (c *Connection) Execute(sql string) ([]Row, error) {
	adapter := ast.NewAdapter(c.runtime.Catalog)
	ops, err := adapter.ParseStatements(sql, c.CurrentDatabase())
	if err != nil {
		return nil, err
	}

	pl := planner.New(c.runtime.Catalog, c.runtime.Registry)
	var rows []Row
	for _, logical := range ops {
		if c.Killed() {
			return nil, ErrKilled
		}
		if logical.Kind == ast.LogicalUse {
			c.SetCurrentDatabase(logical.Alias)
			rows = nil
			continue
		}
		folding := &planner.FoldingSession{}
		physical, err := pl.Plan(logical, folding)
		if err != nil {
			return nil, err
		}
		iter, err := executor.Build(&physical, c.runtime.Store)
		if err != nil {
			return nil, err
		}
		rows, err = drainRows(iter)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func drainRows(it executor.TupleIter) ([]Row, error) {
	var rows []Row
	for {
		row, freq, ok, err := executor.Next(it)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		values := make([]any, len(row))
		for i, d := range row {
			values[i] = d
		}
		rows = append(rows, Row{Values: values, Freq: freq})
	}
	return rows, nil
}
