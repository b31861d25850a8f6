package tracing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ClickHouseConfig locates the ClickHouse server that stores a trace.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// ClickHouseTraceWriter writes events into a new ClickHouse database using
// the native protocol and batch inserts.
type ClickHouseTraceWriter struct {
	conn      clickhouse.Conn
	cfg       ClickHouseConfig
	lock      sync.Mutex
	dbName    string
	pending   []Event
	batchSize int
}

// NewClickHouseTraceWriter creates a new ClickHouseTraceWriter.
func NewClickHouseTraceWriter(cfg ClickHouseConfig) *ClickHouseTraceWriter {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	if cfg.Port == 0 {
		cfg.Port = 9000
	}

	if cfg.Username == "" {
		cfg.Username = "default"
	}

	w := &ClickHouseTraceWriter{
		cfg:       cfg,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// DBName returns the name of the database. It is known after Init.
func (t *ClickHouseTraceWriter) DBName() string {
	return t.dbName
}

// Init connects to the server and creates the database and the table.
func (t *ClickHouseTraceWriter) Init() {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: t.cfg.Username,
			Password: t.cfg.Password,
		},
		DialTimeout:  time.Second * 30,
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	t.conn = conn
	t.dbName = "ttcnport_trace_" + xid.New().String()
	fmt.Fprintf(os.Stderr, "Trace is Collected in Database: %s\n", t.dbName)

	t.mustExecute(ctx, "CREATE DATABASE "+t.dbName)

	columns := eventColumns()
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, c+" String")
	}

	t.mustExecute(ctx, "CREATE TABLE "+t.dbName+".trace ("+
		strings.Join(defs, ", ")+
		") ENGINE = MergeTree() ORDER BY (location, pos)")
}

func (t *ClickHouseTraceWriter) mustExecute(ctx context.Context, query string) {
	if err := t.conn.Exec(ctx, query); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}
}

// Record buffers an event. The buffer is flushed when it is full.
func (t *ClickHouseTraceWriter) Record(e Event) {
	t.lock.Lock()
	t.pending = append(t.pending, e)
	full := len(t.pending) >= t.batchSize
	t.lock.Unlock()

	if full {
		t.Flush()
	}
}

// Flush sends the buffered events as one batch.
func (t *ClickHouseTraceWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.pending) == 0 || t.conn == nil {
		return
	}

	ctx := context.Background()

	batch, err := t.conn.PrepareBatch(ctx, "INSERT INTO "+t.dbName+".trace")
	if err != nil {
		panic(err)
	}

	for _, e := range t.pending {
		if err := batch.Append(structs.Values(e)...); err != nil {
			panic(err)
		}
	}

	if err := batch.Send(); err != nil {
		panic(err)
	}

	t.pending = nil
}

// Close flushes the buffered events and closes the connection.
func (t *ClickHouseTraceWriter) Close() {
	t.Flush()

	if t.conn == nil {
		return
	}

	if err := t.conn.Close(); err != nil {
		panic(err)
	}
}

var _ TraceWriter = (*ClickHouseTraceWriter)(nil)
