package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/structs"
	"github.com/go-sql-driver/mysql"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// MySQLConfig locates the MySQL server that stores a trace.
type MySQLConfig struct {
	Username string
	Password string
	Host     string
	Port     int
}

// SQLTraceWriter writes events into the trace table of a SQL database. The
// events are buffered and written in batches.
type SQLTraceWriter struct {
	*sql.DB

	lock      sync.Mutex
	driver    string
	dbName    string
	mysqlCfg  MySQLConfig
	statement *sql.Stmt
	pending   []Event
	batchSize int
}

// NewSQLiteTraceWriter creates a writer that stores the trace in the SQLite
// file path.sqlite3. If the path is empty, a unique name is generated.
func NewSQLiteTraceWriter(path string) *SQLTraceWriter {
	w := &SQLTraceWriter{
		driver:    "sqlite3",
		dbName:    path,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// NewMySQLTraceWriter creates a writer that stores the trace in a new
// database on a MySQL server.
func NewMySQLTraceWriter(cfg MySQLConfig) *SQLTraceWriter {
	if cfg.Username == "" {
		panic("trace username is not set")
	}

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	if cfg.Port == 0 {
		cfg.Port = 3306
	}

	w := &SQLTraceWriter{
		driver:    "mysql",
		mysqlCfg:  cfg,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// SetBatchSize sets the number of events buffered before they are written.
func (t *SQLTraceWriter) SetBatchSize(n int) {
	if n <= 0 {
		panic("batch size must be positive")
	}

	t.batchSize = n
}

// DBName returns the name of the database. It is known after Init.
func (t *SQLTraceWriter) DBName() string {
	return t.dbName
}

// Init establishes a connection to the database and creates the table.
func (t *SQLTraceWriter) Init() {
	if t.dbName == "" {
		t.dbName = "ttcnport_trace_" + xid.New().String()
	}

	switch t.driver {
	case "sqlite3":
		t.createSQLiteDatabase()
	case "mysql":
		t.createMySQLDatabase()
	default:
		panic(fmt.Sprintf("unknown trace driver %s", t.driver))
	}

	t.createTable()
	t.prepareStatement()
}

func (t *SQLTraceWriter) createSQLiteDatabase() {
	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Trace is Collected in Database: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func (t *SQLTraceWriter) mysqlDSN(dbName string) string {
	cfg := mysql.NewConfig()
	cfg.User = t.mysqlCfg.Username
	cfg.Passwd = t.mysqlCfg.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", t.mysqlCfg.Host, t.mysqlCfg.Port)
	cfg.DBName = dbName

	return cfg.FormatDSN()
}

func (t *SQLTraceWriter) createMySQLDatabase() {
	server, err := sql.Open("mysql", t.mysqlDSN(""))
	if err != nil {
		panic(err)
	}

	_, err = server.Exec("CREATE DATABASE " + t.dbName)
	if err != nil {
		panic(err)
	}

	err = server.Close()
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Trace is Collected in Database: %s\n", t.dbName)

	db, err := sql.Open("mysql", t.mysqlDSN(t.dbName))
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func eventColumns() []string {
	fields := structs.New(Event{}).Fields()

	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, f.Tag("db"))
	}

	return columns
}

func (t *SQLTraceWriter) createTable() {
	columns := eventColumns()

	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, c+" varchar(200) not null default ''")
	}

	t.mustExecute(
		"create table trace (" + strings.Join(defs, ", ") + ")")
	t.mustExecute("create index trace_location_index on trace (location)")
	t.mustExecute("create index trace_pos_index on trace (pos)")
	t.mustExecute("create index trace_id_index on trace (id)")
}

func (t *SQLTraceWriter) prepareStatement() {
	columns := eventColumns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	sqlStr := "INSERT INTO trace (" + strings.Join(columns, ", ") +
		") VALUES (" + placeholders + ")"

	stmt, err := t.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	t.statement = stmt
}

// Record buffers an event. The buffer is flushed when it is full.
func (t *SQLTraceWriter) Record(e Event) {
	t.lock.Lock()
	t.pending = append(t.pending, e)
	full := len(t.pending) >= t.batchSize
	t.lock.Unlock()

	if full {
		t.Flush()
	}
}

// Flush writes all the buffered events to the database.
func (t *SQLTraceWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.pending) == 0 || t.DB == nil {
		return
	}

	tx, err := t.Begin()
	if err != nil {
		panic(err)
	}

	stmt := tx.Stmt(t.statement)
	for _, e := range t.pending {
		_, err := stmt.Exec(structs.Values(e)...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to insert event: %+v\n", e)
			panic(err)
		}
	}

	err = tx.Commit()
	if err != nil {
		panic(err)
	}

	t.pending = nil
}

// Close flushes the buffered events and closes the database.
func (t *SQLTraceWriter) Close() {
	t.Flush()

	if t.DB == nil {
		return
	}

	err := t.DB.Close()
	if err != nil {
		panic(err)
	}
}

func (t *SQLTraceWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

var _ TraceWriter = (*SQLTraceWriter)(nil)
