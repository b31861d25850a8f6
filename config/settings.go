package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/ttcnport/id"
	"github.com/sarchlab/ttcnport/tracing"
)

// The environment variables read by LoadSettings.
const (
	EnvTraceBackend  = "TTCNPORT_TRACE_BACKEND"
	EnvTraceDB       = "TTCNPORT_TRACE_DB"
	EnvTraceUsername = "TTCNPORT_TRACE_USERNAME"
	EnvTracePassword = "TTCNPORT_TRACE_PASSWORD"
	EnvTraceHost     = "TTCNPORT_TRACE_HOST"
	EnvTracePort     = "TTCNPORT_TRACE_PORT"
	EnvMonitorPort   = "TTCNPORT_MONITOR_PORT"
	EnvParallelIDs   = "TTCNPORT_PARALLEL_IDS"
)

// TraceBackend selects where traces are stored.
type TraceBackend string

// The trace backends.
const (
	TraceNone       TraceBackend = ""
	TraceSQLite     TraceBackend = "sqlite"
	TraceMySQL      TraceBackend = "mysql"
	TraceClickHouse TraceBackend = "clickhouse"
)

// Settings are the process-wide options.
type Settings struct {
	TraceBackend TraceBackend

	// TraceDB is the SQLite file name, without the .sqlite3 suffix. A name
	// is generated when it is empty.
	TraceDB string

	TraceUsername string
	TracePassword string
	TraceHost     string
	TracePort     int

	// MonitorPort is the port of the monitoring server. Zero picks a free
	// port.
	MonitorPort int

	ParallelIDs bool
}

// LoadSettings loads the given .env files into the environment and reads the
// settings from it. Without files, a .env file in the working directory is
// loaded if there is one. Variables already set are not overridden.
func LoadSettings(envFiles ...string) (Settings, error) {
	err := godotenv.Load(envFiles...)
	if err != nil && (len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return Settings{}, fmt.Errorf("loading env files: %w", err)
	}

	return SettingsFromEnv()
}

// SettingsFromEnv reads the settings from the environment.
func SettingsFromEnv() (Settings, error) {
	s := Settings{
		TraceBackend:  TraceBackend(strings.ToLower(os.Getenv(EnvTraceBackend))),
		TraceDB:       os.Getenv(EnvTraceDB),
		TraceUsername: os.Getenv(EnvTraceUsername),
		TracePassword: os.Getenv(EnvTracePassword),
		TraceHost:     os.Getenv(EnvTraceHost),
	}

	if s.TraceBackend == TraceNone && s.TraceDB != "" {
		s.TraceBackend = TraceSQLite
	}

	switch s.TraceBackend {
	case TraceNone, TraceSQLite, TraceMySQL, TraceClickHouse:
	default:
		return s, fmt.Errorf("%s: unknown trace backend %q",
			EnvTraceBackend, s.TraceBackend)
	}

	var err error

	if s.TracePort, err = intFromEnv(EnvTracePort); err != nil {
		return s, err
	}

	if s.MonitorPort, err = intFromEnv(EnvMonitorPort); err != nil {
		return s, err
	}

	if v := os.Getenv(EnvParallelIDs); v != "" {
		s.ParallelIDs, err = strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvParallelIDs, err)
		}
	}

	return s, nil
}

func intFromEnv(name string) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	return n, nil
}

// Apply installs the parallel ID generator if it is selected. It must be
// called before any port is built.
func (s Settings) Apply() {
	if s.ParallelIDs {
		id.UseParallelIDGenerator()
	}
}

// TraceWriter creates the trace writer of the selected backend. It returns
// nil when tracing is off. The writer is not initialized.
func (s Settings) TraceWriter() tracing.TraceWriter {
	switch s.TraceBackend {
	case TraceSQLite:
		return tracing.NewSQLiteTraceWriter(s.TraceDB)
	case TraceMySQL:
		return tracing.NewMySQLTraceWriter(tracing.MySQLConfig{
			Username: s.TraceUsername,
			Password: s.TracePassword,
			Host:     s.TraceHost,
			Port:     s.TracePort,
		})
	case TraceClickHouse:
		return tracing.NewClickHouseTraceWriter(tracing.ClickHouseConfig{
			Host:     s.TraceHost,
			Port:     s.TracePort,
			Username: s.TraceUsername,
			Password: s.TracePassword,
		})
	default:
		return nil
	}
}
