package tracing

import (
	"database/sql"
	"strings"
)

// EventQuery selects the events to read. Empty fields match everything.
type EventQuery struct {
	Where   string
	Pos     string
	TypeTag string
	ID      string
}

// SQLiteTraceReader is a reader that reads trace data from a SQLite database.
type SQLiteTraceReader struct {
	*sql.DB

	filename string
}

// NewSQLiteTraceReader creates a new SQLiteTraceReader.
func NewSQLiteTraceReader(filename string) *SQLiteTraceReader {
	r := &SQLiteTraceReader{
		filename: filename,
	}

	return r
}

// Init establishes a connection to the database.
func (r *SQLiteTraceReader) Init() {
	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		panic(err)
	}

	r.DB = db
}

// ListLocations returns the names of the domains that have events.
func (r *SQLiteTraceReader) ListLocations() []string {
	rows, err := r.Query("SELECT DISTINCT location FROM trace ORDER BY location")
	if err != nil {
		panic(err)
	}
	defer mustClose(rows)

	var locations []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			panic(err)
		}

		locations = append(locations, l)
	}

	return locations
}

// ListEvents returns the events that match the query, in insertion order.
func (r *SQLiteTraceReader) ListEvents(query EventQuery) []Event {
	sqlStr := "SELECT " + strings.Join(eventColumns(), ", ") +
		" FROM trace WHERE 1=1"

	var args []any

	addCondition := func(column, value string) {
		if value == "" {
			return
		}

		sqlStr += " AND " + column + " = ?"
		args = append(args, value)
	}

	addCondition("location", query.Where)
	addCondition("pos", query.Pos)
	addCondition("type_tag", query.TypeTag)
	addCondition("id", query.ID)

	sqlStr += " ORDER BY rowid"

	rows, err := r.Query(sqlStr, args...)
	if err != nil {
		panic(err)
	}
	defer mustClose(rows)

	events := []Event{}
	for rows.Next() {
		e := Event{}

		err := rows.Scan(&e.ID, &e.Where, &e.Pos, &e.TypeTag, &e.Sender, &e.Detail)
		if err != nil {
			panic(err)
		}

		events = append(events, e)
	}

	return events
}

// CountByPos returns the number of events per hook position, the most
// frequent first.
func (r *SQLiteTraceReader) CountByPos() []PosCount {
	rows, err := r.Query(
		"SELECT pos, COUNT(*) AS n FROM trace GROUP BY pos ORDER BY n DESC, pos")
	if err != nil {
		panic(err)
	}
	defer mustClose(rows)

	counts := []PosCount{}
	for rows.Next() {
		c := PosCount{}
		if err := rows.Scan(&c.Pos, &c.Count); err != nil {
			panic(err)
		}

		counts = append(counts, c)
	}

	return counts
}

func mustClose(rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		panic(err)
	}
}
