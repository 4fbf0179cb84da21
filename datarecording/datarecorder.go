// Package datarecording stores simulation records in SQL tables. Each table
// holds one flat struct type, with one column per field.
package datarecording

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a table whose columns follow the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the tables created.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectMySQL
)

const defaultBatchSize = 100000

// New creates a DataRecorder that writes into a new SQLite file named
// path.sqlite3. An empty path picks a unique name.
func New(path string) DataRecorder {
	if path == "" {
		path = "bobsim_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		log.Panicf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		log.Panic(err)
	}

	log.Printf("Database created for recording: %s\n", filename)

	return newSQLWriter(db, dialectSQLite)
}

// NewWithDB creates a DataRecorder that writes into an open SQLite database.
func NewWithDB(db *sql.DB) DataRecorder {
	return newSQLWriter(db, dialectSQLite)
}

func newSQLWriter(db *sql.DB, d dialect) *sqlWriter {
	w := &sqlWriter{
		DB:        db,
		dialect:   d,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqlWriter buffers entries and writes them in batches.
type sqlWriter struct {
	*sql.DB

	dialect    dialect
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (w *sqlWriter) columnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Float32, reflect.Float64:
		if w.dialect == dialectMySQL {
			return "DOUBLE"
		}

		return "REAL"
	case reflect.String:
		if w.dialect == dialectMySQL {
			return "VARCHAR(255)"
		}

		return "TEXT"
	case reflect.Uint, reflect.Uint64:
		if w.dialect == dialectMySQL {
			return "BIGINT UNSIGNED"
		}

		return "INTEGER"
	case reflect.Bool:
		return "BOOLEAN"
	}

	if w.dialect == dialectMySQL {
		return "BIGINT"
	}

	return "INTEGER"
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("entry %T is not a struct", entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s of %s is not exported",
				field.Name, t.Name())
		}

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s of %s has unsupported type %s",
				field.Name, t.Name(), field.Type)
		}
	}

	return nil
}

func (w *sqlWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		log.Panic(err)
	}

	if _, exists := w.tables[tableName]; exists {
		log.Panicf("table %s already exists", tableName)
	}

	names := structs.Names(sampleEntry)
	t := reflect.TypeOf(sampleEntry)

	columns := make([]string, len(names))
	for i, name := range names {
		columns[i] = name + " " + w.columnType(t.Field(i).Type.Kind())
	}

	createTableSQL := "CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(columns, ",\n\t") + "\n);"
	w.mustExecute(createTableSQL)

	w.tables[tableName] = &table{structType: t}
	w.tableOrder = append(w.tableOrder, tableName)
}

func (w *sqlWriter) InsertData(tableName string, entry any) {
	table, exists := w.tables[tableName]
	if !exists {
		log.Panicf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		log.Panicf("table %s stores %s, got %T",
			tableName, table.structType, entry)
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqlWriter) ListTables() []string {
	return append([]string(nil), w.tableOrder...)
}

func (w *sqlWriter) Flush() {
	if w.entryCount == 0 || w.closed {
		return
	}

	tx, err := w.Begin()
	if err != nil {
		log.Panic(err)
	}

	for _, tableName := range w.tableOrder {
		table := w.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		stmt, err := tx.Prepare(insertStatement(tableName, table.entries[0]))
		if err != nil {
			log.Panic(err)
		}

		for _, entry := range table.entries {
			if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
				log.Panic(err)
			}
		}

		stmt.Close()

		table.entries = nil
	}

	if err := tx.Commit(); err != nil {
		log.Panic(err)
	}

	w.entryCount = 0
}

func (w *sqlWriter) Close() error {
	w.Flush()
	w.closed = true

	return w.DB.Close()
}

func (w *sqlWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		log.Panicf("failed to execute %s: %v", query, err)
	}

	return res
}

func insertStatement(tableName string, entry any) string {
	n := structs.Names(entry)
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + tableName + " VALUES (" + strings.Join(n, ", ") + ")"
}
