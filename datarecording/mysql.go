package datarecording

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	// Need to use MySQL connections.
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/xid"
)

// MySQLCredentials locate a MySQL server.
type MySQLCredentials struct {
	Username  string
	Password  string
	IPAddress string
	Port      int
}

// CredentialsFromEnv reads the MySQL credentials from the BOBSIM_DB_USERNAME,
// BOBSIM_DB_PASSWORD, BOBSIM_DB_IP and BOBSIM_DB_PORT environment variables.
func CredentialsFromEnv() (MySQLCredentials, error) {
	c := MySQLCredentials{
		Username:  os.Getenv("BOBSIM_DB_USERNAME"),
		Password:  os.Getenv("BOBSIM_DB_PASSWORD"),
		IPAddress: os.Getenv("BOBSIM_DB_IP"),
		Port:      3306,
	}

	if c.Username == "" {
		return c, fmt.Errorf("database username is not set, " +
			"use environment variable BOBSIM_DB_USERNAME to set it")
	}

	if c.IPAddress == "" {
		c.IPAddress = "127.0.0.1"
	}

	if s := os.Getenv("BOBSIM_DB_PORT"); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil {
			return c, fmt.Errorf("invalid BOBSIM_DB_PORT %q: %w", s, err)
		}

		c.Port = port
	}

	return c, nil
}

// DSN returns the data source name of a database on the server.
func (c MySQLCredentials) DSN(dbName string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		c.Username, c.Password, c.IPAddress, c.Port, dbName)
}

// NewMySQL creates a new database on a MySQL server and returns a
// DataRecorder that writes into it. An empty name picks a unique one.
func NewMySQL(c MySQLCredentials, dbName string) DataRecorder {
	if dbName == "" {
		dbName = "bobsim_" + xid.New().String()
	}

	server, err := sql.Open("mysql", c.DSN(""))
	if err != nil {
		log.Panic(err)
	}

	if _, err := server.Exec("CREATE DATABASE " + dbName); err != nil {
		log.Panic(err)
	}

	server.Close()

	db, err := sql.Open("mysql", c.DSN(dbName))
	if err != nil {
		log.Panic(err)
	}

	log.Printf("Database created for recording: %s\n", dbName)

	return newSQLWriter(db, dialectMySQL)
}
