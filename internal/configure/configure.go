// Package configure implements the interactive wizard that writes the env
// file read at startup.
package configure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pgschema "github.com/pazars/postgres-context-server"
)

// Env keys written by the wizard, matching the env tags of pgschema.Config.
const (
	keyPoolMaxConns          = "PGSCHEMA_POOL_MAX_CONNS"
	keyPoolMinConns          = "PGSCHEMA_POOL_MIN_CONNS"
	keyPoolMaxConnLifetime   = "PGSCHEMA_POOL_MAX_CONN_LIFETIME"
	keyPoolMaxConnIdleTime   = "PGSCHEMA_POOL_MAX_CONN_IDLE_TIME"
	keyPoolHealthCheckPeriod = "PGSCHEMA_POOL_HEALTH_CHECK_PERIOD"
	keyQueryTimeout          = "PGSCHEMA_QUERY_TIMEOUT"
	keyCompletionTimeout     = "PGSCHEMA_QUERY_COMPLETION_TIMEOUT"
	keyLogLevel              = "PGSCHEMA_LOG_LEVEL"
	keyLogFormat             = "PGSCHEMA_LOG_FORMAT"
	keyLogOutput             = "PGSCHEMA_LOG_OUTPUT"
)

// ErrInputClosed is returned when input ends before a required value is given.
var ErrInputClosed = errors.New("input closed before all required values were entered")

// PasswordReader reads a password without echoing it.
type PasswordReader func() (string, error)

// Run runs the interactive configuration wizard.
// Reads the existing env file (if any), prompts for each setting,
// writes the updated file to envPath. readPassword may be nil, in which
// case the password is read as a normal input line.
func Run(envPath string, readPassword PasswordReader) error {
	return run(envPath, os.Stdin, os.Stderr, readPassword)
}

// connection holds the parts DATABASE_URL is assembled from.
type connection struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
	SSLMode  string
}

func run(envPath string, input io.Reader, output io.Writer, readPassword PasswordReader) error {
	values, isNew := loadExisting(envPath)
	conn := parseConnection(values[pgschema.DatabaseURLEnv])
	if isNew {
		conn.SSLMode = "prefer"
	}
	applyDefaults(values, &conn)

	p := &prompter{
		scanner: bufio.NewScanner(input),
		output:  output,
		isNew:   isNew,
	}

	fmt.Fprintf(output, "postgres-context-server configuration wizard\n")
	fmt.Fprintf(output, "Env file: %s\n\n", envPath)

	// Connection
	fmt.Fprintf(output, "=== Connection ===\n")
	conn.Host = p.promptString("host", conn.Host)
	conn.Port = p.promptPositiveInt("port", conn.Port, "must be > 0")
	dbname, err := p.promptRequired("dbname", conn.DBName)
	if err != nil {
		return err
	}
	conn.DBName = dbname
	conn.User = p.promptString("user", conn.User)
	conn.Password = p.promptSecret("password", conn.Password, readPassword)
	conn.SSLMode = p.promptEnum("sslmode", conn.SSLMode, sslModes)
	values[pgschema.DatabaseURLEnv] = conn.URL()

	// Pool
	fmt.Fprintf(output, "\n=== Pool ===\n")
	setInt(values, keyPoolMaxConns, p.promptPositiveInt("pool.max_conns", intValue(values, keyPoolMaxConns), "must be > 0"))
	setInt(values, keyPoolMinConns, p.promptNonNegativeInt("pool.min_conns", intValue(values, keyPoolMinConns), "must be >= 0"))
	setOptional(values, keyPoolMaxConnLifetime, p.promptDuration("pool.max_conn_lifetime", values[keyPoolMaxConnLifetime], "Go duration: e.g. 1h, 30m, empty = driver default"))
	setOptional(values, keyPoolMaxConnIdleTime, p.promptDuration("pool.max_conn_idle_time", values[keyPoolMaxConnIdleTime], "Go duration: e.g. 30m, empty = driver default"))
	setOptional(values, keyPoolHealthCheckPeriod, p.promptDuration("pool.health_check_period", values[keyPoolHealthCheckPeriod], "Go duration: e.g. 1m, empty = driver default"))

	// Query
	fmt.Fprintf(output, "\n=== Query ===\n")
	setOptional(values, keyQueryTimeout, p.promptDuration("query.timeout", values[keyQueryTimeout], "Go duration, 0 = no deadline"))
	setOptional(values, keyCompletionTimeout, p.promptDuration("query.completion_timeout", values[keyCompletionTimeout], "Go duration, 0 = no deadline"))

	// Logging
	fmt.Fprintf(output, "\n=== Logging ===\n")
	values[keyLogLevel] = p.promptEnum("logging.level", values[keyLogLevel], logLevels)
	values[keyLogFormat] = p.promptEnum("logging.format", values[keyLogFormat], logFormats)
	values[keyLogOutput] = p.promptLogOutput(values[keyLogOutput])

	if err := writeEnvFile(envPath, values); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}

	fmt.Fprintf(output, "\nConfiguration saved to %s\n", envPath)
	return nil
}

func loadExisting(envPath string) (map[string]string, bool) {
	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}, true
	}
	return values, false
}

var defaults = map[string]string{
	keyPoolMaxConns:      "5",
	keyPoolMinConns:      "0",
	keyQueryTimeout:      "30s",
	keyCompletionTimeout: "5s",
	keyLogLevel:          "info",
	keyLogFormat:         "json",
	keyLogOutput:         "stderr",
}

// applyDefaults fills in every setting the env file leaves unset.
func applyDefaults(values map[string]string, conn *connection) {
	if conn.Host == "" {
		conn.Host = "localhost"
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}
	for key, v := range defaults {
		if _, ok := values[key]; !ok {
			values[key] = v
		}
	}
}

var (
	sslModes   = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// parseConnection splits a URL-form connection string into its parts.
// Anything else yields an empty connection.
func parseConnection(connString string) connection {
	u, err := url.Parse(connString)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return connection{}
	}
	conn := connection{
		Host:    u.Hostname(),
		DBName:  strings.TrimPrefix(u.Path, "/"),
		SSLMode: u.Query().Get("sslmode"),
	}
	if port, err := strconv.Atoi(u.Port()); err == nil {
		conn.Port = port
	}
	if u.User != nil {
		conn.User = u.User.Username()
		conn.Password, _ = u.User.Password()
	}
	return conn
}

// URL assembles the connection string.
func (c connection) URL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.DBName,
	}
	switch {
	case c.User != "" && c.Password != "":
		u.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

func intValue(values map[string]string, key string) int {
	n, _ := strconv.Atoi(values[key])
	return n
}

func setInt(values map[string]string, key string, n int) {
	values[key] = strconv.Itoa(n)
}

// setOptional stores v, or removes key when v is empty.
func setOptional(values map[string]string, key, v string) {
	if v == "" {
		delete(values, key)
		return
	}
	values[key] = v
}

// writeEnvFile writes values with owner-only permissions since the file
// holds the database password.
func writeEnvFile(envPath string, values map[string]string) error {
	dir := filepath.Dir(envPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal env file: %w", err)
	}

	if err := os.WriteFile(envPath, []byte(content+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", envPath, err)
	}
	return nil
}

// prompter handles reading user input and displaying prompts.
type prompter struct {
	scanner *bufio.Scanner
	output  io.Writer
	isNew   bool
	closed  bool
}

func (p *prompter) readLine() string {
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	p.closed = true
	return ""
}

func (p *prompter) valueLabel() string {
	if p.isNew {
		return "default"
	}
	return "current"
}

func (p *prompter) promptString(field string, current string) string {
	fmt.Fprintf(p.output, "%s (%s: %q): ", field, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptRequired(field string, current string) (string, error) {
	for {
		fmt.Fprintf(p.output, "%s [required] (%s: %q): ", field, p.valueLabel(), current)
		input := p.readLine()
		if input != "" {
			return input, nil
		}
		if current != "" {
			return current, nil
		}
		if p.closed {
			return "", fmt.Errorf("%s: %w", field, ErrInputClosed)
		}
		fmt.Fprintf(p.output, "  Value is required, try again.\n")
	}
}

// promptSecret never echoes the current value.
func (p *prompter) promptSecret(field string, current string, readPassword PasswordReader) string {
	label := "not set"
	if current != "" {
		label = "set, empty keeps it"
	}
	fmt.Fprintf(p.output, "%s (%s): ", field, label)
	var input string
	if readPassword != nil {
		secret, err := readPassword()
		fmt.Fprintln(p.output) // newline after password input
		if err != nil {
			return current
		}
		input = secret
	} else {
		input = p.readLine()
	}
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptPositiveInt(field string, current int, hint string) int {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %d): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return val
	}
}

func (p *prompter) promptNonNegativeInt(field string, current int, hint string) int {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %d): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val < 0 {
			fmt.Fprintf(p.output, "  Value must be >= 0, try again.\n")
			continue
		}
		return val
	}
}

// promptDuration accepts "-" to clear the current value.
func (p *prompter) promptDuration(field string, current string, hint string) string {
	for {
		fmt.Fprintf(p.output, "%s [%s, - to clear] (%s: %q): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		switch input {
		case "":
			return current
		case "-":
			return ""
		}
		d, err := time.ParseDuration(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid Go duration %q, try again.\n", input)
			continue
		}
		if d < 0 {
			fmt.Fprintf(p.output, "  Duration must be >= 0, try again.\n")
			continue
		}
		return input
	}
}

func (p *prompter) promptEnum(field string, current string, allowed []string) string {
	for {
		fmt.Fprintf(p.output, "%s (%s: %q, options: %s): ", field, p.valueLabel(), current, strings.Join(allowed, ", "))
		input := p.readLine()
		if input == "" {
			return current
		}
		for _, v := range allowed {
			if input == v {
				return input
			}
		}
		fmt.Fprintf(p.output, "  Invalid value %q, must be one of: %s\n", input, strings.Join(allowed, ", "))
	}
}

// promptLogOutput rejects stdout, which carries the MCP stream.
func (p *prompter) promptLogOutput(current string) string {
	for {
		fmt.Fprintf(p.output, "logging.output [stderr or file path] (%s: %q): ", p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		if input == "stdout" {
			fmt.Fprintf(p.output, "  stdout carries the MCP stream, choose stderr or a file path.\n")
			continue
		}
		return input
	}
}
