package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory store instead of a file.
const MemoryPath = ":memory:"

// filePragmas apply to file stores only; an in-memory store has a single
// connection and no journal to tune. They are passed in the DSN so every
// pooled connection applies them.
var filePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

func fileDSN(path string) string {
	return path + "?" + url.Values{"_pragma": filePragmas}.Encode()
}

// OpenDB opens the local store holding pending ratings and preferences,
// creating its directory when needed, and brings the schema up to date.
func OpenDB(path string) (*sql.DB, error) {
	memory := path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	dsn := path
	if !memory {
		dsn = fileDSN(path)
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return conn, nil
}
