package vfs

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// go-sqlite3 only exposes VFS interception through cgo-level
// sqlite3_vfs_register, which this module does not link against. What
// it does expose in pure Go is sqlite3.SQLiteDriver's ConnectHook, fired
// once per new connection with the concrete *sqlite3.SQLiteConn. That is
// the extension point this file actually exercises: every database/sql
// connection opened against a registered name gets its container path
// recorded so the rest of the package can correlate a live SQLite
// connection with the cartridge path backing it, even though the bytes
// themselves still flow through the OS file sqlite3 opened directly.
var (
	driverMu       sync.Mutex
	registeredName int
)

// connTracker records, for each *sqlite3.SQLiteConn seen by a
// ConnectHook, which cartridge-backed path it was opened against.
type connTracker struct {
	mu    sync.Mutex
	paths map[*sqlite3.SQLiteConn]string
}

var tracker = &connTracker{paths: make(map[*sqlite3.SQLiteConn]string)}

// RegisterSQLiteDriver registers a uniquely-named "sqlite3" driver
// variant whose ConnectHook tags every new connection with vfsPath, and
// returns the driver name to pass to sql.Open. Callers wanting the
// connection's bytes to actually live inside a cartridge container still
// need to route SQLite's own file I/O at the OS level (e.g. mounting the
// container through a FUSE layer); this registration only gives
// call sites a way to correlate a sqlite3 connection with the cartridge
// path it logically belongs to.
func RegisterSQLiteDriver(vfsPath string) (string, error) {
	driverMu.Lock()
	registeredName++
	name := fmt.Sprintf("cartridge-sqlite3-%d", registeredName)
	driverMu.Unlock()

	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			tracker.mu.Lock()
			tracker.paths[conn] = vfsPath
			tracker.mu.Unlock()
			return nil
		},
	})
	return name, nil
}

// PathForConn returns the cartridge path a sqlite3 connection was
// tagged with by RegisterSQLiteDriver's ConnectHook, if any.
func PathForConn(conn driver.Conn) (string, bool) {
	sc, ok := conn.(*sqlite3.SQLiteConn)
	if !ok {
		return "", false
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	path, ok := tracker.paths[sc]
	return path, ok
}
