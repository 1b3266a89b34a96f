package db

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/jackc/pgpassfile"
)

// PgpassPath returns the platform-appropriate .pgpass file path.
// $PGPASSFILE wins when set.
func PgpassPath() string {
	if custom := os.Getenv("PGPASSFILE"); custom != "" {
		return custom
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "postgresql", "pgpass.conf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgpass")
}

// LookupPgpass returns the password of the first matching entry in the
// passfile at path, or "" when the file is missing or nothing matches.
func LookupPgpass(path, host string, port int, database, username string) string {
	if path == "" {
		return ""
	}
	pf, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return ""
	}
	return pf.FindPassword(host, strconv.Itoa(port), database, username)
}
