package docstore

import (
	// Pure-Go SQLite driver; no cgo toolchain required.
	_ "modernc.org/sqlite"
)

// driverName selects the registered SQLite driver.
const driverName = "sqlite"
