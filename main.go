package main

import (
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/datastore/cmd"
)

func main() {
	cmd.Execute()
}
