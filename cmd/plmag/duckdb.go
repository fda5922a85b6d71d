//go:build duckdb

package main

// The duckdb catalog driver links libduckdb through cgo, so it is only
// built with -tags duckdb.
import _ "github.com/marcboeker/go-duckdb"
