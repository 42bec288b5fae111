// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. Afterwards the following kinds
// are available to storage.New:
//
//   - "postgres" (songplays/internal/storage/postgres)
//   - "mssql"    (songplays/internal/storage/mssql)
//   - "mysql"    (songplays/internal/storage/mysql)
//   - "sqlite"   (songplays/internal/storage/sqlite)
//
// A binary that needs only a subset can import the backend packages directly
// instead.
package all

import (
	_ "songplays/internal/storage/mssql"
	_ "songplays/internal/storage/mysql"
	_ "songplays/internal/storage/postgres"
	_ "songplays/internal/storage/sqlite"
)
