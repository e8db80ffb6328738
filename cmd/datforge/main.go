// Command datforge synthesizes test data for relational schemas.
//
// A schema document declares relations, their keys and foreign keys, and
// how many rows to generate. datforge builds a database instance in which
// every foreign key is satisfied, then writes it as facts or text, loads
// it into PostgreSQL, MySQL or SQLite, or publishes it to an object store.
//
// Usage:
//
//	datforge [flags] <command>
//
// Run configuration (sinks, credentials, logging) comes from datforge.yaml,
// discovered upward from the working directory, and DATFORGE_* variables.
package main

func main() {
	Execute()
}
