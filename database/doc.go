// Package database provides the document store boundary used by repositories:
// the Database Factory, MongoDB and SQL (Bun) collection adapters, connection
// managers, configuration, logging, query hooks, metrics and index definitions.
package database
