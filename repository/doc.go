// Package repository provides a generic repository over one document
// collection, with synchronous and asynchronous CRUD, query, count, grouping
// and index operations, lazy query cursors and pagination.
//
// Most reads and deletes first count the matching documents and skip the
// store call when the count is zero. The count and the following call are
// not atomic.
package repository
