// Package datasource is the SQL-backed external data client scripts reach
// through db.query and db.insert.
//
// Tables and filters come from user scripts, so every identifier is checked
// against a strict pattern and values always travel as bind parameters.
package datasource
