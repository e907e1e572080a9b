// Package output renders command results as a table, JSON or YAML.
//
// Tables are meant for people; JSON and YAML keep every field and are meant
// for scripts. A value can control its own table layout by implementing
// Tabular.
package output
