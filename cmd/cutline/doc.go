// Command cutline is the command-line front end of the editing core.
//
// It imports media through the acquisition schedulers, records results in
// the SQLite catalog, lists catalog contents, manages the configuration
// file and runs environment checks.
package main
