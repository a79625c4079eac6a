/*
Package observability turns core lifecycle hooks into Prometheus metrics and
structured log records.
*/
package observability
