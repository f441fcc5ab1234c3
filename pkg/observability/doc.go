/*
Package observability turns engine lifecycle hooks into logs and Prometheus
metrics.

LoggingHooks writes one structured line per transition. Metrics registers
session, step and record counters plus a session duration histogram, and
exposes them through Handler for the /metrics endpoint.
*/
package observability
