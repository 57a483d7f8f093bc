/*
Package metrics provides Prometheus metrics collection and exposition
for mutgosd: entity/site gauges sampled on a ticker by Collector, plus
counters and histograms updated inline by pkg/updatemgr,
pkg/permission, pkg/clientmsg, and pkg/channel as they operate
(pkg/dbaccess supplies the Collector's site inventory). Also
hosts the /health, /ready, and /live HTTP handlers used by the process
supervisor.
*/
package metrics
