// Package anomaly implements statistical outlier detection over metric
// series: a fixed-capacity sample window with incrementally maintained
// moments, z-score scoring against the window, and a least-squares trend
// estimate. It makes no claims beyond the statistics.
package anomaly
