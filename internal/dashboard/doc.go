// Package dashboard streams operational snapshots to connected operator
// clients over WebSocket. A hub fans one broadcast out to every client;
// slow clients are dropped rather than allowed to stall the loop.
package dashboard
