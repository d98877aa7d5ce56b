// Package service provides application-level services for tier management,
// budget accounting, and the signed audit log.
package service
