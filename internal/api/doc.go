// Package api contains the HTTP handlers, request/response models, and
// error mapping for the platform's REST surface. Handlers validate input,
// delegate to the service layer, and translate domain errors into sanitized
// HTTP responses; middleware lives in the middleware subpackage and shared
// response plumbing in shared.
package api
