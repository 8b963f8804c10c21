// Package server exposes the processor API over HTTP.
//
// Every endpoint under /processor responds with the same envelope shape:
// a status string (success, failure, validation_error, not_found), an
// optional message, payload data, and error details. Envelope statuses map
// onto HTTP 200, 400, 422 and 404.
//
// The listener is either plain TCP or a tsnet node on a tailnet; shutdown
// drains HTTP before fanning out worker stops through the registry.
package server
