// Package http exposes the assistant over HTTP: the streaming chat endpoint,
// CRUD over saved plans and a handful of operational routes.
package http
