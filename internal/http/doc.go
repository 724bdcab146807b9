// Package http exposes the scheduler services over a JSON API built on gin.
//
// Routes live under /api/v1. Sessions are created with POST /sessions and
// carried either as a Bearer token or in the session_token cookie. Every
// route except login, logout and registration requires a session; booking
// creation and statistics also require the manager role.
//
// Errors are returned as {"error_code","message","errors"} where error_code is
// the upper-cased application error kind and errors maps request fields to
// localized messages. Request and response DTOs live in dto.go and alongside
// the handlers that decode them.
package http
