package handler

// AuthResp exposes the unexported response type to external test packages.
type AuthResp = authResp
