package handlers

const (
	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests, please slow down"
	ErrNotReady            = "Server is starting up"

	maxBodyBytes = 1 << 20
)
