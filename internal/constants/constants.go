package constants

// Session and context keys
const (
	SessionKeyUserName = "user_name"
	ContextKeyCaller   = "caller"
)

// ProjectHeader selects the current project of a request. Requests
// without it work in the online project.
const ProjectHeader = "X-Broker-Project"

// DefaultSessionCookieName is used when the configuration leaves it empty.
const DefaultSessionCookieName = "broker_session"

// Pagination bounds for list endpoints
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 500
)
