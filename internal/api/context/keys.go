package context

type Key string

const (
	Params    Key = "params"
	Admin     Key = "admin"
	RequestID Key = "request_id"
)
