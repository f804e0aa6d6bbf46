package domain

// ErrorKind is a closed category assigned to a failure for retry and
// reporting decisions. It is assigned from the error's type or message,
// never from business logic.
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindRateLimit  ErrorKind = "rate_limit"
	ErrorKindParsing    ErrorKind = "parsing"
	ErrorKindFileSystem ErrorKind = "filesystem"
	ErrorKindUnknown    ErrorKind = "unknown"
)

// ErrorKinds lists every kind, in reporting order.
var ErrorKinds = []ErrorKind{
	ErrorKindNetwork,
	ErrorKindRateLimit,
	ErrorKindParsing,
	ErrorKindFileSystem,
	ErrorKindUnknown,
}
