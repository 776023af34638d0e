package protocol

// Rejection codes. Clients never see these; the server uses them to classify
// silently dropped input in logs and metrics.
const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"

	// Rule layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNotJoined     = "E_NOT_JOINED"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrStale         = "E_STALE"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrRateLimit:       {},
	ErrBadRequest:      {},
	ErrNotJoined:       {},
	ErrInvalidTarget:   {},
	ErrStale:           {},
}

// KnownCodes returns the codes in a stable order.
func KnownCodes() []string {
	return []string{ErrProtoBadRequest, ErrRateLimit, ErrBadRequest, ErrNotJoined, ErrInvalidTarget, ErrStale}
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
