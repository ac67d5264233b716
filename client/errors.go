package client

import "github.com/go-playground/errors/v5"

// Kind classifies a client failure per the system's error taxonomy.
type Kind uint8

const (
	// KindConfigFetch is a failure to reach the auth-status endpoint; the
	// resolver falls back to MethodNone.
	KindConfigFetch Kind = iota + 1
	// KindLogin covers rejected credentials and login transport failures.
	KindLogin
	// KindPermissionFetch is an authorization-call failure that leaves the
	// cached credentials untouched.
	KindPermissionFetch
	// KindTokenExpired is a 401/403 on a protected call while local auth is
	// active. It triggers the full local logout.
	KindTokenExpired
)

// Stable user-facing messages. The UI layer shows these verbatim.
const (
	msgCannotConnect      = "No se pudo conectar con el servidor"
	msgInvalidCredentials = "Credenciales inválidas"
	msgPermissionFetch    = "No se pudieron obtener los permisos del usuario"
	msgSessionExpired     = "La sesión ha expirado. Inicia sesión nuevamente"
	msgResetRejected      = "No se pudo actualizar la contraseña. Verifica que el token sea válido."
)

// Error is a classified client failure with a stable user-facing message.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, err: cause}
}

// Error implements the error interface. It includes the wrapped cause for
// logs; use Message for anything user-visible.
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}

	return e.msg
}

// Message returns the stable user-facing message.
func (e *Error) Message() string {
	return e.msg
}

// Kind returns the failure classification.
func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.err
}

// HasKind reports whether any error in err's chain is a client Error of
// kind k.
func HasKind(err error, k Kind) bool {
	cerr := &Error{}
	if errors.As(err, &cerr) {
		return cerr.kind == k
	}

	return false
}

// UserMessage returns the stable message for err, or a generic connection
// message when err carries none.
func UserMessage(err error) string {
	cerr := &Error{}
	if errors.As(err, &cerr) {
		return cerr.msg
	}

	return msgCannotConnect
}
