// Package credstore provides the key-value credential store shared by the
// authentication and authorization components. All cached entities live
// behind the Store interface so the persistence mechanism (memory, secure
// cookie) can be swapped without touching the callers.
package credstore

import (
	"encoding/json"

	"github.com/go-playground/errors/v5"
)

// Key identifies a cached entity.
type Key string

func (k Key) String() string {
	return string(k)
}

const (
	// KeyAuthConfig holds the auth-method configuration snapshot.
	KeyAuthConfig Key = "auth_config"

	// KeyToken holds the bearer token string for local authentication.
	KeyToken Key = "local_jwt_token"

	// KeyClaims holds the decoded claims of the local token.
	KeyClaims Key = "local_user_data"

	// KeyUserInfo holds the authorization snapshot fetched from the backend.
	KeyUserInfo Key = "informacion_usuario"

	// KeyPermissionCodes holds the denormalized permission code list.
	KeyPermissionCodes Key = "permisos_usuario"

	// KeyAttemptedURL records the last URL denied by the route gate.
	KeyAttemptedURL Key = "attempted_url"
)

// Store is flat key-value persistence for cached credentials. Writers
// replace values whole; readers receive copies and must not assume a value
// written by another component is still present on the next read.
type Store interface {
	Get(key Key) ([]byte, bool)
	Set(key Key, value []byte)
	Delete(key Key)
	Clear()
}

// Watcher is implemented by stores that publish mutation events.
type Watcher interface {
	Subscribe() (<-chan Key, func())
}

// SetJSON marshals v and stores it under key.
func SetJSON(s Store, key Key, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "json.Marshal() for key %s", key)
	}
	s.Set(key, b)

	return nil
}

// GetJSON reads key and unmarshals it into v. The second return is false
// when the key is absent.
func GetJSON(s Store, key Key, v any) (bool, error) {
	b, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, errors.Wrapf(err, "json.Unmarshal() for key %s", key)
	}

	return true, nil
}
