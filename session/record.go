package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Persisted key names.
const (
	KeyRecord    = "auth-storage"
	KeyToken     = "token"
	KeyUserRole  = "userRole"
	KeyUserName  = "userName"
	KeyUserEmail = "userEmail"
	KeyUserID    = "userId"
	KeyUser      = "user"
)

const recordVersionCurrent = 1

// ErrRecordCorrupt is returned when a persisted record cannot be decoded.
var ErrRecordCorrupt = errors.New("session record corrupt")

// LegacyKeys lists the discrete keys mirrored next to the structured record.
func LegacyKeys() []string {
	return []string{KeyToken, KeyUserRole, KeyUserName, KeyUserEmail, KeyUserID, KeyUser}
}

// AllKeys lists every key the store may write.
func AllKeys() []string {
	return append([]string{KeyRecord}, LegacyKeys()...)
}

type record struct {
	State   recordState `json:"state"`
	Version int         `json:"version"`
}

type recordState struct {
	Token *string `json:"token"`
	User  *User   `json:"user"`
}

// EncodeRecord serializes st as the structured record.
func EncodeRecord(st State) ([]byte, error) {
	rec := record{Version: recordVersionCurrent}
	if st.Token != "" {
		token := st.Token
		rec.State.Token = &token
	}
	rec.State.User = st.User
	return json.Marshal(rec)
}

// DecodeRecord parses a structured record. Records without a version field
// (version 0) are read with the same layout.
func DecodeRecord(data []byte) (State, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	if rec.Version < 0 || rec.Version > recordVersionCurrent {
		return State{}, fmt.Errorf("%w: unsupported version %d", ErrRecordCorrupt, rec.Version)
	}

	var st State
	if rec.State.Token != nil {
		st.Token = *rec.State.Token
	}
	st.User = rec.State.User
	return st, nil
}

// legacyValues renders the discrete key values for st. Keys whose value is
// absent are omitted.
func legacyValues(st State) (map[string]string, error) {
	out := make(map[string]string, len(LegacyKeys()))
	if st.Token != "" {
		out[KeyToken] = st.Token
	}
	if st.User == nil {
		return out, nil
	}

	data, err := json.Marshal(st.User)
	if err != nil {
		return nil, err
	}
	out[KeyUser] = string(data)
	out[KeyUserID] = strconv.FormatInt(st.User.ID, 10)
	out[KeyUserName] = st.User.Name
	out[KeyUserEmail] = st.User.Email
	out[KeyUserRole] = st.User.Role
	return out, nil
}

// stateFromLegacy rebuilds a State from discrete keys written by older clients.
func stateFromLegacy(values map[string]string) (State, error) {
	st := State{Token: values[KeyToken]}

	if raw, ok := values[KeyUser]; ok && raw != "" {
		var user User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return State{}, fmt.Errorf("%w: user: %v", ErrRecordCorrupt, err)
		}
		st.User = &user
		return st, nil
	}

	rawID, hasID := values[KeyUserID]
	_, hasEmail := values[KeyUserEmail]
	if !hasID && !hasEmail {
		return st, nil
	}

	user := &User{
		Name:     values[KeyUserName],
		Email:    values[KeyUserEmail],
		Role:     values[KeyUserRole],
		IsActive: true,
	}
	if hasID && rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return State{}, fmt.Errorf("%w: userId: %v", ErrRecordCorrupt, err)
		}
		user.ID = id
	}
	st.User = user
	return st, nil
}
