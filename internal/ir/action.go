package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future change of algorithm.
const (
	DomainAction = "unistore/action/v1"
	DomainState  = "unistore/state/v1"
)

// Action is a serializable intent to change state: a type tag plus an
// arbitrary payload. The store never looks inside; reducers do.
type Action struct {
	Type    string `json:"type"`
	Payload Object `json:"payload"`
}

// NewAction builds an action, substituting an empty payload for nil.
func NewAction(typ string, payload Object) Action {
	if payload == nil {
		payload = Object{}
	}
	return Action{Type: typ, Payload: payload}
}

// Object returns the action as a single canonical object.
func (a Action) Object() Object {
	payload := a.Payload
	if payload == nil {
		payload = Object{}
	}
	return Object{
		"type":    String(a.Type),
		"payload": payload,
	}
}

// String renders the action as canonical JSON, or the bare type when the
// payload cannot be encoded.
func (a Action) String() string {
	data, err := MarshalCanonical(a.Object())
	if err != nil {
		return a.Type
	}
	return string(data)
}

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionID computes the journal id of one dispatch. It covers the flow, the
// action and its position in the log, so the same action dispatched twice
// gets two ids.
func ActionID(flowToken string, action Action, seq int64) (string, error) {
	obj := Object{
		"flow_token": String(flowToken),
		"action":     action.Object(),
		"seq":        Int(seq),
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("action id: %w", err)
	}
	return hashWithDomain(DomainAction, data), nil
}

// StateHash fingerprints a state snapshot. Replay compares these to detect
// divergence between the recorded and the recomputed history.
func StateHash(snapshot Object) (string, error) {
	data, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("state hash: %w", err)
	}
	return hashWithDomain(DomainState, data), nil
}

// MustActionID is ActionID for inputs known to be valid. Test use only.
func MustActionID(flowToken string, action Action, seq int64) string {
	id, err := ActionID(flowToken, action, seq)
	if err != nil {
		panic(err)
	}
	return id
}
