package fields

import (
	"bytes"
	"encoding/json"

	"metadirectory/src/core/domain"
)

// Pair is one field name and its raw wire value, ready for SetField.
type Pair struct {
	Name  string
	Value json.RawMessage
}

// flatFields is the allow-list for heartbeat-style payloads. Order is the
// processing order: restriction must come after restricted.
var flatFields = []domain.Field{
	domain.FieldVersion,
	domain.FieldProtocol,
	domain.FieldNetworkAddr,
	domain.FieldNetworkPort,
	domain.FieldAutomaticNetworking,
	domain.FieldRestricted,
	domain.FieldCapacity,
	domain.FieldDescription,
	domain.FieldMaturity,
	domain.FieldRestriction,
	domain.FieldHosts,
	domain.FieldTags,
}

// heartbeatFields are read from the nested heartbeat object of a flat payload.
var heartbeatFields = []domain.Field{
	domain.FieldNumUsers,
	domain.FieldNumAnonUsers,
}

// metaFields is the allow-list for payloads carrying a meta object.
var metaFields = []domain.Field{
	domain.FieldCapacity,
	domain.FieldContactInfo,
	domain.FieldDescription,
	domain.FieldManagers,
	domain.FieldTags,
	domain.FieldImages,
	domain.FieldMaturity,
	domain.FieldRestriction,
	domain.FieldThumbnail,
	domain.FieldWorldName,
}

const (
	keyDomain    = "domain"
	keyMeta      = "meta"
	keyHeartbeat = "heartbeat"
)

// Normalize extracts the eligible (field, value) pairs from an update body
// of the form {"domain": {...}}. When domain.meta is present only the meta
// allow-list applies; otherwise the flat allow-list and the heartbeat
// counters do. A key is eligible when it is present, whatever its value.
// A null meta counts as absent. A body without a non-empty domain object, or
// with an empty or non-object meta, yields domain.ErrBadlyFormed.
func Normalize(body []byte) ([]Pair, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, domain.NewBadlyFormedError()
	}
	fieldsIn, ok := object(top[keyDomain])
	if !ok {
		return nil, domain.NewBadlyFormedError()
	}

	if rawMeta, present := fieldsIn[keyMeta]; present && !isNull(rawMeta) {
		meta, ok := object(rawMeta)
		if !ok {
			return nil, domain.NewBadlyFormedError()
		}
		return pick(meta, metaFields, nil), nil
	}

	pairs := pick(fieldsIn, flatFields, nil)
	if hb, ok := object(fieldsIn[keyHeartbeat]); ok {
		pairs = pick(hb, heartbeatFields, pairs)
	}
	return pairs, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// object decodes raw as a non-empty JSON object.
func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil, false
	}
	return m, true
}

func pick(src map[string]json.RawMessage, allow []domain.Field, out []Pair) []Pair {
	for _, f := range allow {
		if v, ok := src[string(f)]; ok {
			out = append(out, Pair{Name: string(f), Value: v})
		}
	}
	return out
}
