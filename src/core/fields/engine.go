// Package fields validates caller-supplied domain attributes and turns an
// update payload into a change-set.
//
// Each updatable field has a static rule: a parser that validates and coerces
// the wire value, an optional extra permission check, and an optional
// derivation that sets dependent fields. Field-level failures are soft: the
// field is skipped and reported in the Batch, never to the remote caller.
package fields

import (
	"bytes"
	"encoding/json"

	"metadirectory/src/core/access"
	"metadirectory/src/core/domain"
)

type rule struct {
	parse func(json.RawMessage) (any, error)
	// allow is a finer check layered under the request's role gate.
	allow  func(e *Engine, acting *domain.Account, target *domain.Domain) bool
	derive func(v any, changes domain.ChangeSet)
}

var rules = map[domain.Field]rule{
	domain.FieldVersion:             {parse: parseText(maxShortText)},
	domain.FieldProtocol:            {parse: parseText(maxShortText)},
	domain.FieldNetworkAddr:         {parse: parseHost},
	domain.FieldNetworkPort:         {parse: parseInt(1, maxPort)},
	domain.FieldAutomaticNetworking: {parse: parseEnum(domain.AutomaticNetworking.Valid)},
	domain.FieldRestricted:          {parse: parseBool},
	domain.FieldCapacity:            {parse: parseInt(0, math32)},
	domain.FieldDescription:         {parse: parseText(maxLongText)},
	domain.FieldMaturity:            {parse: parseEnum(domain.Maturity.Valid)},
	domain.FieldRestriction: {
		parse: parseEnum(domain.Restriction.Valid),
		// restriction is authoritative over restricted; it is processed
		// after restricted in the flat allow-list.
		derive: func(v any, changes domain.ChangeSet) {
			changes[domain.FieldRestricted] = v.(domain.Restriction) != domain.RestrictionOpen
		},
	},
	domain.FieldHosts:       {parse: parseList(false, nil)},
	domain.FieldTags:        {parse: parseList(true, nil)},
	domain.FieldContactInfo: {parse: parseText(maxShortText)},
	domain.FieldManagers: {
		parse: parseList(true, nil),
		allow: func(e *Engine, acting *domain.Account, target *domain.Domain) bool {
			return e.access.CanManage(acting, target)
		},
	},
	domain.FieldImages:       {parse: parseList(false, isHTTPURL)},
	domain.FieldThumbnail:    {parse: parseThumbnail},
	domain.FieldWorldName:    {parse: parseText(maxShortText)},
	domain.FieldNumUsers:     {parse: parseInt(0, math32)},
	domain.FieldNumAnonUsers: {parse: parseInt(0, math32)},
}

const math32 = 1<<31 - 1

// Result is the outcome of one SetField call.
type Result struct {
	Field   string
	Applied bool
	Err     error
}

// Batch collects per-field results for one update. Rejections are kept for
// logging and metrics only.
type Batch struct {
	Results []Result
}

// Applied returns the names of fields written to the change-set.
func (b *Batch) Applied() []string {
	var out []string
	for _, r := range b.Results {
		if r.Applied {
			out = append(out, r.Field)
		}
	}
	return out
}

// Rejected returns the results that did not reach the change-set.
func (b *Batch) Rejected() []Result {
	var out []Result
	for _, r := range b.Results {
		if !r.Applied {
			out = append(out, r)
		}
	}
	return out
}

// Engine applies validated field values to a change-set.
type Engine struct {
	access *access.Evaluator
}

// NewEngine creates an Engine using ev for field-level permission checks.
func NewEngine(ev *access.Evaluator) *Engine {
	return &Engine{access: ev}
}

// SetField validates raw for the field name and, on success, writes the
// coerced value into changes. target is never modified. acting is the account
// behind cred; when nil the account resolved on cred is used.
func (e *Engine) SetField(cred domain.Credential, target *domain.Domain, name string, raw json.RawMessage, acting *domain.Account, changes domain.ChangeSet) Result {
	res := Result{Field: name}
	r, ok := rules[domain.Field(name)]
	if !ok {
		res.Err = domain.ErrUnknownField
		return res
	}
	if acting == nil {
		acting = cred.Account
	}
	if r.allow != nil && !r.allow(e, acting, target) {
		res.Err = domain.ErrForbiddenField
		return res
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		res.Err = invalid("missing value")
		return res
	}
	v, err := r.parse(raw)
	if err != nil {
		res.Err = err
		return res
	}
	changes[domain.Field(name)] = v
	if r.derive != nil {
		r.derive(v, changes)
	}
	res.Applied = true
	return res
}

// ApplyAll runs SetField for every pair in order and returns the results.
func (e *Engine) ApplyAll(cred domain.Credential, target *domain.Domain, pairs []Pair, acting *domain.Account, changes domain.ChangeSet) *Batch {
	batch := &Batch{Results: make([]Result, 0, len(pairs))}
	for _, p := range pairs {
		batch.Results = append(batch.Results, e.SetField(cred, target, p.Name, p.Value, acting, changes))
	}
	return batch
}
