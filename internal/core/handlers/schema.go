// Package handlers is the table-driven request dispatcher: it maps a DAP
// command string to a typed handler, enforces capability gating and
// preconditions, and produces response bodies the adapter's transport loop
// serializes back to the client.
package handlers

import (
	"github.com/tidwall/gjson"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// FieldSchema describes one accepted field of a request's `arguments`
// object, checked before the typed json.Unmarshal runs.
type FieldSchema struct {
	Name     string
	Required bool
	// CheckKind, when true, restricts the value to Kind. gjson.Null is a
	// valid Kind on its own (e.g. a field explicitly nulled out), so kind
	// checking needs its own flag rather than overloading the zero value.
	CheckKind bool
	Kind      gjson.Type
}

// CheckArguments validates raw's top-level JSON object fields against
// fields using gjson, without doing a full typed decode. It rejects a
// missing required field and a present field of the wrong JSON kind; any
// field not named in fields is ignored (DAP clients routinely send
// forward-compatible extra fields clients-side, so unknown fields are not
// themselves an error — only the ones this handler actually reads are
// checked).
func CheckArguments(raw []byte, fields []FieldSchema) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() && !parsed.Exists() {
		return dapperr.New(dapperr.ProtocolError, "arguments must be a JSON object")
	}

	for _, f := range fields {
		v := parsed.Get(f.Name)
		if !v.Exists() {
			if f.Required {
				return dapperr.New(dapperr.PreconditionFailed, "missing required argument: "+f.Name)
			}
			continue
		}
		if f.CheckKind && v.Type != f.Kind {
			return dapperr.New(dapperr.PreconditionFailed, "argument "+f.Name+" has the wrong type")
		}
	}
	return nil
}
