// Copyright 2025 The fixturefill Authors
// This file is part of the fixturefill library.
//
// The fixturefill library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The fixturefill library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the fixturefill library. If not, see <http://www.gnu.org/licenses/>.

package t8n

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the contract a transition-tool response must satisfy
// before it is decoded. Schema violations are protocol faults, never
// silently ignored.
const responseSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["alloc", "result"],
	"properties": {
		"alloc": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"balance": {"type": "string", "pattern": "^0x([0-9a-fA-F]+)$"},
					"nonce":   {"type": "string", "pattern": "^0x([0-9a-fA-F]+)$"},
					"code":    {"type": "string", "pattern": "^0x([0-9a-fA-F]*)$"},
					"storage": {
						"type": "object",
						"additionalProperties": {"type": "string", "pattern": "^0x([0-9a-fA-F]+)$"}
					}
				}
			}
		},
		"result": {
			"type": "object",
			"required": ["stateRoot", "txRoot", "receiptsRoot", "receipts", "gasUsed"],
			"properties": {
				"stateRoot":    {"$ref": "#/$defs/hash32"},
				"txRoot":       {"$ref": "#/$defs/hash32"},
				"receiptsRoot": {"$ref": "#/$defs/hash32"},
				"logsHash":     {"$ref": "#/$defs/hash32"},
				"gasUsed":      {"type": "string", "pattern": "^0x([0-9a-fA-F]+)$"},
				"receipts":     {"type": "array"},
				"rejected": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["index", "error"],
						"properties": {
							"index": {"type": "integer", "minimum": 0},
							"error": {"type": "string"}
						}
					}
				}
			}
		}
	},
	"$defs": {
		"hash32": {"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("t8n-response.json", responseSchema)

// decodeResult validates the raw response document against the schema and
// decodes it. All failures are ProtocolErrors.
func decodeResult(data []byte) (*Result, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ProtocolError{Detail: "response is not valid JSON", Err: err}
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, &ProtocolError{Detail: "response fails schema validation", Err: err}
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &ProtocolError{Detail: "response does not decode", Err: err}
	}
	return &res, nil
}
