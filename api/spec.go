// Package api embeds the OpenAPI document served at /openapi.json.
package api

import _ "embed"

// Spec is the OpenAPI 3.1 document in YAML form.
//
//go:embed openapi.yaml
var Spec []byte
