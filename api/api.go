// Package api embeds the OpenAPI contract of the lemon JSON API.
package api

import _ "embed"

// Spec is the raw OpenAPI 3 document served at /openapi.yaml.
//
//go:embed openapi.yaml
var Spec []byte
