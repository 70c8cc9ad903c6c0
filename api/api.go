// Package api carries the static OpenAPI document served by the router.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
