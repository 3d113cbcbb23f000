// Package api carries the OpenAPI document served by the HTTP transport.
package api

import _ "embed"

//go:embed openapi.yml
var OpenAPI []byte
