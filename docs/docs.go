// Package docs embeds the OpenAPI document served at /docs/openapi.yaml.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPIYAML []byte
