//go:build !embed_model

package provider

import "embed"

// Zero FS; the provider loads model files from disk.
var bundledModelFS embed.FS

const modelBundled = false
