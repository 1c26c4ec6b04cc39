//go:build embed_model

package provider

import "embed"

// The CLIP ONNX export (model.onnx plus tokenizer and preprocessor configs)
// is compiled into the binary from the models/ directory.
//
//go:embed all:models
var bundledModelFS embed.FS

const modelBundled = true
