package skyvision

import (
	"errors"

	"github.com/skyvisionhq/skyvision/application/service"
)

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("skyvision: no database configured")

	// ErrNoEmbedder indicates no embedding provider was configured and no
	// local model could be found.
	ErrNoEmbedder = errors.New("skyvision: no embedding provider configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed
)
