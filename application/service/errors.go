package service

import "errors"

// ErrClientClosed is returned by every service call made after Close.
var ErrClientClosed = errors.New("skyvision: client is closed")
