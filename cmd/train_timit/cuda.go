//go:build cuda

package main

import _ "github.com/neurlang/rsnn/backend/cu"
