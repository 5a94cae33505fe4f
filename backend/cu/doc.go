// Package cu implements the compute backend on CUDA devices through the driver API.
//
// The backend is only compiled with the cuda build tag, which needs the CUDA
// toolkit at build time:
//
//	go build -tags cuda ./...
//
// Without the tag importing the package registers nothing and looking up the
// "cuda" backend fails like any other unknown name.
package cu
