package main

import "runtime/pprof"
import "os"

// pgo starts collecting a CPU profile into name. The returned function
// stops the profile and closes the file.
func pgo(name string) (stop func(), err error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
