//go:build cuda

package cu

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	sync "github.com/sasha-s/go-deadlock"
	"gorgonia.org/cu"

	"github.com/neurlang/rsnn/backend"
)

const blockSide = 16

func init() {
	backend.Register("cuda", func(int) (backend.Backend, error) {
		return New(0)
	}, "cu", "gpu")
}

// buffer is a growable device allocation
type buffer struct {
	ptr  cu.DevicePtr
	size int64
}

// CUDA runs Gemm on a single device. Calls are serialised, the context is
// bound to whichever OS thread issues the call.
type CUDA struct {
	mu      sync.Mutex
	device  cu.Device
	ctx     cu.CUContext
	fn      cu.Function
	stream  cu.Stream
	a, b, c buffer
}

// New opens device number dev and loads the gemm kernel.
func New(dev int) (*CUDA, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	device, err := cu.GetDevice(dev)
	if err != nil {
		return nil, errors.Wrap(err, "get device")
	}
	ctx, err := device.MakeContext(cu.SchedAuto)
	if err != nil {
		return nil, errors.Wrap(err, "create context")
	}
	mod, err := cu.LoadData(ptxGemm)
	if err != nil {
		ctx.Destroy()
		return nil, errors.Wrap(err, "load module")
	}
	fn, err := mod.Function("gemm")
	if err != nil {
		ctx.Destroy()
		return nil, errors.Wrap(err, "get function")
	}
	stream, err := cu.MakeStream(cu.DefaultStream)
	if err != nil {
		ctx.Destroy()
		return nil, errors.Wrap(err, "make stream")
	}
	return &CUDA{device: device, ctx: ctx, fn: fn, stream: stream}, nil
}

// Name implements backend.Backend.
func (*CUDA) Name() string {
	return "cuda"
}

// Features implements backend.Featurer.
func (g *CUDA) Features() map[string]string {
	name, _ := g.device.Name()
	mem, _ := g.device.TotalMem()
	major, _ := g.device.Attribute(cu.ComputeCapabilityMajor)
	minor, _ := g.device.Attribute(cu.ComputeCapabilityMinor)
	return map[string]string{
		"device":  name,
		"memory":  fmt.Sprint(mem),
		"compute": fmt.Sprintf("%d.%d", major, minor),
		"cuda":    fmt.Sprint(cu.Version()),
	}
}

// Close releases device memory and the context.
func (g *CUDA) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range []*buffer{&g.a, &g.b, &g.c} {
		if b.size > 0 {
			cu.MemFree(b.ptr)
			b.size = 0
		}
	}
	g.ctx.Destroy()
	return nil
}

// Gemm implements backend.Backend. Device errors panic, the backend has no
// way to report them through the interface.
func (g *CUDA) Gemm(transA, transB bool, m, n, k int, alpha float32, a, b []float32, beta float32, c []float32) {
	if m == 0 || n == 0 {
		return
	}
	if err := g.gemm(transA, transB, m, n, k, alpha, a, b, beta, c); err != nil {
		panic(err.Error())
	}
}

func (g *CUDA) gemm(transA, transB bool, m, n, k int, alpha float32, a, b []float32, beta float32, c []float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := cu.SetCurrentContext(g.ctx); err != nil {
		return errors.Wrap(err, "set context")
	}
	if k == 0 {
		k = 1
		a = make([]float32, m)
		b = make([]float32, n)
	}

	cBytes := int64(m*n) * int64(unsafe.Sizeof(float32(0)))
	for _, up := range []struct {
		buf  *buffer
		data []float32
	}{{&g.a, a[:m*k]}, {&g.b, b[:k*n]}, {&g.c, c[:m*n]}} {
		size := int64(len(up.data)) * int64(unsafe.Sizeof(float32(0)))
		if err := up.buf.reserve(size); err != nil {
			return err
		}
		if err := cu.MemcpyHtoD(up.buf.ptr, unsafe.Pointer(&up.data[0]), size); err != nil {
			return errors.Wrap(err, "copy to device")
		}
	}

	var um, un, uk = uint32(m), uint32(n), uint32(k)
	var sai, sap uint32 = uk, 1
	if transA {
		sai, sap = 1, um
	}
	var sbp, sbj uint32 = un, 1
	if transB {
		sbp, sbj = 1, uk
	}
	args := []unsafe.Pointer{
		unsafe.Pointer(&g.a.ptr),
		unsafe.Pointer(&g.b.ptr),
		unsafe.Pointer(&g.c.ptr),
		unsafe.Pointer(&um),
		unsafe.Pointer(&un),
		unsafe.Pointer(&uk),
		unsafe.Pointer(&sai),
		unsafe.Pointer(&sap),
		unsafe.Pointer(&sbp),
		unsafe.Pointer(&sbj),
		unsafe.Pointer(&alpha),
		unsafe.Pointer(&beta),
	}
	gridX := (n + blockSide - 1) / blockSide
	gridY := (m + blockSide - 1) / blockSide
	if err := g.fn.LaunchAndSync(gridX, gridY, 1, blockSide, blockSide, 1, 0, g.stream, args); err != nil {
		return errors.Wrap(err, "launch gemm")
	}
	if err := cu.MemcpyDtoH(unsafe.Pointer(&c[0]), g.c.ptr, cBytes); err != nil {
		return errors.Wrap(err, "copy from device")
	}
	return nil
}

func (b *buffer) reserve(size int64) error {
	if b.size >= size {
		return nil
	}
	if b.size > 0 {
		if err := cu.MemFree(b.ptr); err != nil {
			return errors.Wrap(err, "free device memory")
		}
		b.size = 0
	}
	ptr, err := cu.MemAlloc(size)
	if err != nil {
		return errors.Wrap(err, "allocate device memory")
	}
	b.ptr, b.size = ptr, size
	return nil
}
