// Package accel evaluates element stiffness matrices on an OCCA device. The
// constitutive matrices of the model are compiled into the kernel source, so
// one program is built per distinct material set and batch size.
package accel

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/notargets/gocca"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/element"
	"github.com/notargets/slopefem/model"
)

const DefaultBatch = 1024

// Backends lists the device properties tried by OpenDevice, in order.
var Backends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// OpenDevice creates a device from props, or from the first entry of
// Backends that succeeds when props is empty.
func OpenDevice(props string) (*gocca.OCCADevice, error) {
	if props != "" {
		device, err := gocca.NewDevice(props)
		if err != nil {
			return nil, diag.Configurationf("occa device %s: %v", props, err)
		}
		return device, nil
	}
	for _, p := range Backends {
		if device, err := gocca.NewDevice(p); err == nil {
			return device, nil
		}
	}
	return nil, diag.Configurationf("no occa backend available")
}

// Kernel implements assembly.Kernel on an OCCA device. Device access is
// serialized, so a Kernel may be shared by the assembly workers.
type Kernel struct {
	Batch  int // elements per launch
	Logger log.FieldLogger

	mu      sync.Mutex
	device  *gocca.OCCADevice
	kernels map[string]*gocca.OCCAKernel
}

// NewKernel opens a device with OpenDevice and returns a Kernel using it.
func NewKernel(props string, batch int) (*Kernel, error) {
	device, err := OpenDevice(props)
	if err != nil {
		return nil, err
	}
	if batch < 1 {
		batch = DefaultBatch
	}
	return &Kernel{
		Batch:   batch,
		Logger:  log.StandardLogger(),
		device:  device,
		kernels: make(map[string]*gocca.OCCAKernel),
	}, nil
}

func (k *Kernel) Name() string { return "occa/" + k.device.Mode() }

// Free releases the compiled kernels and the device.
func (k *Kernel) Free() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for src, kern := range k.kernels {
		kern.Free()
		delete(k.kernels, src)
	}
	if k.device != nil {
		k.device.Free()
		k.device = nil
	}
}

func (k *Kernel) build(src string) (*gocca.OCCAKernel, error) {
	if kern, ok := k.kernels[src]; ok {
		return kern, nil
	}
	var (
		kern *gocca.OCCAKernel
		err  error
	)
	if k.device.Mode() == "OpenMP" {
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kern, err = k.device.BuildKernelFromString(src, KernelName, props)
	} else {
		kern, err = k.device.BuildKernelFromString(src, KernelName, nil)
	}
	if err != nil {
		return nil, diag.Configurationf("build %s: %v", KernelName, err)
	}
	k.kernels[src] = kern
	if k.Logger != nil {
		k.Logger.WithFields(log.Fields{
			"mode":   k.device.Mode(),
			"batch":  k.Batch,
			"source": len(src),
		}).Debug("element kernel built")
	}
	return kern, nil
}

// ElementStiffness evaluates ke for elems on the device, Batch elements per
// launch.
func (k *Kernel) ElementStiffness(ctx context.Context, md *model.Model, elems []int) ([]*mat.SymDense, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.device == nil {
		return nil, fmt.Errorf("occa kernel used after Free")
	}
	kern, err := k.build(Source(md.D, k.Batch))
	if err != nil {
		return nil, err
	}

	const nd = element.NumDOF
	var (
		xy  = make([]float64, 6*k.Batch)
		mt  = make([]int32, k.Batch)
		ke  = make([]float64, nd*nd*k.Batch)
		cnt = make([]int32, 1)
		out = make([]*mat.SymDense, 0, len(elems))
	)
	for lo := 0; lo < len(elems); lo += k.Batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := min(lo+k.Batch, len(elems))
		for i, e := range elems[lo:hi] {
			p1, p2, p3 := md.Mesh.Corners(e)
			copy(xy[6*i:], []float64{p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y})
			mt[i] = int32(md.Elements[e].Material)
		}
		cnt[0] = int32(hi - lo)
		if err := k.launch(kern, cnt, xy, mt, ke); err != nil {
			return nil, err
		}
		for i := 0; i < hi-lo; i++ {
			s := mat.NewSymDense(nd, nil)
			for r := 0; r < nd; r++ {
				for c := r; c < nd; c++ {
					s.SetSym(r, c, ke[nd*nd*i+nd*r+c])
				}
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (k *Kernel) launch(kern *gocca.OCCAKernel, cnt []int32, xy []float64, mt []int32, ke []float64) error {
	kBytes := int64(4 * len(cnt))
	xyBytes := int64(8 * len(xy))
	mtBytes := int64(4 * len(mt))
	keBytes := int64(8 * len(ke))

	kMem := k.device.Malloc(kBytes, unsafe.Pointer(&cnt[0]), nil)
	defer kMem.Free()
	xyMem := k.device.Malloc(xyBytes, unsafe.Pointer(&xy[0]), nil)
	defer xyMem.Free()
	mtMem := k.device.Malloc(mtBytes, unsafe.Pointer(&mt[0]), nil)
	defer mtMem.Free()
	keMem := k.device.Malloc(keBytes, nil, nil)
	defer keMem.Free()

	if err := kern.RunWithArgs(kMem, xyMem, mtMem, keMem); err != nil {
		return diag.Numericalf("%s: %v", KernelName, err)
	}
	k.device.Finish()
	keMem.CopyTo(unsafe.Pointer(&ke[0]), keBytes)
	return nil
}
