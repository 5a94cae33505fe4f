package layer

import "github.com/goki/mat32"

// Neuron holds the dynamics constants of the spiking cells. Times are in
// milliseconds.
type Neuron struct {
	Vth   float32 `desc:"firing threshold"`
	TauM  float32 `desc:"membrane time constant"`
	TauA  float32 `desc:"threshold adaptation time constant (alif)"`
	Beta  float32 `desc:"threshold adaptation strength (alif)"`
	Gamma float32 `desc:"dampening of the spike pseudo-derivative"`
	Dt    float32 `desc:"simulation time step"`

	Alpha float32 `view:"-" desc:"membrane decay per step, computed in Update"`
	Rho   float32 `view:"-" desc:"adaptation decay per step, computed in Update"`
}

// Defaults sets the constants used for TIMIT.
func (n *Neuron) Defaults() {
	n.Vth = 1
	n.TauM = 20
	n.TauA = 200
	n.Beta = 1.8
	n.Gamma = 0.3
	n.Dt = 1
	n.Update()
}

// Update must be called after any changes to parameters.
func (n *Neuron) Update() {
	if n.Dt <= 0 {
		n.Dt = 1
	}
	n.Alpha = mat32.Exp(-n.Dt / n.TauM)
	n.Rho = mat32.Exp(-n.Dt / n.TauA)
}

// PseudoDerivative is the surrogate of dz/dv for membrane potential v
// against threshold thr.
func (n *Neuron) PseudoDerivative(v, thr float32) float32 {
	x := 1 - mat32.Abs((v-thr)/n.Vth)
	if x <= 0 {
		return 0
	}
	return n.Gamma / n.Vth * x
}

// Spike is the Heaviside step of v against thr.
func Spike(v, thr float32) float32 {
	if v > thr {
		return 1
	}
	return 0
}
