package stabilizer

// PIDConfig holds the gains and safety limits for one PID controller.
// A limit of 0 disables the corresponding clamp.
type PIDConfig struct {
	Kp            float64
	Ki            float64
	Kd            float64
	IntegralLimit float64
	OutputLimit   float64
}

// PIDController is a discrete PID controller with anti-windup and
// output clamping. State is owned exclusively by one instance; it is
// not safe for concurrent use.
type PIDController struct {
	cfg       PIDConfig
	integral  float64
	prevError float64
}

// NewPIDController creates a controller with zeroed state.
func NewPIDController(cfg PIDConfig) *PIDController {
	return &PIDController{cfg: cfg}
}

// Update advances the controller by one step and returns the
// correction. A non-positive dt returns 0 and leaves state untouched;
// spikes in the error are contained by the integral and output clamps.
func (p *PIDController) Update(err, dt float64) float64 {
	if dt <= 0 {
		return 0
	}

	proportional := p.cfg.Kp * err

	p.integral += err * dt
	if p.cfg.IntegralLimit > 0 {
		p.integral = clamp(p.integral, -p.cfg.IntegralLimit, p.cfg.IntegralLimit)
	}
	integralTerm := p.cfg.Ki * p.integral

	derivative := (err - p.prevError) / dt
	derivativeTerm := p.cfg.Kd * derivative

	output := proportional + integralTerm + derivativeTerm
	if p.cfg.OutputLimit > 0 {
		output = clamp(output, -p.cfg.OutputLimit, p.cfg.OutputLimit)
	}

	p.prevError = err
	return output
}

// Reset zeroes the accumulated state.
func (p *PIDController) Reset() {
	p.integral = 0
	p.prevError = 0
}

// Integral exposes the accumulator for diagnostics.
func (p *PIDController) Integral() float64 {
	return p.integral
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
