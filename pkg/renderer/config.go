package renderer

import (
	"errors"
	"fmt"
)

// Config contains the photon mapping parameters
type Config struct {
	MaxDepth        int     // Maximum bounce depth for camera paths and photons
	InitialRadius   float64 // Gather radius every HitPoint starts with
	Alpha           float64 // Fraction of new photons kept per round, in (0, 1]
	PhotonBudget    int     // Photons emitted per round, split between lights by power
	Rounds          int     // Number of photon rounds
	IrradianceScale float64 // Constant multiplied into the flux density
	NumWorkers      int     // Number of parallel workers (0 = use CPU count)
	PhotonsPerTask  int     // Photons traced by one worker task
	Seed            int64   // Base seed for every per-task random stream
	Gamma           float64 // Display gamma applied when converting to 8-bit (1 = none)
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		MaxDepth:        8,
		InitialRadius:   2.0,
		Alpha:           0.5,
		PhotonBudget:    1_000_000,
		Rounds:          50,
		IrradianceScale: 10000,
		NumWorkers:      0, // Auto-detect CPU count
		PhotonsPerTask:  10_000,
		Seed:            42,
		Gamma:           1.0,
	}
}

// Merge returns c with every non-zero field of override applied on top
func (c Config) Merge(override Config) Config {
	if override.MaxDepth != 0 {
		c.MaxDepth = override.MaxDepth
	}
	if override.InitialRadius != 0 {
		c.InitialRadius = override.InitialRadius
	}
	if override.Alpha != 0 {
		c.Alpha = override.Alpha
	}
	if override.PhotonBudget != 0 {
		c.PhotonBudget = override.PhotonBudget
	}
	if override.Rounds != 0 {
		c.Rounds = override.Rounds
	}
	if override.IrradianceScale != 0 {
		c.IrradianceScale = override.IrradianceScale
	}
	if override.NumWorkers != 0 {
		c.NumWorkers = override.NumWorkers
	}
	if override.PhotonsPerTask != 0 {
		c.PhotonsPerTask = override.PhotonsPerTask
	}
	if override.Seed != 0 {
		c.Seed = override.Seed
	}
	if override.Gamma != 0 {
		c.Gamma = override.Gamma
	}
	return c
}

// ErrInvalidConfig is wrapped by every error returned from Validate
var ErrInvalidConfig = errors.New("invalid render config")

// Validate rejects parameters the algorithm cannot run with
func (c Config) Validate() error {
	switch {
	case c.MaxDepth <= 0:
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	case c.InitialRadius <= 0:
		return fmt.Errorf("%w: initial radius must be positive, got %g", ErrInvalidConfig, c.InitialRadius)
	case c.Alpha <= 0 || c.Alpha > 1:
		return fmt.Errorf("%w: alpha must be in (0, 1], got %g", ErrInvalidConfig, c.Alpha)
	case c.PhotonBudget <= 0:
		return fmt.Errorf("%w: photon budget must be positive, got %d", ErrInvalidConfig, c.PhotonBudget)
	case c.Rounds < 0:
		return fmt.Errorf("%w: rounds must not be negative, got %d", ErrInvalidConfig, c.Rounds)
	case c.IrradianceScale <= 0:
		return fmt.Errorf("%w: irradiance scale must be positive, got %g", ErrInvalidConfig, c.IrradianceScale)
	case c.PhotonsPerTask <= 0:
		return fmt.Errorf("%w: photons per task must be positive, got %d", ErrInvalidConfig, c.PhotonsPerTask)
	case c.Gamma <= 0:
		return fmt.Errorf("%w: gamma must be positive, got %g", ErrInvalidConfig, c.Gamma)
	}
	return nil
}
