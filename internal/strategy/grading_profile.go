package strategy

import (
	"fmt"

	apperrors "go-histopath/internal/errors"
	"go-histopath/internal/grader"
)

// GradingProfile names a preset grading configuration. Profiles are the
// swappable per-use-case parameter sets: stain matrix, thresholds, weights
// and grade bands as data rather than per-case code.
type GradingProfile interface {
	Options() grader.GradingOptions
	GetProfileName() string
}

// StandardProfile is the default H&E grading configuration
type StandardProfile struct{}

// Options returns the standard grading options
func (p *StandardProfile) Options() grader.GradingOptions {
	return grader.DefaultOptions()
}

// GetProfileName returns the profile name
func (p *StandardProfile) GetProfileName() string {
	return "standard"
}

// RapidProfile trades fidelity for throughput
type RapidProfile struct{}

// Options returns the rapid grading options
func (p *RapidProfile) Options() grader.GradingOptions {
	return grader.RapidOptions()
}

// GetProfileName returns the profile name
func (p *RapidProfile) GetProfileName() string {
	return "rapid"
}

// HighResolutionProfile tightens analysis for large clean scans
type HighResolutionProfile struct{}

// Options returns the high-resolution grading options
func (p *HighResolutionProfile) Options() grader.GradingOptions {
	return grader.HighResolutionOptions()
}

// GetProfileName returns the profile name
func (p *HighResolutionProfile) GetProfileName() string {
	return "high_resolution"
}

// ProfileRegistry resolves profile names to configurations.
type ProfileRegistry struct {
	profiles map[string]GradingProfile
}

// NewProfileRegistry creates a registry holding the built-in profiles.
func NewProfileRegistry() *ProfileRegistry {
	r := &ProfileRegistry{profiles: make(map[string]GradingProfile)}
	r.Register(&StandardProfile{})
	r.Register(&RapidProfile{})
	r.Register(&HighResolutionProfile{})
	return r
}

// Register adds or replaces a profile by name.
func (r *ProfileRegistry) Register(p GradingProfile) {
	r.profiles[p.GetProfileName()] = p
}

// Resolve returns the named profile; an empty name selects "standard".
func (r *ProfileRegistry) Resolve(name string) (GradingProfile, error) {
	if name == "" {
		name = "standard"
	}
	p, ok := r.profiles[name]
	if !ok {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("unknown grading profile %q", name), nil)
	}
	return p, nil
}

// Names lists the registered profile names.
func (r *ProfileRegistry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}
