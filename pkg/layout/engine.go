package layout

import (
	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
)

// ViewPoint is a location in view coordinates, the workspace coordinate
// system multiplied by the engine's scale.
type ViewPoint struct {
	X, Y float64
}

// ViewSize is an extent in view coordinates.
type ViewSize struct {
	Width, Height float64
}

// EngineOptions configures a layout engine.
type EngineOptions struct {
	// Config supplies the named dimensions; nil means DefaultConfig.
	Config *Config
	// Scale maps workspace units to view units; zero means 1.
	Scale float64
	// RTL lays workspaces out right to left.
	RTL bool
}

// ValidateAndSetDefaults checks option consistency and fills in defaults.
func (o *EngineOptions) ValidateAndSetDefaults() error {
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidArgument,
			"engine scale must be positive, got %v", o.Scale)
	}
	if o.Config == nil {
		o.Config = DefaultConfig()
	}
	return o.Config.Validate()
}

// Engine converts between workspace units and view units and carries the
// dimension config every layout pass reads. One engine serves one workspace
// layout tree; sharing an engine across trees keeps their scales in step.
type Engine struct {
	config *Config
	scale  float64
	rtl    bool
}

// NewEngine creates an engine. A nil opts gets all defaults.
func NewEngine(opts *EngineOptions) (*Engine, error) {
	if opts == nil {
		opts = &EngineOptions{}
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Engine{config: opts.Config, scale: opts.Scale, rtl: opts.RTL}, nil
}

// Config returns the dimension config.
func (e *Engine) Config() *Config { return e.config }

// Scale returns the workspace-to-view multiplier.
func (e *Engine) Scale() float64 { return e.scale }

// RTL reports whether layouts run right to left.
func (e *Engine) RTL() bool { return e.rtl }

// ViewUnit scales one workspace unit value to view units.
func (e *Engine) ViewUnit(workspaceUnit float64) float64 {
	return workspaceUnit * e.scale
}

// WorkspaceUnit scales one view unit value back to workspace units.
func (e *Engine) WorkspaceUnit(viewUnit float64) float64 {
	return viewUnit / e.scale
}

// ViewPointFromWorkspace converts a workspace point to view coordinates.
func (e *Engine) ViewPointFromWorkspace(p block.WorkspacePoint) ViewPoint {
	return ViewPoint{X: p.X * e.scale, Y: p.Y * e.scale}
}

// WorkspacePointFromView converts a view point to workspace coordinates.
func (e *Engine) WorkspacePointFromView(p ViewPoint) block.WorkspacePoint {
	return block.WorkspacePoint{X: p.X / e.scale, Y: p.Y / e.scale}
}

// ViewSizeFromWorkspace converts a workspace size to view coordinates.
func (e *Engine) ViewSizeFromWorkspace(s block.WorkspaceSize) ViewSize {
	return ViewSize{Width: s.Width * e.scale, Height: s.Height * e.scale}
}
