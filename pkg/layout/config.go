package layout

import "github.com/jheling/blockwork/pkg/errors"

// Config holds the named dimensions the layout passes measure with. All
// values are in workspace units; the engine scales them to view units on
// demand.
type Config struct {
	// XSeparator is the horizontal space between adjacent fields and
	// between a row's fields and its connected child.
	XSeparator float64
	// YSeparator is the vertical space between input rows.
	YSeparator float64

	// InlinePaddingX and InlinePaddingY pad an inline value slot around the
	// child block it holds.
	InlinePaddingX float64
	InlinePaddingY float64

	// NotchWidth and NotchHeight size the previous/next statement notch.
	NotchWidth  float64
	NotchHeight float64

	// PuzzleTabWidth and PuzzleTabHeight size the output/input value tab.
	PuzzleTabWidth  float64
	PuzzleTabHeight float64

	// StatementIndent is how far a statement input's child chain is indented
	// from the block's leading edge. StatementMinHeight is the minimum
	// height reserved for an empty statement slot.
	StatementIndent    float64
	StatementMinHeight float64

	// MinBlockWidth and MinRowHeight are lower bounds on a block's body.
	MinBlockWidth float64
	MinRowHeight  float64

	// EmptyInputWidth is the width reserved for an empty inline value slot.
	EmptyInputWidth float64

	// FieldCharWidth estimates one character's advance when measuring text
	// fields; FieldPaddingX pads field text horizontally; FieldHeight is the
	// uniform field height; FieldColorWidth is the color swatch width.
	FieldCharWidth  float64
	FieldPaddingX   float64
	FieldHeight     float64
	FieldColorWidth float64

	// MutatorButtonSize is the side length of a block's mutator button.
	MutatorButtonSize float64

	// BlockBumpDistance is how far a displaced block group is nudged per
	// bump step. ConnectionSnapRadius bounds nearest-connection queries and
	// decides when two connections are close enough to count as touching.
	BlockBumpDistance    float64
	ConnectionSnapRadius float64
}

// DefaultConfig returns the standard dimension set.
func DefaultConfig() *Config {
	return &Config{
		XSeparator:           10,
		YSeparator:           10,
		InlinePaddingX:       10,
		InlinePaddingY:       5,
		NotchWidth:           15,
		NotchHeight:          4,
		PuzzleTabWidth:       8,
		PuzzleTabHeight:      20,
		StatementIndent:      30,
		StatementMinHeight:   25,
		MinBlockWidth:        40,
		MinRowHeight:         25,
		EmptyInputWidth:      30,
		FieldCharWidth:       8,
		FieldPaddingX:        5,
		FieldHeight:          20,
		FieldColorWidth:      30,
		MutatorButtonSize:    20,
		BlockBumpDistance:    25,
		ConnectionSnapRadius: 25,
	}
}

// Validate checks that every dimension is positive.
func (c *Config) Validate() error {
	dims := []struct {
		name  string
		value float64
	}{
		{"xSeparator", c.XSeparator},
		{"ySeparator", c.YSeparator},
		{"inlinePaddingX", c.InlinePaddingX},
		{"inlinePaddingY", c.InlinePaddingY},
		{"notchWidth", c.NotchWidth},
		{"notchHeight", c.NotchHeight},
		{"puzzleTabWidth", c.PuzzleTabWidth},
		{"puzzleTabHeight", c.PuzzleTabHeight},
		{"statementIndent", c.StatementIndent},
		{"statementMinHeight", c.StatementMinHeight},
		{"minBlockWidth", c.MinBlockWidth},
		{"minRowHeight", c.MinRowHeight},
		{"emptyInputWidth", c.EmptyInputWidth},
		{"fieldCharWidth", c.FieldCharWidth},
		{"fieldPaddingX", c.FieldPaddingX},
		{"fieldHeight", c.FieldHeight},
		{"fieldColorWidth", c.FieldColorWidth},
		{"mutatorButtonSize", c.MutatorButtonSize},
		{"blockBumpDistance", c.BlockBumpDistance},
		{"connectionSnapRadius", c.ConnectionSnapRadius},
	}
	for _, d := range dims {
		if d.value <= 0 {
			return errors.New(errors.ErrCodeInvalidArgument,
				"layout config dimension %s must be positive, got %v", d.name, d.value)
		}
	}
	return nil
}
