package block

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jheling/blockwork/pkg/errors"
)

// FieldKind identifies the variant of a field. Fields are a closed set of
// variants rather than an open hierarchy so that serialization and layout
// measurement stay total functions over the kinds.
type FieldKind int

const (
	// FieldLabel is static display text. Not editable, not serialized.
	FieldLabel FieldKind = iota
	// FieldInput is a free-form text value.
	FieldInput
	// FieldNumber is a numeric value with optional min/max/precision constraints.
	FieldNumber
	// FieldAngle is an angle in degrees, normalized to [0, 360).
	FieldAngle
	// FieldCheckbox is a boolean value.
	FieldCheckbox
	// FieldColor is a CSS hex color such as "#ff8800".
	FieldColor
	// FieldDate is a calendar date in "yyyy-mm-dd" form.
	FieldDate
	// FieldDropdown is a selection from a fixed option list.
	FieldDropdown
	// FieldVariable references a variable by name.
	FieldVariable
	// FieldImage is static image metadata. Not editable, not serialized.
	FieldImage
)

func (k FieldKind) String() string {
	switch k {
	case FieldLabel:
		return "label"
	case FieldInput:
		return "input"
	case FieldNumber:
		return "number"
	case FieldAngle:
		return "angle"
	case FieldCheckbox:
		return "checkbox"
	case FieldColor:
		return "colour"
	case FieldDate:
		return "date"
	case FieldDropdown:
		return "dropdown"
	case FieldVariable:
		return "variable"
	case FieldImage:
		return "image"
	default:
		return "unknown"
	}
}

// DropdownOption is one entry in a dropdown field: the display text shown to
// the user and the language-neutral value used for serialization.
type DropdownOption struct {
	DisplayName string
	Value       string
}

// FieldListener is notified after a field's value actually changed.
// Notifications fire exactly once per change; setting a field to its current
// value does not notify.
type FieldListener interface {
	DidUpdateField(field *Field)
}

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Field is a named, typed leaf value on an input. The Kind determines which
// payload accessors are meaningful; setters for the wrong kind return an
// ILLEGAL_STATE error rather than silently coercing.
type Field struct {
	name     string
	kind     FieldKind
	editable bool

	// Listener is notified when the field's value changes.
	Listener FieldListener

	text          string // label, input, color, date, variable payloads
	num           float64
	min, max      float64
	precision     float64
	angle         int
	checked       bool
	options       []DropdownOption
	selectedIndex int
	imageSource   string
	imageSize     WorkspaceSize
	imageAlt      string
}

// NewFieldLabel creates a static text field.
func NewFieldLabel(name, text string) *Field {
	return &Field{name: name, kind: FieldLabel, text: text}
}

// NewFieldInput creates an editable text field.
func NewFieldInput(name, text string) *Field {
	return &Field{name: name, kind: FieldInput, editable: true, text: text}
}

// NewFieldNumber creates a numeric field with no constraints.
func NewFieldNumber(name string, value float64) *Field {
	f := &Field{name: name, kind: FieldNumber, editable: true,
		min: math.Inf(-1), max: math.Inf(1)}
	f.num = f.constrainedNumber(value)
	return f
}

// NewFieldAngle creates an angle field. The angle is normalized to [0, 360).
func NewFieldAngle(name string, angle int) *Field {
	return &Field{name: name, kind: FieldAngle, editable: true, angle: normalizeAngle(angle)}
}

// NewFieldCheckbox creates a boolean field.
func NewFieldCheckbox(name string, checked bool) *Field {
	return &Field{name: name, kind: FieldCheckbox, editable: true, checked: checked}
}

// NewFieldColor creates a color field holding a "#rrggbb" value.
func NewFieldColor(name, color string) *Field {
	return &Field{name: name, kind: FieldColor, editable: true, text: color}
}

// NewFieldDate creates a date field holding a "yyyy-mm-dd" value.
func NewFieldDate(name, date string) *Field {
	return &Field{name: name, kind: FieldDate, editable: true, text: date}
}

// NewFieldDropdown creates a dropdown field. Returns an INVALID_ARGUMENT
// error when options is empty or selectedIndex is out of range.
func NewFieldDropdown(name string, options []DropdownOption, selectedIndex int) (*Field, error) {
	if len(options) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"dropdown field %q needs at least one option", name)
	}
	if selectedIndex < 0 || selectedIndex >= len(options) {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"dropdown field %q selected index %d out of range [0, %d)",
			name, selectedIndex, len(options))
	}
	return &Field{name: name, kind: FieldDropdown, editable: true,
		options: options, selectedIndex: selectedIndex}, nil
}

// NewFieldVariable creates a variable reference field.
func NewFieldVariable(name, variable string) *Field {
	return &Field{name: name, kind: FieldVariable, editable: true, text: variable}
}

// NewFieldImage creates a static image field.
func NewFieldImage(name, source string, size WorkspaceSize, alt string) *Field {
	return &Field{name: name, kind: FieldImage,
		imageSource: source, imageSize: size, imageAlt: alt}
}

// Name returns the field's name, unique per block by convention.
func (f *Field) Name() string { return f.name }

// Kind returns the field's variant.
func (f *Field) Kind() FieldKind { return f.kind }

// Editable reports whether the field's value can be edited by a user.
func (f *Field) Editable() bool { return f.editable }

// SetEditable toggles user editability. Label and image fields stay
// non-editable.
func (f *Field) SetEditable(editable bool) {
	if f.kind == FieldLabel || f.kind == FieldImage {
		return
	}
	f.editable = editable
}

// Text returns the text payload for label, input, color, date, and variable
// fields.
func (f *Field) Text() string { return f.text }

// Number returns the numeric payload of a number field.
func (f *Field) Number() float64 { return f.num }

// Angle returns the angle payload in degrees.
func (f *Field) Angle() int { return f.angle }

// Checked returns the boolean payload of a checkbox field.
func (f *Field) Checked() bool { return f.checked }

// Options returns the option list of a dropdown field.
func (f *Field) Options() []DropdownOption { return f.options }

// SelectedIndex returns the selected option index of a dropdown field.
func (f *Field) SelectedIndex() int { return f.selectedIndex }

// SelectedOption returns the currently selected dropdown option.
func (f *Field) SelectedOption() DropdownOption {
	if f.selectedIndex < 0 || f.selectedIndex >= len(f.options) {
		return DropdownOption{}
	}
	return f.options[f.selectedIndex]
}

// ImageSource returns the image field's source path or URL.
func (f *Field) ImageSource() string { return f.imageSource }

// ImageSize returns the image field's intrinsic size.
func (f *Field) ImageSize() WorkspaceSize { return f.imageSize }

// ImageAlt returns the image field's alt text.
func (f *Field) ImageAlt() string { return f.imageAlt }

// SetText updates the text payload of a label, input, color, date, or
// variable field.
func (f *Field) SetText(text string) error {
	switch f.kind {
	case FieldLabel, FieldInput, FieldVariable:
		// no validation
	case FieldColor:
		if !hexColorPattern.MatchString(text) {
			return errors.New(errors.ErrCodeInvalidArgument,
				"field %q: invalid color %q", f.name, text)
		}
	case FieldDate:
		if !datePattern.MatchString(text) {
			return errors.New(errors.ErrCodeInvalidArgument,
				"field %q: invalid date %q", f.name, text)
		}
	default:
		return f.wrongKindError("SetText")
	}
	if f.text != text {
		f.text = text
		f.notify()
	}
	return nil
}

// SetNumber updates a number field, applying min/max/precision constraints.
func (f *Field) SetNumber(value float64) error {
	if f.kind != FieldNumber {
		return f.wrongKindError("SetNumber")
	}
	value = f.constrainedNumber(value)
	if f.num != value {
		f.num = value
		f.notify()
	}
	return nil
}

// SetConstraints restricts a number field to [min, max], rounded to the
// nearest multiple of precision (0 disables rounding). The current value is
// re-constrained immediately.
func (f *Field) SetConstraints(min, max, precision float64) error {
	if f.kind != FieldNumber {
		return f.wrongKindError("SetConstraints")
	}
	if min > max {
		return errors.New(errors.ErrCodeInvalidArgument,
			"field %q: min %g greater than max %g", f.name, min, max)
	}
	f.min, f.max, f.precision = min, max, precision
	return f.SetNumber(f.num)
}

// MinimumValue returns the lower bound of a number field (-Inf when unset).
func (f *Field) MinimumValue() float64 { return f.min }

// MaximumValue returns the upper bound of a number field (+Inf when unset).
func (f *Field) MaximumValue() float64 { return f.max }

// Precision returns the rounding step of a number field (0 when unset).
func (f *Field) Precision() float64 { return f.precision }

// SetAngle updates an angle field, normalizing into [0, 360).
func (f *Field) SetAngle(angle int) error {
	if f.kind != FieldAngle {
		return f.wrongKindError("SetAngle")
	}
	angle = normalizeAngle(angle)
	if f.angle != angle {
		f.angle = angle
		f.notify()
	}
	return nil
}

// SetChecked updates a checkbox field.
func (f *Field) SetChecked(checked bool) error {
	if f.kind != FieldCheckbox {
		return f.wrongKindError("SetChecked")
	}
	if f.checked != checked {
		f.checked = checked
		f.notify()
	}
	return nil
}

// SetSelectedIndex updates a dropdown field's selection.
func (f *Field) SetSelectedIndex(index int) error {
	if f.kind != FieldDropdown {
		return f.wrongKindError("SetSelectedIndex")
	}
	if index < 0 || index >= len(f.options) {
		return errors.New(errors.ErrCodeInvalidArgument,
			"field %q: index %d out of range [0, %d)", f.name, index, len(f.options))
	}
	if f.selectedIndex != index {
		f.selectedIndex = index
		f.notify()
	}
	return nil
}

// Serializable reports whether the field participates in XML serialization.
// Labels and images are presentation-only and excluded.
func (f *Field) Serializable() bool {
	return f.kind != FieldLabel && f.kind != FieldImage
}

// SerializedText returns the field's value in its wire form. Returns false
// for non-serializable kinds.
func (f *Field) SerializedText() (string, bool) {
	switch f.kind {
	case FieldInput, FieldColor, FieldDate, FieldVariable:
		return f.text, true
	case FieldNumber:
		return strconv.FormatFloat(f.num, 'f', -1, 64), true
	case FieldAngle:
		return strconv.Itoa(f.angle), true
	case FieldCheckbox:
		if f.checked {
			return "TRUE", true
		}
		return "FALSE", true
	case FieldDropdown:
		return f.SelectedOption().Value, true
	default:
		return "", false
	}
}

// SetValueFromSerializedText sets the field's value from its wire form.
// Returns a PARSE_XML error for malformed values or non-serializable kinds.
func (f *Field) SetValueFromSerializedText(text string) error {
	switch f.kind {
	case FieldInput, FieldVariable:
		return f.SetText(text)
	case FieldColor, FieldDate:
		if err := f.SetText(text); err != nil {
			return errors.Wrap(errors.ErrCodeParseXML, err, "field %q", f.name)
		}
		return nil
	case FieldNumber:
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return errors.New(errors.ErrCodeParseXML,
				"field %q: invalid number %q", f.name, text)
		}
		return f.SetNumber(value)
	case FieldAngle:
		angle, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return errors.New(errors.ErrCodeParseXML,
				"field %q: invalid angle %q", f.name, text)
		}
		return f.SetAngle(angle)
	case FieldCheckbox:
		return f.SetChecked(strings.EqualFold(text, "true"))
	case FieldDropdown:
		for i, option := range f.options {
			if option.Value == text {
				return f.SetSelectedIndex(i)
			}
		}
		return errors.New(errors.ErrCodeParseXML,
			"field %q: unknown dropdown value %q", f.name, text)
	default:
		return errors.New(errors.ErrCodeParseXML,
			"field %q of kind %s is not serializable", f.name, f.kind)
	}
}

// Copy returns a deep copy of the field. The listener is not carried over.
func (f *Field) Copy() *Field {
	clone := *f
	clone.Listener = nil
	clone.options = append([]DropdownOption(nil), f.options...)
	return &clone
}

func (f *Field) notify() {
	if f.Listener != nil {
		f.Listener.DidUpdateField(f)
	}
}

func (f *Field) wrongKindError(op string) error {
	return errors.New(errors.ErrCodeIllegalState,
		"%s called on field %q of kind %s", op, f.name, f.kind)
}

func (f *Field) constrainedNumber(value float64) float64 {
	if f.precision > 0 {
		value = math.Round(value/f.precision) * f.precision
	}
	value = math.Max(f.min, math.Min(f.max, value))
	// Normalize negative zero so equality checks behave.
	if value == 0 {
		value = 0
	}
	return value
}

func normalizeAngle(angle int) int {
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	return angle
}

func (f *Field) String() string {
	if text, ok := f.SerializedText(); ok {
		return fmt.Sprintf("%s(%s=%s)", f.kind, f.name, text)
	}
	return fmt.Sprintf("%s(%s)", f.kind, f.name)
}
