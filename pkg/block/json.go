package block

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/jheling/blockwork/pkg/errors"
)

// builderFromDefinition assembles a block builder from one decoded JSON
// definition object. Mutator and extension names are resolved against the
// factory's registries here, so unknown references fail at load time rather
// than at block construction.
func (f *BlockFactory) builderFromDefinition(def map[string]any) (*BlockBuilder, error) {
	name, _ := def["type"].(string)
	if name == "" {
		return nil, errors.New(errors.ErrCodeParseJSON,
			"block definition is missing its \"type\" key")
	}
	bb := NewBlockBuilder(name)

	if raw, ok := def["colour"]; ok {
		color, err := parseColor(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseJSON, err, "block %q", name)
		}
		bb.Color = color
	}
	if raw, ok := def["inputsInline"]; ok {
		inline, ok := raw.(bool)
		if !ok {
			return nil, errors.New(errors.ErrCodeParseJSON,
				"block %q: \"inputsInline\" must be a boolean", name)
		}
		bb.InputsInline = inline
	}
	if raw, ok := def["output"]; ok {
		checks, err := parseTypeChecks(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseJSON, err, "block %q output", name)
		}
		if err := bb.SetOutputConnection(true, checks); err != nil {
			return nil, err
		}
	}
	if raw, ok := def["previousStatement"]; ok {
		checks, err := parseTypeChecks(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseJSON, err, "block %q previousStatement", name)
		}
		if err := bb.SetPreviousConnection(true, checks); err != nil {
			return nil, err
		}
	}
	if raw, ok := def["nextStatement"]; ok {
		checks, err := parseTypeChecks(raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseJSON, err, "block %q nextStatement", name)
		}
		bb.SetNextConnection(true, checks)
	}
	if raw, ok := def["style"]; ok {
		style, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeParseJSON,
				"block %q: \"style\" must be an object", name)
		}
		if hat, ok := style["hat"].(string); ok {
			bb.Style.HatType = hat
		}
	}

	for i := 0; ; i++ {
		rawMessage, ok := def[fmt.Sprintf("message%d", i)]
		if !ok {
			break
		}
		message, ok := rawMessage.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeParseJSON,
				"block %q: \"message%d\" must be a string", name, i)
		}
		var args []any
		if rawArgs, ok := def[fmt.Sprintf("args%d", i)]; ok {
			args, ok = rawArgs.([]any)
			if !ok {
				return nil, errors.New(errors.ErrCodeParseJSON,
					"block %q: \"args%d\" must be an array", name, i)
			}
		}
		if err := interpolateMessage(bb, message, args); err != nil {
			// Keep the inner code: a bad dropdown surfaces as INVALID_ARGUMENT,
			// a malformed message as PARSE_JSON.
			return nil, errors.Wrap(errors.GetCode(err), err, "block %q message%d", name, i)
		}
	}

	if raw, ok := def["mutator"]; ok {
		mutatorName, ok := raw.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeParseJSON,
				"block %q: \"mutator\" must be a string", name)
		}
		factory, ok := f.mutators[mutatorName]
		if !ok {
			return nil, errors.New(errors.ErrCodeParseJSON,
				"block %q references unknown mutator %q", name, mutatorName)
		}
		bb.SetMutator(factory())
	}
	if raw, ok := def["extensions"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeParseJSON,
				"block %q: \"extensions\" must be an array", name)
		}
		for _, entry := range list {
			extensionName, ok := entry.(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeParseJSON,
					"block %q: extension names must be strings", name)
			}
			extension, ok := f.extensions[extensionName]
			if !ok {
				return nil, errors.New(errors.ErrCodeParseJSON,
					"block %q references unknown extension %q", name, extensionName)
			}
			bb.AddExtension(extension)
		}
	}
	return bb, nil
}

type messageTokenKind int

const (
	tokenText messageTokenKind = iota
	tokenNewline
	tokenArg
)

type messageToken struct {
	kind  messageTokenKind
	text  string
	index int
}

// interpolateMessage turns one message string and its args into inputs and
// fields on the builder. Literal text becomes label fields, %N placeholders
// resolve to the N-th arg, a newline forces a row break, and fields left
// over at the end of the message are wrapped in a dummy input.
func interpolateMessage(bb *BlockBuilder, message string, args []any) error {
	referenced := make([]bool, len(args))
	var pendingFields []*Field

	flushDummy := func() {
		if len(pendingFields) == 0 {
			return
		}
		input := NewInput(InputTypeDummy, "")
		for _, field := range pendingFields {
			input.AppendField(field)
		}
		bb.AddInput(input)
		pendingFields = nil
	}

	for _, token := range tokenizeMessage(message) {
		switch token.kind {
		case tokenText:
			if text := strings.TrimSpace(token.text); text != "" {
				pendingFields = append(pendingFields, NewFieldLabel("", text))
			}
		case tokenNewline:
			flushDummy()
		case tokenArg:
			index := token.index - 1
			if index < 0 || index >= len(args) {
				return errors.New(errors.ErrCodeParseJSON,
					"message references %%%d but only %d args are defined", token.index, len(args))
			}
			if referenced[index] {
				return errors.New(errors.ErrCodeParseJSON,
					"message references %%%d more than once", token.index)
			}
			referenced[index] = true
			spec, ok := args[index].(map[string]any)
			if !ok {
				return errors.New(errors.ErrCodeParseJSON,
					"arg %d must be an object", token.index)
			}
			field, input, err := parseArg(spec)
			if err != nil {
				return err
			}
			if field != nil {
				pendingFields = append(pendingFields, field)
			}
			if input != nil {
				for _, pending := range pendingFields {
					input.AppendField(pending)
				}
				pendingFields = nil
				bb.AddInput(input)
			}
		}
	}
	flushDummy()

	for i, used := range referenced {
		if !used {
			return errors.New(errors.ErrCodeParseJSON,
				"message does not reference arg %d", i+1)
		}
	}
	return nil
}

func tokenizeMessage(message string) []messageToken {
	var tokens []messageToken
	var text strings.Builder
	flushText := func() {
		if text.Len() > 0 {
			tokens = append(tokens, messageToken{kind: tokenText, text: text.String()})
			text.Reset()
		}
	}
	runes := []rune(message)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '%':
			if i+1 < len(runes) && runes[i+1] == '%' {
				text.WriteRune('%')
				i++
				continue
			}
			j := i + 1
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			if j == i+1 {
				text.WriteRune('%')
				continue
			}
			flushText()
			index, _ := strconv.Atoi(string(runes[i+1 : j]))
			tokens = append(tokens, messageToken{kind: tokenArg, index: index})
			i = j - 1
		case '\n':
			flushText()
			tokens = append(tokens, messageToken{kind: tokenNewline})
		default:
			text.WriteRune(r)
		}
	}
	flushText()
	return tokens
}

// parseArg decodes one args entry into either a field or an input. Unknown
// types fall back to the entry's "alt" spec when one is present.
func parseArg(spec map[string]any) (*Field, *Input, error) {
	argType, _ := spec["type"].(string)
	name, _ := spec["name"].(string)

	switch argType {
	case "field_label":
		return NewFieldLabel(name, jsonString(spec, "text", "")), nil, nil
	case "field_input":
		return NewFieldInput(name, jsonString(spec, "text", "")), nil, nil
	case "field_number":
		field := NewFieldNumber(name, jsonNumber(spec, "value", 0))
		min := jsonNumber(spec, "min", math.Inf(-1))
		max := jsonNumber(spec, "max", math.Inf(1))
		precision := jsonNumber(spec, "precision", 0)
		if err := field.SetConstraints(min, max, precision); err != nil {
			return nil, nil, err
		}
		return field, nil, nil
	case "field_angle":
		return NewFieldAngle(name, int(jsonNumber(spec, "angle", 0))), nil, nil
	case "field_checkbox":
		checked, _ := spec["checked"].(bool)
		return NewFieldCheckbox(name, checked), nil, nil
	case "field_colour":
		color, err := parseColor(spec["colour"])
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeParseJSON, err, "field %q", name)
		}
		return NewFieldColor(name, color), nil, nil
	case "field_date":
		return NewFieldDate(name, jsonString(spec, "date", "")), nil, nil
	case "field_dropdown":
		options, err := parseDropdownOptions(name, spec["options"])
		if err != nil {
			return nil, nil, err
		}
		field, err := NewFieldDropdown(name, options, 0)
		if err != nil {
			return nil, nil, err
		}
		return field, nil, nil
	case "field_variable":
		return NewFieldVariable(name, jsonString(spec, "variable", "item")), nil, nil
	case "field_image":
		size := WorkspaceSize{
			Width:  jsonNumber(spec, "width", 0),
			Height: jsonNumber(spec, "height", 0),
		}
		source := jsonString(spec, "src", "")
		alt := jsonString(spec, "alt", "")
		return NewFieldImage(name, source, size, alt), nil, nil
	case "input_value", "input_statement", "input_dummy":
		var input *Input
		switch argType {
		case "input_value":
			input = NewInput(InputTypeValue, name)
		case "input_statement":
			input = NewInput(InputTypeStatement, name)
		default:
			input = NewInput(InputTypeDummy, name)
		}
		if raw, ok := spec["check"]; ok && input.connection != nil {
			checks, err := parseTypeChecks(raw)
			if err != nil {
				return nil, nil, errors.Wrap(errors.ErrCodeParseJSON, err, "input %q check", name)
			}
			input.connection.typeChecks = checks
		}
		if raw, ok := spec["align"].(string); ok {
			input.SetAlignment(parseAlignment(raw))
		}
		return nil, input, nil
	default:
		if alt, ok := spec["alt"].(map[string]any); ok {
			return parseArg(alt)
		}
		return nil, nil, errors.New(errors.ErrCodeParseJSON,
			"unknown arg type %q with no \"alt\" fallback", argType)
	}
}

func parseDropdownOptions(fieldName string, raw any) ([]DropdownOption, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeParseJSON,
			"dropdown field %q: \"options\" must be an array", fieldName)
	}
	options := make([]DropdownOption, 0, len(list))
	for i, entry := range list {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidArgument,
				"dropdown field %q: option %d must be a [display, value] pair", fieldName, i)
		}
		display, displayOK := pair[0].(string)
		value, valueOK := pair[1].(string)
		if !displayOK || !valueOK {
			return nil, errors.New(errors.ErrCodeInvalidArgument,
				"dropdown field %q: option %d must hold two strings", fieldName, i)
		}
		options = append(options, DropdownOption{DisplayName: display, Value: value})
	}
	return options, nil
}

// parseTypeChecks accepts the three shapes a connection check may take in a
// definition: null (anything connects), a single string, or a string array.
func parseTypeChecks(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{value}, nil
	case []any:
		checks := make([]string, 0, len(value))
		for _, entry := range value {
			check, ok := entry.(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeParseJSON,
					"type checks must be strings, got %T", entry)
			}
			checks = append(checks, check)
		}
		return checks, nil
	default:
		return nil, errors.New(errors.ErrCodeParseJSON,
			"type check must be null, a string, or a string array, got %T", raw)
	}
}

// parseColor accepts a hue number or a "#rrggbb" string.
func parseColor(raw any) (string, error) {
	switch value := raw.(type) {
	case float64:
		return hueToHex(value), nil
	case string:
		if !hexColorPattern.MatchString(value) {
			return "", errors.New(errors.ErrCodeParseJSON, "invalid color %q", value)
		}
		return value, nil
	default:
		return "", errors.New(errors.ErrCodeParseJSON,
			"color must be a hue number or \"#rrggbb\" string, got %T", raw)
	}
}

// hueToHex renders a hue through the fixed saturation/value pairing used for
// block colors, so hue-only definitions land on the familiar muted palette.
func hueToHex(hue float64) string {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	const saturation, value = 0.45, 0.65
	c := value * saturation
	x := c * (1 - math.Abs(math.Mod(hue/60, 2)-1))
	m := value - c
	var r, g, b float64
	switch {
	case hue < 60:
		r, g, b = c, x, 0
	case hue < 120:
		r, g, b = x, c, 0
	case hue < 180:
		r, g, b = 0, c, x
	case hue < 240:
		r, g, b = 0, x, c
	case hue < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return fmt.Sprintf("#%02x%02x%02x",
		int(math.Round((r+m)*255)),
		int(math.Round((g+m)*255)),
		int(math.Round((b+m)*255)))
}

func jsonString(spec map[string]any, key, fallback string) string {
	if value, ok := spec[key].(string); ok {
		return value
	}
	return fallback
}

func jsonNumber(spec map[string]any, key string, fallback float64) float64 {
	if value, ok := spec[key].(float64); ok {
		return value
	}
	return fallback
}

func parseAlignment(raw string) InputAlignment {
	switch strings.ToUpper(raw) {
	case "CENTRE", "CENTER":
		return AlignCenter
	case "RIGHT":
		return AlignRight
	default:
		return AlignLeft
	}
}
