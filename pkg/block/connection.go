package block

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/errors"
)

// ConnectionType identifies the role a connection plays on its source block.
// The type determines the unique compatible opposite type: previous↔next form
// statement chains, input↔output form value nesting.
type ConnectionType int

const (
	// PreviousStatement connects up to a next-statement connection.
	PreviousStatement ConnectionType = iota
	// NextStatement connects down to a previous-statement connection.
	NextStatement
	// InputValue accepts an output-value connection.
	InputValue
	// OutputValue plugs into an input-value connection.
	OutputValue
)

// OppositeType returns the only connection type this type can bond with.
func (t ConnectionType) OppositeType() ConnectionType {
	switch t {
	case PreviousStatement:
		return NextStatement
	case NextStatement:
		return PreviousStatement
	case InputValue:
		return OutputValue
	default:
		return InputValue
	}
}

// Superior reports whether this connection type accepts a child
// (next-statement and input-value connections). Inferior connections
// (previous-statement and output-value) attach their block to a parent.
func (t ConnectionType) Superior() bool {
	return t == NextStatement || t == InputValue
}

func (t ConnectionType) String() string {
	switch t {
	case PreviousStatement:
		return "previous"
	case NextStatement:
		return "next"
	case InputValue:
		return "input"
	case OutputValue:
		return "output"
	default:
		return "unknown"
	}
}

// CheckResult is a bit-set of reasons a connection attempt is invalid.
// A zero CheckResult means the connection is allowed. Validation aggregates
// every violated rule, not just the first one found.
type CheckResult uint16

const (
	// ReasonSelfConnection is set when both connections belong to the same block.
	ReasonSelfConnection CheckResult = 1 << iota
	// ReasonWrongType is set when the target's type is not the exact opposite type.
	ReasonWrongType
	// ReasonMustDisconnect is set when either side already has a target connection.
	ReasonMustDisconnect
	// ReasonTargetNil is set when the candidate target connection is nil.
	ReasonTargetNil
	// ReasonShadowNil is set when the candidate shadow connection is nil.
	ReasonShadowNil
	// ReasonTypeChecksFailed is set when both sides declare type checks and the
	// sets do not intersect.
	ReasonTypeChecksFailed
	// ReasonSourceBlockNil is set when either connection has no source block.
	ReasonSourceBlockNil
	// ReasonShadowTargetMismatch is set when exactly one side of a target
	// connection belongs to a shadow block. Shadow blocks only bond to other
	// shadow blocks through target connections; real blocks occupy shadows
	// through shadow connections instead.
	ReasonShadowTargetMismatch
	// ReasonInferiorShadowMismatch is set on shadow connection attempts when the
	// inferior (output/previous) side does not belong to a shadow block, or the
	// superior side does.
	ReasonInferiorShadowMismatch
)

// CanConnect reports whether the check found no violations.
func (r CheckResult) CanConnect() bool { return r == 0 }

// Contains reports whether the result includes the given reason.
func (r CheckResult) Contains(reason CheckResult) bool { return r&reason != 0 }

var checkResultDescriptions = []struct {
	reason CheckResult
	text   string
}{
	{ReasonSelfConnection, "cannot connect a block to itself"},
	{ReasonWrongType, "connection types are not opposites"},
	{ReasonMustDisconnect, "a connection must be disconnected first"},
	{ReasonTargetNil, "target connection is nil"},
	{ReasonShadowNil, "shadow connection is nil"},
	{ReasonTypeChecksFailed, "type checks do not intersect"},
	{ReasonSourceBlockNil, "connection has no source block"},
	{ReasonShadowTargetMismatch, "shadow and non-shadow blocks cannot share a target connection"},
	{ReasonInferiorShadowMismatch, "the inferior side of a shadow connection must be a shadow block"},
}

// String lists every violated rule, comma separated.
func (r CheckResult) String() string {
	if r == 0 {
		return "can connect"
	}
	var parts []string
	for _, d := range checkResultDescriptions {
		if r.Contains(d.reason) {
			parts = append(parts, d.text)
		}
	}
	return strings.Join(parts, ", ")
}

// Error converts a failed check into a structured CONNECTION_INVALID error.
// Returns nil when the check passed.
func (r CheckResult) Error() error {
	if r.CanConnect() {
		return nil
	}
	return errors.New(errors.ErrCodeConnectionInvalid, "%s", r.String())
}

// PositionDelegate is notified around connection position changes. The layout
// coordinator registers a delegate to keep its spatial index current.
type PositionDelegate interface {
	WillChangePosition(c *Connection)
	DidChangePosition(c *Connection)
}

// Connection is a typed endpoint on a block that may bond to exactly one
// compatible opposite-type connection, and independently to one shadow
// connection supplying fallback content.
//
// Both the target and shadow relations are symmetric: a.Target() == b implies
// b.Target() == a. Connections are created by their owning block or input and
// live exactly as long as it does.
type Connection struct {
	uuid        string
	typ         ConnectionType
	position    WorkspacePoint
	typeChecks  []string // nil means compatible with anything
	target      *Connection
	shadow      *Connection
	sourceBlock *Block
	sourceInput *Input

	// PositionDelegate receives WillChangePosition/DidChangePosition callbacks.
	PositionDelegate PositionDelegate
}

// NewConnection creates an unattached connection of the given type.
func NewConnection(t ConnectionType) *Connection {
	return &Connection{
		uuid: uuid.NewString(),
		typ:  t,
	}
}

// UUID returns the connection's stable identifier.
func (c *Connection) UUID() string { return c.uuid }

// Type returns the connection's type.
func (c *Connection) Type() ConnectionType { return c.typ }

// Position returns the connection's location in workspace coordinates.
func (c *Connection) Position() WorkspacePoint { return c.position }

// SourceBlock returns the block this connection belongs to.
func (c *Connection) SourceBlock() *Block { return c.sourceBlock }

// SourceInput returns the input this connection belongs to, or nil for
// previous/next/output connections owned directly by a block.
func (c *Connection) SourceInput() *Input { return c.sourceInput }

// Target returns the connected opposite connection, or nil.
func (c *Connection) Target() *Connection { return c.target }

// Shadow returns the connected shadow connection, or nil.
func (c *Connection) Shadow() *Connection { return c.shadow }

// TargetBlock returns the source block of the target connection, or nil.
func (c *Connection) TargetBlock() *Block {
	if c.target == nil {
		return nil
	}
	return c.target.sourceBlock
}

// ShadowBlock returns the source block of the shadow connection, or nil.
func (c *Connection) ShadowBlock() *Block {
	if c.shadow == nil {
		return nil
	}
	return c.shadow.sourceBlock
}

// Connected reports whether a target connection is attached.
func (c *Connection) Connected() bool { return c.target != nil }

// ShadowConnected reports whether a shadow connection is attached.
func (c *Connection) ShadowConnected() bool { return c.shadow != nil }

// Superior reports whether this connection accepts a child block.
func (c *Connection) Superior() bool { return c.typ.Superior() }

// TypeChecks returns the compatibility set, or nil when unrestricted.
func (c *Connection) TypeChecks() []string { return c.typeChecks }

// SetTypeChecks replaces the compatibility set. If an existing target or
// shadow connection is no longer compatible it is disconnected as a side
// effect, mirroring how editors react to block definition changes.
func (c *Connection) SetTypeChecks(checks []string) {
	c.typeChecks = checks
	if c.target != nil && !c.typeChecksMatch(c.target) {
		c.Disconnect()
	}
	if c.shadow != nil && !c.typeChecksMatch(c.shadow) {
		c.DisconnectShadow()
	}
}

// MoveToPosition sets the connection's workspace position, notifying the
// position delegate before and after so spatial indexes can rebucket it.
// Offset is added to the base position.
func (c *Connection) MoveToPosition(base WorkspacePoint, offset WorkspacePoint) {
	next := base.Offset(offset)
	if c.position == next {
		return
	}
	if c.PositionDelegate != nil {
		c.PositionDelegate.WillChangePosition(c)
	}
	c.position = next
	if c.PositionDelegate != nil {
		c.PositionDelegate.DidChangePosition(c)
	}
}

// CanConnectTo reports whether ConnectTo(target) would succeed.
func (c *Connection) CanConnectTo(target *Connection) bool {
	return c.CanConnectWithReasonTo(target).CanConnect()
}

// CanConnectWithReasonTo validates a prospective target connection and
// returns the set of all violated rules. A zero result means the connection
// is allowed.
func (c *Connection) CanConnectWithReasonTo(target *Connection) CheckResult {
	var result CheckResult
	if target == nil {
		result |= ReasonTargetNil
		if c.sourceBlock == nil {
			result |= ReasonSourceBlockNil
		}
		return result
	}
	if c.sourceBlock == nil || target.sourceBlock == nil {
		result |= ReasonSourceBlockNil
	}
	if c.sourceBlock != nil && c.sourceBlock == target.sourceBlock {
		result |= ReasonSelfConnection
	}
	if target.typ != c.typ.OppositeType() {
		result |= ReasonWrongType
	}
	if (c.target != nil && c.target != target) || (target.target != nil && target.target != c) {
		result |= ReasonMustDisconnect
	}
	if !c.typeChecksMatch(target) {
		result |= ReasonTypeChecksFailed
	}
	if c.sourceBlock != nil && target.sourceBlock != nil &&
		c.sourceBlock.shadow != target.sourceBlock.shadow {
		result |= ReasonShadowTargetMismatch
	}
	return result
}

// ConnectTo bonds this connection to target symmetrically. A no-op when
// already connected to target. Returns a CONNECTION_INVALID error listing
// every violated rule on failure; no state changes on failure.
func (c *Connection) ConnectTo(target *Connection) error {
	if target != nil && c.target == target {
		return nil // already connected
	}
	if result := c.CanConnectWithReasonTo(target); !result.CanConnect() {
		return result.Error()
	}
	c.target = target
	target.target = c
	return nil
}

// Disconnect breaks the target bond on both sides. No-op when unconnected.
func (c *Connection) Disconnect() {
	if c.target == nil {
		return
	}
	other := c.target
	c.target = nil
	other.target = nil
}

// CanConnectShadowTo reports whether ConnectShadowTo(shadow) would succeed.
func (c *Connection) CanConnectShadowTo(shadow *Connection) bool {
	return c.CanConnectShadowWithReasonTo(shadow).CanConnect()
}

// CanConnectShadowWithReasonTo validates a prospective shadow connection.
// In addition to the target rules, the inferior (output/previous) side of a
// shadow bond must belong to a shadow block and the superior side must not.
func (c *Connection) CanConnectShadowWithReasonTo(shadow *Connection) CheckResult {
	var result CheckResult
	if shadow == nil {
		result |= ReasonShadowNil
		if c.sourceBlock == nil {
			result |= ReasonSourceBlockNil
		}
		return result
	}
	if c.sourceBlock == nil || shadow.sourceBlock == nil {
		result |= ReasonSourceBlockNil
	}
	if c.sourceBlock != nil && c.sourceBlock == shadow.sourceBlock {
		result |= ReasonSelfConnection
	}
	if shadow.typ != c.typ.OppositeType() {
		result |= ReasonWrongType
	}
	if (c.shadow != nil && c.shadow != shadow) || (shadow.shadow != nil && shadow.shadow != c) {
		result |= ReasonMustDisconnect
	}
	if !c.typeChecksMatch(shadow) {
		result |= ReasonTypeChecksFailed
	}
	if !result.Contains(ReasonWrongType) && !result.Contains(ReasonSourceBlockNil) {
		inferior, superior := c, shadow
		if c.Superior() {
			inferior, superior = shadow, c
		}
		if !inferior.sourceBlock.shadow || superior.sourceBlock.shadow {
			result |= ReasonInferiorShadowMismatch
		}
	}
	return result
}

// ConnectShadowTo bonds this connection's shadow link to shadow symmetrically.
// A no-op when already bonded. Returns a CONNECTION_INVALID error on failure.
func (c *Connection) ConnectShadowTo(shadow *Connection) error {
	if shadow != nil && c.shadow == shadow {
		return nil // already connected
	}
	if result := c.CanConnectShadowWithReasonTo(shadow); !result.CanConnect() {
		return result.Error()
	}
	c.shadow = shadow
	shadow.shadow = c
	return nil
}

// DisconnectShadow breaks the shadow bond on both sides. No-op when unset.
func (c *Connection) DisconnectShadow() {
	if c.shadow == nil {
		return
	}
	other := c.shadow
	c.shadow = nil
	other.shadow = nil
}

// typeChecksMatch reports whether the two connections' type-check sets permit
// a bond. A nil set on either side is compatible with anything.
func (c *Connection) typeChecksMatch(other *Connection) bool {
	if c.typeChecks == nil || other.typeChecks == nil {
		return true
	}
	for _, mine := range c.typeChecks {
		for _, theirs := range other.typeChecks {
			if mine == theirs {
				return true
			}
		}
	}
	return false
}
