package block

import (
	"testing"
)

// newStatementBlock builds a block with previous and next connections, the
// shape of a typical statement block.
func newStatementBlock(t *testing.T, shadow bool) *Block {
	t.Helper()
	bb := NewBlockBuilder("statement")
	if err := bb.SetPreviousConnection(true, nil); err != nil {
		t.Fatalf("SetPreviousConnection: %v", err)
	}
	bb.SetNextConnection(true, nil)
	b, err := bb.MakeBlock(shadow, "")
	if err != nil {
		t.Fatalf("MakeBlock: %v", err)
	}
	return b
}

// newValueBlock builds a block with an output connection carrying the given
// type checks.
func newValueBlock(t *testing.T, shadow bool, checks []string) *Block {
	t.Helper()
	bb := NewBlockBuilder("value")
	if err := bb.SetOutputConnection(true, checks); err != nil {
		t.Fatalf("SetOutputConnection: %v", err)
	}
	b, err := bb.MakeBlock(shadow, "")
	if err != nil {
		t.Fatalf("MakeBlock: %v", err)
	}
	return b
}

// newValueHolderBlock builds a block with one value input carrying the given
// type checks.
func newValueHolderBlock(t *testing.T, inputName string, checks []string) *Block {
	t.Helper()
	bb := NewBlockBuilder("holder")
	input := NewInput(InputTypeValue, inputName)
	input.Connection().typeChecks = checks
	bb.AddInput(input)
	b, err := bb.MakeBlock(false, "")
	if err != nil {
		t.Fatalf("MakeBlock: %v", err)
	}
	return b
}

func TestConnectionOppositeType(t *testing.T) {
	tests := []struct {
		typ  ConnectionType
		want ConnectionType
	}{
		{PreviousStatement, NextStatement},
		{NextStatement, PreviousStatement},
		{InputValue, OutputValue},
		{OutputValue, InputValue},
	}
	for _, tt := range tests {
		if got := tt.typ.OppositeType(); got != tt.want {
			t.Errorf("%v.OppositeType() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestConnectionSuperior(t *testing.T) {
	tests := []struct {
		typ  ConnectionType
		want bool
	}{
		{NextStatement, true},
		{InputValue, true},
		{PreviousStatement, false},
		{OutputValue, false},
	}
	for _, tt := range tests {
		if got := tt.typ.Superior(); got != tt.want {
			t.Errorf("%v.Superior() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestConnectStatementChain(t *testing.T) {
	a := newStatementBlock(t, false)
	b := newStatementBlock(t, false)

	if err := a.NextConnection().ConnectTo(b.PreviousConnection()); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	if got := a.NextBlock(); got != b {
		t.Errorf("a.NextBlock() = %v, want %v", got, b)
	}
	if got := b.PreviousBlock(); got != a {
		t.Errorf("b.PreviousBlock() = %v, want %v", got, a)
	}
	if b.TopLevel() {
		t.Error("b.TopLevel() = true after connecting, want false")
	}
	if !a.TopLevel() {
		t.Error("a.TopLevel() = false, want true")
	}
}

func TestConnectToIsSymmetric(t *testing.T) {
	holder := newValueHolderBlock(t, "VALUE", nil)
	value := newValueBlock(t, false, nil)
	input := holder.FirstInput("VALUE").Connection()

	if err := input.ConnectTo(value.OutputConnection()); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	if got := input.Target(); got != value.OutputConnection() {
		t.Errorf("input.Target() = %v, want the value block's output", got)
	}
	if got := value.OutputConnection().Target(); got != input {
		t.Errorf("output.Target() = %v, want the holder's input", got)
	}

	input.Disconnect()
	if input.Connected() || value.OutputConnection().Connected() {
		t.Error("both sides should be disconnected")
	}
}

func TestConnectToAlreadyConnectedTargetIsNoOp(t *testing.T) {
	a := newStatementBlock(t, false)
	b := newStatementBlock(t, false)
	if err := a.NextConnection().ConnectTo(b.PreviousConnection()); err != nil {
		t.Fatalf("first ConnectTo: %v", err)
	}
	if err := a.NextConnection().ConnectTo(b.PreviousConnection()); err != nil {
		t.Errorf("second ConnectTo: %v, want nil", err)
	}
}

func TestCanConnectWithReason(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (*Connection, *Connection)
		want  CheckResult
	}{
		{
			name: "NilTarget",
			setup: func(t *testing.T) (*Connection, *Connection) {
				return newStatementBlock(t, false).NextConnection(), nil
			},
			want: ReasonTargetNil,
		},
		{
			name: "SelfConnection",
			setup: func(t *testing.T) (*Connection, *Connection) {
				b := newStatementBlock(t, false)
				return b.NextConnection(), b.PreviousConnection()
			},
			want: ReasonSelfConnection,
		},
		{
			name: "WrongType",
			setup: func(t *testing.T) (*Connection, *Connection) {
				a := newStatementBlock(t, false)
				b := newValueBlock(t, false, nil)
				return a.NextConnection(), b.OutputConnection()
			},
			want: ReasonWrongType,
		},
		{
			name: "MustDisconnectOccupiedSuperior",
			setup: func(t *testing.T) (*Connection, *Connection) {
				a := newStatementBlock(t, false)
				b := newStatementBlock(t, false)
				c := newStatementBlock(t, false)
				if err := a.NextConnection().ConnectTo(b.PreviousConnection()); err != nil {
					t.Fatalf("ConnectTo: %v", err)
				}
				return a.NextConnection(), c.PreviousConnection()
			},
			want: ReasonMustDisconnect,
		},
		{
			name: "MustDisconnectOccupiedInferior",
			setup: func(t *testing.T) (*Connection, *Connection) {
				a := newStatementBlock(t, false)
				b := newStatementBlock(t, false)
				c := newStatementBlock(t, false)
				if err := b.PreviousConnection().ConnectTo(a.NextConnection()); err != nil {
					t.Fatalf("ConnectTo: %v", err)
				}
				return c.NextConnection(), b.PreviousConnection()
			},
			want: ReasonMustDisconnect,
		},
		{
			name: "TypeChecksFailed",
			setup: func(t *testing.T) (*Connection, *Connection) {
				holder := newValueHolderBlock(t, "VALUE", []string{"Number"})
				value := newValueBlock(t, false, []string{"String"})
				return holder.FirstInput("VALUE").Connection(), value.OutputConnection()
			},
			want: ReasonTypeChecksFailed,
		},
		{
			name: "ShadowTargetMismatch",
			setup: func(t *testing.T) (*Connection, *Connection) {
				a := newStatementBlock(t, false)
				b := newStatementBlock(t, true)
				return a.NextConnection(), b.PreviousConnection()
			},
			want: ReasonShadowTargetMismatch,
		},
		{
			name: "ShadowToShadowTargetAllowed",
			setup: func(t *testing.T) (*Connection, *Connection) {
				a := newStatementBlock(t, true)
				b := newStatementBlock(t, true)
				return a.NextConnection(), b.PreviousConnection()
			},
			want: 0,
		},
		{
			name: "AggregatesMultipleReasons",
			setup: func(t *testing.T) (*Connection, *Connection) {
				a := newStatementBlock(t, false)
				b := newValueBlock(t, true, nil)
				return a.NextConnection(), b.OutputConnection()
			},
			want: ReasonWrongType | ReasonShadowTargetMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.setup(t)
			got := a.CanConnectWithReasonTo(b)
			if got != tt.want {
				t.Errorf("CanConnectWithReasonTo = %v (%s), want %v (%s)",
					got, got, tt.want, tt.want)
			}
			if gotErr := a.ConnectTo(b); (gotErr == nil) != tt.want.CanConnect() {
				t.Errorf("ConnectTo error = %v, want failure = %v", gotErr, !tt.want.CanConnect())
			}
		})
	}
}

func TestConnectShadow(t *testing.T) {
	tests := []struct {
		name     string
		superior func(t *testing.T) *Connection
		inferior func(t *testing.T) *Connection
		want     CheckResult
	}{
		{
			name: "RealSuperiorShadowInferior",
			superior: func(t *testing.T) *Connection {
				return newValueHolderBlock(t, "VALUE", nil).FirstInput("VALUE").Connection()
			},
			inferior: func(t *testing.T) *Connection {
				return newValueBlock(t, true, nil).OutputConnection()
			},
			want: 0,
		},
		{
			name: "RealInferiorRejected",
			superior: func(t *testing.T) *Connection {
				return newValueHolderBlock(t, "VALUE", nil).FirstInput("VALUE").Connection()
			},
			inferior: func(t *testing.T) *Connection {
				return newValueBlock(t, false, nil).OutputConnection()
			},
			want: ReasonInferiorShadowMismatch,
		},
		{
			name: "ShadowSuperiorRejected",
			superior: func(t *testing.T) *Connection {
				a := newStatementBlock(t, true)
				return a.NextConnection()
			},
			inferior: func(t *testing.T) *Connection {
				return newStatementBlock(t, true).PreviousConnection()
			},
			want: ReasonInferiorShadowMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			superior := tt.superior(t)
			inferior := tt.inferior(t)
			got := superior.CanConnectShadowWithReasonTo(inferior)
			if got != tt.want {
				t.Errorf("CanConnectShadowWithReasonTo = %v (%s), want %v", got, got, tt.want)
			}
			err := superior.ConnectShadowTo(inferior)
			if (err == nil) != tt.want.CanConnect() {
				t.Errorf("ConnectShadowTo error = %v, want failure = %v", err, !tt.want.CanConnect())
			}
			if tt.want.CanConnect() {
				if superior.ShadowBlock() != inferior.SourceBlock() {
					t.Error("superior.ShadowBlock() should be the inferior's block")
				}
				superior.DisconnectShadow()
				if superior.ShadowConnected() || inferior.ShadowConnected() {
					t.Error("both sides should be shadow-disconnected")
				}
			}
		})
	}
}

func TestShadowAndTargetCoexist(t *testing.T) {
	holder := newValueHolderBlock(t, "VALUE", nil)
	input := holder.FirstInput("VALUE").Connection()
	shadow := newValueBlock(t, true, nil)
	real := newValueBlock(t, false, nil)

	if err := input.ConnectShadowTo(shadow.OutputConnection()); err != nil {
		t.Fatalf("ConnectShadowTo: %v", err)
	}
	if err := input.ConnectTo(real.OutputConnection()); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	if input.TargetBlock() != real {
		t.Errorf("TargetBlock = %v, want %v", input.TargetBlock(), real)
	}
	if input.ShadowBlock() != shadow {
		t.Errorf("ShadowBlock = %v, want %v", input.ShadowBlock(), shadow)
	}

	input.Disconnect()
	if input.ShadowBlock() != shadow {
		t.Error("shadow bond should survive a target disconnect")
	}
}

func TestSetTypeChecksDisconnectsIncompatible(t *testing.T) {
	holder := newValueHolderBlock(t, "VALUE", []string{"Number"})
	value := newValueBlock(t, false, []string{"Number"})
	input := holder.FirstInput("VALUE").Connection()
	if err := input.ConnectTo(value.OutputConnection()); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}

	input.SetTypeChecks([]string{"String"})
	if input.Connected() {
		t.Error("incompatible target should have been disconnected")
	}
	if value.OutputConnection().Connected() {
		t.Error("disconnect should be symmetric")
	}
}

type recordingPositionDelegate struct {
	wills int
	dids  int
}

func (d *recordingPositionDelegate) WillChangePosition(*Connection) { d.wills++ }
func (d *recordingPositionDelegate) DidChangePosition(*Connection)  { d.dids++ }

func TestMoveToPosition(t *testing.T) {
	c := NewConnection(InputValue)
	delegate := &recordingPositionDelegate{}
	c.PositionDelegate = delegate

	c.MoveToPosition(WorkspacePoint{X: 10, Y: 20}, WorkspacePoint{X: 1, Y: 2})
	if got, want := c.Position(), (WorkspacePoint{X: 11, Y: 22}); got != want {
		t.Errorf("Position = %v, want %v", got, want)
	}
	if delegate.wills != 1 || delegate.dids != 1 {
		t.Errorf("delegate calls = %d/%d, want 1/1", delegate.wills, delegate.dids)
	}

	// Same position again must not renotify.
	c.MoveToPosition(WorkspacePoint{X: 11, Y: 22}, WorkspacePointZero)
	if delegate.wills != 1 || delegate.dids != 1 {
		t.Errorf("delegate calls after no-op move = %d/%d, want 1/1", delegate.wills, delegate.dids)
	}
}
