package ir

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestInstructionRoundTripLabel(t *testing.T) {
	data := []byte(`{"label": "loop"}`)
	var in Instruction
	if err := json.Unmarshal(data, &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.IsLabel() || in.Label != "loop" {
		t.Fatalf("got %+v, want label %q", in, "loop")
	}
	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Instruction
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, in) {
		t.Fatalf("round trip mismatch: %+v != %+v", back, in)
	}
}

func TestInstructionConstPreservesIntVsFloat(t *testing.T) {
	var intInstr, floatInstr Instruction
	if err := json.Unmarshal([]byte(`{"op":"const","dest":"x","type":"int","value":5}`), &intInstr); err != nil {
		t.Fatalf("unmarshal int: %v", err)
	}
	if v, ok := intInstr.Value.(int64); !ok || v != 5 {
		t.Fatalf("want int64(5), got %#v", intInstr.Value)
	}

	if err := json.Unmarshal([]byte(`{"op":"const","dest":"y","type":"float","value":5.5}`), &floatInstr); err != nil {
		t.Fatalf("unmarshal float: %v", err)
	}
	if v, ok := floatInstr.Value.(float64); !ok || v != 5.5 {
		t.Fatalf("want float64(5.5), got %#v", floatInstr.Value)
	}
}

func TestInstructionUnknownOpRejected(t *testing.T) {
	var in Instruction
	err := json.Unmarshal([]byte(`{"op":"frobnicate","dest":"x"}`), &in)
	if err == nil {
		t.Fatal("expected an error for an unknown opcode")
	}
}

func TestTypeArrayRoundTrip(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`{"base":"int","size":4}`), &typ); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typ.Array == nil || typ.Array.Base != "int" || typ.Array.Size != 4 {
		t.Fatalf("got %+v", typ)
	}
	out, err := json.Marshal(typ)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"base":"int","size":4}` {
		t.Fatalf("got %s", out)
	}
}

func TestTypePrimitiveRoundTrip(t *testing.T) {
	var typ Type
	if err := json.Unmarshal([]byte(`"bool"`), &typ); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typ.Base != "bool" || typ.Array != nil {
		t.Fatalf("got %+v", typ)
	}
}

func TestIsTop(t *testing.T) {
	if IsTop(int64(5)) {
		t.Fatal("int64(5) should not be Top")
	}
	if !IsTop(Top) {
		t.Fatal("Top should be Top")
	}
}

func TestOpIsTerminator(t *testing.T) {
	for _, op := range []Op{OpJmp, OpBr, OpRet} {
		if !op.IsTerminator() {
			t.Errorf("%s should be a terminator", op)
		}
	}
	if OpAdd.IsTerminator() {
		t.Fatal("add should not be a terminator")
	}
}
