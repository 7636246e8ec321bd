package curriculum

import (
	"errors"
	"testing"
)

func TestVocabularyReservedTokens(t *testing.T) {
	v := NewVocabulary()

	if v.Size() != 2 {
		t.Fatalf("Size() = %d, expected 2", v.Size())
	}
	if id, err := v.Lookup(PadToken); err != nil || id != PadID {
		t.Fatalf("Lookup(%q) = %d, %v", PadToken, id, err)
	}
	if id, err := v.Lookup(EOSToken); err != nil || id != EOSID {
		t.Fatalf("Lookup(%q) = %d, %v", EOSToken, id, err)
	}
}

func TestVocabularyAddAndFreeze(t *testing.T) {
	v := NewVocabulary()

	first, err := v.Add("train")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	again, err := v.Add("train")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if first != again || first != 2 {
		t.Fatalf("Add ids = %d, %d, expected 2 twice", first, again)
	}

	v.Freeze()
	if _, err := v.Add("flight"); !errors.Is(err, ErrVocabularyFrozen) {
		t.Fatalf("Add after Freeze error = %v, expected ErrVocabularyFrozen", err)
	}
	if _, err := v.Add("train"); err != nil {
		t.Fatalf("Add of existing token after Freeze failed: %v", err)
	}
	if _, err := v.Lookup("flight"); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("Lookup error = %v, expected ErrUnknownToken", err)
	}
}

func TestNewTaskValidation(t *testing.T) {
	tests := []struct {
		name    string
		inputs  [][]int
		targets [][]int
		seqLen  int
		wantErr bool
	}{
		{name: "valid", inputs: [][]int{{2, 3, 1}}, targets: [][]int{{3, 1, 0}}, seqLen: 3},
		{name: "count mismatch", inputs: [][]int{{2, 3, 1}}, targets: nil, seqLen: 3, wantErr: true},
		{name: "short row", inputs: [][]int{{2, 3}}, targets: [][]int{{3, 1, 0}}, seqLen: 3, wantErr: true},
		{name: "long target", inputs: [][]int{{2, 3, 1}}, targets: [][]int{{3, 1, 0, 0}}, seqLen: 3, wantErr: true},
		{name: "empty", inputs: [][]int{}, targets: [][]int{}, seqLen: 3, wantErr: true},
		{name: "zero length", inputs: [][]int{{}}, targets: [][]int{{}}, seqLen: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTask("T", tt.inputs, tt.targets, tt.seqLen)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTask) {
					t.Fatalf("error = %v, expected ErrMalformedTask", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{name: "default", def: DefaultDefinition()},
		{name: "empty", def: Definition{}, wantErr: true},
		{name: "unnamed", def: Definition{{Name: " ", Sentences: []string{"a b"}}}, wantErr: true},
		{name: "duplicate", def: Definition{{Name: "A", Sentences: []string{"a"}}, {Name: "A", Sentences: []string{"b"}}}, wantErr: true},
		{name: "no sentences", def: Definition{{Name: "A"}}, wantErr: true},
		{name: "blank sentence", def: Definition{{Name: "A", Sentences: []string{"   "}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidCurriculum) {
				t.Fatalf("error = %v, expected ErrInvalidCurriculum", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseDefinitionKeepsOrder(t *testing.T) {
	data := []byte(`[{"name":"B","sentences":["x y"]},{"name":"A","sentences":["y z"]}]`)

	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("ParseDefinition failed: %v", err)
	}
	if len(def) != 2 || def[0].Name != "B" || def[1].Name != "A" {
		t.Fatalf("unexpected order: %+v", def)
	}

	rev := def.Reversed()
	if rev[0].Name != "A" || rev[1].Name != "B" {
		t.Fatalf("Reversed() = %+v", rev)
	}
	if def[0].Name != "B" {
		t.Fatalf("Reversed mutated the receiver")
	}
}
