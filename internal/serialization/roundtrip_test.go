package serialization

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/bornc/internal/builders"
	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/lower"
)

// testProgram lowers: out = x + arange(0, 5) * 2
func testProgram(t *testing.T) *lower.Program {
	t.Helper()
	meta := graph.Meta{Shape: []int{5}, DType: "torch.int64"}
	g := graph.New("positions")
	x := g.Placeholder("x", meta)
	r := g.CallFunction("arange", builders.TargetArangeStartStep, []graph.Argument{graph.Int(0), graph.Int(5)}, nil, meta)
	scaled := g.CallFunction("scaled", "aten.mul.Tensor", []graph.Argument{graph.Ref(r), graph.Int(2)}, nil, meta)
	sum := g.CallFunction("sum", "aten.add.Tensor", []graph.Argument{graph.Ref(x), graph.Ref(scaled)}, nil, meta)
	g.Output(sum)

	prog, err := lower.Lower(context.Background(), g, lower.Options{Strict: true})
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	return prog
}

func writeTestFile(t *testing.T, prog *lower.Program, opts WriterOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.bctx")
	n, err := WriteFile(path, prog, opts)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != n {
		t.Errorf("WriteFile reported %d bytes, file has %d", n, info.Size())
	}
	return path
}

func TestRoundTrip(t *testing.T) {
	prog := testProgram(t)
	path := writeTestFile(t, prog, WriterOptions{
		CompilerVersion: "1.2.3",
		Metadata:        map[string]string{"soc": "sm8650"},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	h := r.Header()
	if h.ProgramID != prog.ID.String() {
		t.Errorf("ProgramID = %s, want %s", h.ProgramID, prog.ID)
	}
	if h.Graph != "positions" || h.CompilerVersion != "1.2.3" {
		t.Errorf("Unexpected header identity: graph=%q version=%q", h.Graph, h.CompilerVersion)
	}
	if len(h.Tensors) != len(prog.Tensors) {
		t.Errorf("Expected %d tensors, got %d", len(prog.Tensors), len(h.Tensors))
	}
	if len(h.Ops) != 2 || h.Ops[0].Type != "ElementWiseMultiply" || h.Ops[1].Type != "ElementWiseAdd" {
		t.Errorf("Unexpected ops: %+v", h.Ops)
	}
	if len(h.Inputs) != 1 || h.Inputs[0] != "x" || len(h.Outputs) != 1 || h.Outputs[0] != "sum" {
		t.Errorf("Unexpected inputs/outputs: %v -> %v", h.Inputs, h.Outputs)
	}
	if r.Metadata()["soc"] != "sm8650" {
		t.Errorf("Metadata not preserved: %v", r.Metadata())
	}
	if r.Flags()&FlagHasMetadata == 0 {
		t.Error("Expected FlagHasMetadata")
	}

	positions, err := r.ReadStatic("arange")
	if err != nil {
		t.Fatalf("ReadStatic failed: %v", err)
	}
	want := []int32{0, 1, 2, 3, 4}
	got := positions.AsInt32()
	if len(got) != len(want) {
		t.Fatalf("Expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arange[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	operand, err := r.ReadStatic("scaled:operand1")
	if err != nil {
		t.Fatalf("ReadStatic failed: %v", err)
	}
	if v := operand.AsInt32(); len(v) != 1 || v[0] != 2 {
		t.Errorf("scaled:operand1 = %v, want [2]", v)
	}

	// Static tensors are 64-byte aligned.
	for _, meta := range h.Tensors {
		if meta.Size > 0 && meta.Offset%Alignment != 0 {
			t.Errorf("tensor %s offset %d is not aligned", meta.Name, meta.Offset)
		}
	}
}

func TestReadNonStatic(t *testing.T) {
	path := writeTestFile(t, testProgram(t), WriterOptions{})
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadStatic("x"); !errors.Is(err, ErrNotStatic) {
		t.Errorf("Expected ErrNotStatic, got %v", err)
	}
	if _, err := r.ReadStatic("missing"); !errors.Is(err, ErrTensorNotFound) {
		t.Errorf("Expected ErrTensorNotFound, got %v", err)
	}

	_ = r.Close()
	if _, err := r.ReadTensorData("arange"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestCorruptedData(t *testing.T) {
	path := writeTestFile(t, testProgram(t), WriterOptions{})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}

	r, err := OpenWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	if err != nil {
		t.Fatalf("Open without checksum failed: %v", err)
	}
	_ = r.Close()
}

func TestSkipChecksum(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WriteProgram(&buf, testProgram(t), WriterOptions{SkipChecksum: true}); err != nil {
		t.Fatalf("WriteProgram failed: %v", err)
	}
	data := buf.Bytes()

	flags := binary.LittleEndian.Uint32(data[8:12])
	if flags&FlagNoChecksum == 0 {
		t.Error("Expected FlagNoChecksum")
	}
	for _, b := range data[ChecksumOffset : ChecksumOffset+ChecksumSize] {
		if b != 0 {
			t.Fatal("Expected empty checksum field")
		}
	}

	path := filepath.Join(t.TempDir(), "nochecksum.bctx")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !r.Checksum().IsZero() {
		t.Error("Expected zero checksum")
	}
	_ = r.Close()
}

func TestInvalidFiles(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WriteProgram(&buf, testProgram(t), WriterOptions{}); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{
			name:   "bad magic",
			mutate: func(b []byte) []byte { copy(b, "BORN"); return b },
			want:   ErrInvalidMagic,
		},
		{
			name: "future version",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[4:8], FormatVersion+1)
				return b
			},
			want: ErrUnsupportedVersion,
		},
		{
			name: "huge header",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint64(b[16:24], MaxHeaderSize+1)
				return b
			},
			want: ErrHeaderTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			path := filepath.Join(t.TempDir(), "bad.bctx")
			if err := os.WriteFile(path, data, 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Open(path); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("truncated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.bctx")
		if err := os.WriteFile(path, valid[:len(valid)-8], 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := Open(path)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Type != "truncated" {
			t.Errorf("Expected truncated ValidationError, got %v", err)
		}
	})
}
