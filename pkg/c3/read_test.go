package c3

import (
	"bytes"
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/c3kit/pkg/math"
)

func TestNeedRecords(t *testing.T) {
	tests := []struct {
		name     string
		have     int
		count    uint64
		size     uint64
		wantErr  bool
		wantNeed uint64
	}{
		{"exact", 12, 3, 4, false, 0},
		{"zero count", 0, 0, 64, false, 0},
		{"zero size", 0, 1 << 40, 0, false, 0},
		{"short", 11, 3, 4, true, 12},
		{"product wraps", 604, 4271524658, 2 + 154233521*28, true, gomath.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(make([]byte, tt.have))
			err := needRecords(r, tt.count, tt.size, "records")
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("needRecords: %v", err)
				}
				return
			}
			var te *TruncationError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *TruncationError", err)
			}
			if te.Need != tt.wantNeed || te.Have != tt.have {
				t.Errorf("Need/Have = %d/%d, want %d/%d", te.Need, te.Have, tt.wantNeed, tt.have)
			}
		})
	}
}

func TestReaders_ShortInputYieldsZero(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2})
	if got := readU32(r); got != 0 {
		t.Errorf("readU32 on 2 bytes = %d, want 0", got)
	}
	if got := readVec3(bytes.NewReader(make([]byte, 8))); got != (math.Vec3{}) {
		t.Errorf("readVec3 on 8 bytes = %v, want zero", got)
	}
	if got := readF32(bytes.NewReader(nil)); got != 0 {
		t.Errorf("readF32 on empty input = %v, want 0", got)
	}
}
