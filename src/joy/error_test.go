package joy

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCarriesSlot(t *testing.T) {
	err := MakeError(ErrorFileNotOpen, 3)
	if err.Slot() != 3 {
		t.Errorf("slot %d", err.Slot())
	}
	if !errors.Is(err, ErrorFileNotOpen) || !errors.Is(err, MakeError(ErrorFileNotOpen, 5)) {
		t.Errorf("errors.Is should ignore the slot")
	}
	if errors.Is(err, ErrorFileAlreadyClosed) {
		t.Errorf("matched the wrong error")
	}
	if !strings.HasPrefix(err.Error(), "slot 3: ") {
		t.Errorf("message %q", err.Error())
	}
	kernel := MakeError(ErrorFamilyNoMoreFamilies, NoSlot)
	if kernel.Slot() != NoSlot || !strings.HasPrefix(kernel.Error(), "kernel: ") {
		t.Errorf("kernel error %d %q", kernel.Slot(), kernel.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{MakeError(ErrorFileTableFull, 1), ResourceExhausted},
		{MakeError(ErrorFamilyNoMoreFamilies, 0), ResourceExhausted},
		{ErrorExecNotExecutable, NotExecutable},
		{MakeError(ErrorFileAlreadyClosed, 2), AlreadyClosed},
		{MakeError(ErrorFileUnsupported, 2), Unsupported},
		{fmt.Errorf("outside"), InvalidArgument},
	}
	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("%v: kind %d, want %d", tc.err, got, tc.want)
		}
	}
	if JoyError(0x00ff_0000_0000_0001).Error() != "Unknown error code" {
		t.Errorf("unknown error has a message")
	}
}
