package output

import (
	"testing"

	"github.com/leandrodaf/midigo/pkg/apperr"
)

// TestValidateSendMessage is property 1 from §8: InvalidArgument iff
// len==0, BadMessage iff len>3 && b[0] != 0xF0, and no other shape
// returns either.
func TestValidateSendMessage(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want apperr.Code
		ok   bool
	}{
		{"empty", nil, apperr.InvalidArgument, false},
		{"note-on", []byte{0x90, 0x3C, 0x7F}, 0, true},
		{"overlong-channel-message", []byte{0x90, 0x3C, 0x7F, 0x00}, apperr.BadMessage, false},
		{"sysex-long", []byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}, 0, true},
		{"single-byte", []byte{0xF8}, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSendMessage(tc.in)
			if tc.ok {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			code, ok := apperr.CodeOf(err)
			if !ok || code != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidationScenarioS3(t *testing.T) {
	if err := ValidateSendMessage([]byte{}); apperr.IsValidation(err) == false {
		t.Fatalf("expected InvalidArgument for empty message")
	}
	if err := ValidateSendMessage([]byte{0x90, 0x3C, 0x7F, 0x00}); !apperr.IsValidation(err) {
		t.Fatalf("expected BadMessage for overlong channel message")
	}
	if err := ValidateSendMessage([]byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}); err != nil {
		t.Fatalf("expected sysex to validate, got %v", err)
	}
}

func TestOpenUnregisteredAPI(t *testing.T) {
	_, err := Open(API(999))
	if code, ok := apperr.CodeOf(err); !ok || code != apperr.OperationNotSupported {
		t.Fatalf("expected OperationNotSupported, got %v", err)
	}
}
