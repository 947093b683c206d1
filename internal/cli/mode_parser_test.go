package cli

import (
	"reflect"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		name     string
		args     []string
		wantMode string
		wantRest []string
	}{
		{"mode flag", []string{"--mode=order-service", "--port=3000"}, ModeOrder, []string{"--port=3000"}},
		{"subcommand", []string{"inventory-service", "--port=3001"}, ModeInventory, []string{"--port=3001"}},
		{"short alias", []string{"order", "--port=3000"}, ModeOrder, []string{"--port=3000"}},
		{"no mode", []string{"--port=3000"}, "", []string{"--port=3000"}},
		{"unknown stays in rest", []string{"--mode=order-service", "extra"}, ModeOrder, []string{"extra"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, rest, err := ParseMode(tc.args)
			if err != nil {
				t.Fatalf("ParseMode: %v", err)
			}
			if mode != tc.wantMode {
				t.Errorf("mode = %q, want %q", mode, tc.wantMode)
			}
			if !reflect.DeepEqual(rest, tc.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tc.wantRest)
			}
		})
	}
}
