package options

import "testing"

func TestParseDefaults(t *testing.T) {
	opt, err := Parse([]string{"in.src"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opt.Input != "in.src" {
		t.Errorf("Input = %q, want in.src", opt.Input)
	}
	if opt.Target != TargetARM64 {
		t.Errorf("Target = %q, want default arm64", opt.Target)
	}
	if opt.OptLevel != 1 {
		t.Errorf("OptLevel = %d, want default 1", opt.OptLevel)
	}
}

func TestParseFlags(t *testing.T) {
	opt, err := Parse([]string{"-o", "out.s", "--target", "riscv64", "-O2", "-v", "in.src"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opt.Output != "out.s" {
		t.Errorf("Output = %q, want out.s", opt.Output)
	}
	if opt.Target != TargetRISCV64 {
		t.Errorf("Target = %q, want riscv64", opt.Target)
	}
	if opt.OptLevel != 2 {
		t.Errorf("OptLevel = %d, want 2", opt.OptLevel)
	}
	if !opt.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestParseErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"-target", "mips", "in.src"},
		{"-unknown", "in.src"},
		{"in.src", "extra.src"},
		{"-o"},
	}
	for _, args := range cases {
		if _, err := Parse(args); err == nil {
			t.Errorf("Parse(%v): expected error, got nil", args)
		}
	}
}
