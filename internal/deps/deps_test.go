package deps

import "testing"

func TestCheckBinariesReportsMissing(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "Shell", Command: "sh", Description: "POSIX shell"},
		{Name: "Imaginary", Command: "easel-no-such-binary", Description: "does not exist"},
		{Name: "Unset", Command: "", Description: "not configured"},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected sh to be available: %+v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary detail: %+v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured detail: %+v", results[2])
	}
}

func TestDefaultRequirementsMarkGPUOptional(t *testing.T) {
	reqs := DefaultRequirements()
	var sawGPU bool
	for _, req := range reqs {
		if req.Command == "nvidia-smi" {
			sawGPU = true
			if !req.Optional {
				t.Fatalf("expected nvidia-smi to be optional")
			}
		} else if req.Optional {
			t.Fatalf("expected %s to be required", req.Command)
		}
	}
	if !sawGPU {
		t.Fatalf("expected nvidia-smi requirement")
	}
}
