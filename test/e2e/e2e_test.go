package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const (
	resume   = "<p>Built <b>scalable</b> systems.</p><p>Skills: Go</p>"
	feedback = `{
  "suggestions": [
    {"id": "s1", "type": "replace", "original": "Built scalable systems.", "suggested": "Architected 3 scalable distributed systems."},
    {"id": "s2", "type": "add", "anchor": "Skills: Go", "suggested": ", Rust"},
    {"id": "s3", "type": "remove", "original": "missing text"}
  ],
  "summary": {"overall": "Solid", "score": 72}
}`
)

// TestHappyPath drives the released binary. Build it into dist/ first.
func TestHappyPath(t *testing.T) {
	distDir, _ := filepath.Abs("../../dist")
	bin := filepath.Join(distDir, "redline")
	if _, err := os.Stat(bin); err != nil {
		t.Skipf("redline binary not built: %v", err)
	}

	tempDir := t.TempDir()
	run := func(args ...string) string {
		cmd := exec.Command(bin, args...)
		cmd.Dir = tempDir
		cmd.Env = append(os.Environ(), "REDLINE_SKIP_REVIEW_RUN=true")
		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("redline %v failed: %v\nOutput: %s", args, err, output)
		}
		return string(output)
	}
	runAllowFail := func(args ...string) string {
		cmd := exec.Command(bin, args...)
		cmd.Dir = tempDir
		output, _ := cmd.CombinedOutput()
		return string(output)
	}

	if err := os.WriteFile(filepath.Join(tempDir, "resume.html"), []byte(resume), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "feedback.json"), []byte(feedback), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Log("Running redline init...")
	out := run("init", "resume.html")
	if !strings.Contains(out, "Initialized redline workspace") {
		t.Errorf("Unexpected init output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(tempDir, ".redline", "config.yaml")); err != nil {
		t.Error(".redline/config.yaml missing")
	}

	t.Log("Running redline intake...")
	out = run("intake", "feedback.json")
	if !strings.Contains(out, "3 admitted, 0 refused") {
		t.Errorf("Unexpected intake output: %s", out)
	}

	t.Log("Accepting s1 and s2, rejecting s3...")
	run("accept", "s1", "s2")
	run("reject", "s3")

	out = runAllowFail("accept", "s3")
	if !strings.Contains(out, "already") && !strings.Contains(out, "rejected") {
		t.Errorf("Expected a transition error. Output: %s", out)
	}

	out = run("show")
	if !strings.Contains(out, "Architected 3 scalable distributed systems.") || !strings.Contains(out, "Skills: Go , Rust") {
		t.Errorf("Document missing applied edits: %s", out)
	}
	if strings.Contains(out, "data-redline") {
		t.Errorf("Highlight markers left in document: %s", out)
	}

	t.Log("Running redline doctor...")
	run("doctor")
	out = run("history", "--verify")
	if !strings.Contains(out, "Journal chain intact") {
		t.Errorf("Unexpected history output: %s", out)
	}
}
