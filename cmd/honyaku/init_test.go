package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCommand(t *testing.T) {
	root := filepath.Join(t.TempDir(), "WORK")
	workDir = root
	cfgFile = ""
	t.Cleanup(func() { workDir, cfgFile = "", "" })

	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(root, "bibles"),
		filepath.Join(root, "rag"),
		filepath.Join(root, "config.yaml"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	// A rerun must refuse to clobber the existing config.
	if err := initCmd.RunE(initCmd, nil); err == nil {
		t.Error("existing config overwritten")
	}
}
