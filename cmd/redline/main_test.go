package main

import (
	"os"
	"testing"
)

func TestMain_Help(t *testing.T) {
	old := os.Args
	t.Cleanup(func() { os.Args = old })

	os.Args = []string{"redline", "--help"}
	main()
}
