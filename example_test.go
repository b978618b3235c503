package strata_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aretw0/strata"
)

// Example_basic scans an export holding a uTorrent resume.dat and prints the
// consolidated records.
func Example_basic() {
	input, err := os.MkdirTemp("", "strata-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(input)

	dir := filepath.Join(input, "uTorrent")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatal(err)
	}
	resume := "d14:debian.torrentd7:caption6:Debian8:added_oni1690000000eee"
	if err := os.WriteFile(filepath.Join(dir, "resume.dat"), []byte(resume), 0644); err != nil {
		log.Fatal(err)
	}

	eng, err := strata.New(input, strata.WithSinkAdapter(strata.SinkNone))
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	evidence, err := eng.Scan(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range evidence {
		fmt.Println(e.Kind, e.Attributes.String("name"))
	}
	// Output:
	// local-file Debian
}
