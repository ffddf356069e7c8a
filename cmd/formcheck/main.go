// cmd/formcheck validates exported form payloads against the CUE form
// definition and the schema rules. Arguments are JSON files or directories
// searched recursively for *.json files.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/schema"
)

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: formcheck <file.json|dir>...")
		os.Exit(2)
	}

	v, err := schema.NewPayloadValidator()
	if err != nil {
		log.WithError(err).Fatal("compiling form definition")
	}
	files, err := collect(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("collecting files")
	}
	failed := checkAll(v, files, os.Stdout)
	fmt.Printf("\nformcheck: %d file(s), %d invalid\n", len(files), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// collect expands directories into the JSON files below them.
func collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".json" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walking %s", arg)
		}
	}
	sort.Strings(files)
	return files, nil
}

// checkAll reports every file to out and returns how many failed.
func checkAll(v *schema.PayloadValidator, files []string, out io.Writer) int {
	failed := 0
	for _, path := range files {
		if err := checkFile(v, path); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", path)
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				for _, fe := range verr.Fields {
					fmt.Fprintf(out, "  %s: %s\n", fe.Field, fe.Error)
				}
			} else {
				fmt.Fprintf(out, "  %v\n", err)
			}
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", path)
	}
	return failed
}

func checkFile(v *schema.PayloadValidator, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := v.Validate(raw); err != nil {
		return err
	}
	var f schema.Form
	if err := json.Unmarshal(raw, &f); err != nil {
		return errors.Wrap(err, "decoding form")
	}
	return schema.Validate(f.Schema)
}
