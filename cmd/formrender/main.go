// cmd/formrender renders a form payload JSON file into a static HTML
// preview.
//
//	formrender [-readonly] form.json [out.html]
//
// Without an output path the HTML is written to stdout.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/render"
	"github.com/matthewbaird/formstudio/internal/schema"
)

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	readOnly := flag.Bool("readonly", false, "disable every input")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: formrender [-readonly] <form.json> [out.html]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.WithError(err).Fatal("reading form")
	}
	var buf bytes.Buffer
	if err := renderForm(raw, *readOnly, &buf); err != nil {
		log.WithError(err).WithField("file", flag.Arg(0)).Fatal("rendering form")
	}

	if flag.NArg() == 1 {
		buf.WriteTo(os.Stdout)
		return
	}
	out := flag.Arg(1)
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		log.WithError(err).Fatal("writing preview")
	}
	log.WithFields(log.Fields{"file": out, "bytes": buf.Len()}).Info("preview written")
}

// renderForm validates raw and writes its HTML preview to w.
func renderForm(raw []byte, readOnly bool, w io.Writer) error {
	v, err := schema.NewPayloadValidator()
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
	if err := schema.Validate(f.Schema); err != nil {
		return err
	}
	r, err := render.New()
	if err != nil {
		return err
	}
	return r.Form(w, f, render.FormOptions{ReadOnly: readOnly})
}
