package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pkg/errors"
)

//go:embed form.cue
var formDefinition string

// PayloadValidator checks raw form payload JSON against the #Form CUE
// definition before it is decoded. Values from one CUE context are not safe
// for concurrent use, so calls are serialised.
type PayloadValidator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	form cue.Value
}

// NewPayloadValidator compiles the embedded definition.
func NewPayloadValidator() (*PayloadValidator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(formDefinition, cue.Filename("form.cue"))
	if err := root.Err(); err != nil {
		return nil, errors.Wrap(err, "compiling form definition")
	}
	form := root.LookupPath(cue.ParsePath("#Form"))
	if !form.Exists() {
		return nil, errors.New("form definition has no #Form")
	}
	return &PayloadValidator{ctx: ctx, form: form}, nil
}

// Validate returns a *ValidationError when data does not satisfy #Form.
func (v *PayloadValidator) Validate(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc := v.ctx.CompileBytes(data, cue.Filename("payload.json"))
	if err := doc.Err(); err != nil {
		return &ValidationError{Err: ErrInvalidPayload, Fields: []FieldError{{Field: "", Error: err.Error()}}}
	}
	if err := v.form.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Err: ErrInvalidPayload, Fields: cueFieldErrors(err)}
	}
	return nil
}

func cueFieldErrors(err error) []FieldError {
	list := cueerrors.Errors(err)
	out := make([]FieldError, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		out = append(out, FieldError{
			Field: strings.Join(e.Path(), "."),
			Error: fmt.Sprintf(format, args...),
		})
	}
	return out
}
