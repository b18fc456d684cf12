package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSrc string

// ValidationError lists every schema violation found in a Config.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Issues, "; ")
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(cfg)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Issues: issues(err)}
	}
	return nil
}

func issues(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		msg := e.Error()
		if path := strings.Join(e.Path(), "."); path != "" && !strings.Contains(msg, path) {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
