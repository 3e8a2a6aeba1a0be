package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"

	"github.com/nordlow/isobox/sandbox"
)

// docArg is one element of an invocation document's "args" array. Type
// selects the kind; Value holds the path or literal, and Unboxed is read
// only for an input.
type docArg struct {
	Type    string `json:"type"`              // "exec", "input", "output", "temp_file", "temp_dir", "literal"
	Value   string `json:"value"`             // boxed path, or the literal string itself
	Unboxed string `json:"unboxed,omitempty"` // absolute source path override, Input only
}

// docEnvValue is one value in an invocation document's "env" object.
type docEnvValue struct {
	Literal string `json:"literal,omitempty"`
	TempDir string `json:"temp_dir,omitempty"` // boxed temp-dir path, mutually exclusive with Literal
}

// docExtraInput is one element of "extra_inputs".
type docExtraInput struct {
	BytesBase64 string `json:"bytes_base64,omitempty"`
	Boxed       string `json:"boxed,omitempty"`
	Unboxed     string `json:"unboxed,omitempty"`
}

// invocationDoc is the on-disk shape of a HUJSON invocation document: the
// already-typed description of one call. Build-system surface syntaxes like
// `<{...}`/`>{...}` belong to tools layered on top and are not parsed here.
type invocationDoc struct {
	Args                []docArg               `json:"args"`
	Env                 map[string]docEnvValue `json:"env,omitempty"`
	ExtraInputs         []docExtraInput        `json:"extra_inputs,omitempty"`
	ExtraOutputs        []string               `json:"extra_outputs,omitempty"`
	CacheDir            string                 `json:"cache_dir,omitempty"`
	HashName            string                 `json:"hash_name,omitempty"`
	Shell               bool                   `json:"shell,omitempty"`
	TimeoutMS           int64                  `json:"timeout_ms,omitempty"`
	StripBoxInDirPrefix bool                   `json:"strip_box_in_dir_prefix,omitempty"`
}

// loadInvocationDoc reads and standardizes (strips comments/trailing
// commas from) a HUJSON invocation document.
func loadInvocationDoc(path string) (*invocationDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading invocation document: %w", err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing invocation document: %w", err)
	}

	var doc invocationDoc

	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, fmt.Errorf("decoding invocation document: %w", err)
	}

	return &doc, nil
}

// toInvocationSpec converts a parsed document into a sandbox.InvocationSpec.
func (doc *invocationDoc) toInvocationSpec() (sandbox.InvocationSpec, error) {
	spec := sandbox.InvocationSpec{
		CacheDir:            doc.CacheDir,
		HashName:            doc.HashName,
		Shell:               doc.Shell,
		Timeout:             time.Duration(doc.TimeoutMS) * time.Millisecond,
		StripBoxInDirPrefix: doc.StripBoxInDirPrefix,
	}

	args := make([]sandbox.TypedArg, 0, len(doc.Args))

	for _, a := range doc.Args {
		arg, err := docArgToTypedArg(a)
		if err != nil {
			return sandbox.InvocationSpec{}, err
		}

		args = append(args, arg)
	}

	spec.Args = args

	if len(doc.Env) > 0 {
		spec.Env = make(map[string]sandbox.EnvValue, len(doc.Env))

		for name, v := range doc.Env {
			if v.TempDir != "" {
				dir, err := sandbox.TempDirChecked(v.TempDir)
				if err != nil {
					return sandbox.InvocationSpec{}, fmt.Errorf("env %q: %w", name, err)
				}

				spec.Env[name] = sandbox.EnvTempDir(dir)

				continue
			}

			spec.Env[name] = sandbox.EnvLiteral(v.Literal)
		}
	}

	for _, e := range doc.ExtraInputs {
		if e.BytesBase64 != "" {
			b, err := base64.StdEncoding.DecodeString(e.BytesBase64)
			if err != nil {
				return sandbox.InvocationSpec{}, fmt.Errorf("extra_inputs: decoding base64: %w", err)
			}

			spec.ExtraInputs = append(spec.ExtraInputs, sandbox.ExtraBytes(b))

			continue
		}

		var in sandbox.TypedArg

		var err error

		if e.Unboxed != "" {
			in, err = sandbox.InputFromChecked(e.Boxed, e.Unboxed)
		} else {
			in, err = sandbox.InputChecked(e.Boxed)
		}

		if err != nil {
			return sandbox.InvocationSpec{}, fmt.Errorf("extra_inputs: %w", err)
		}

		spec.ExtraInputs = append(spec.ExtraInputs, sandbox.ExtraFile(in))
	}

	for _, boxed := range doc.ExtraOutputs {
		out, err := sandbox.OutputChecked(boxed)
		if err != nil {
			return sandbox.InvocationSpec{}, fmt.Errorf("extra_outputs: %w", err)
		}

		spec.ExtraOutputs = append(spec.ExtraOutputs, out)
	}

	return spec, nil
}

func docArgToTypedArg(a docArg) (sandbox.TypedArg, error) {
	switch a.Type {
	case "exec":
		return sandbox.Exec(a.Value), nil
	case "input":
		if a.Unboxed != "" {
			return sandbox.InputFromChecked(a.Value, a.Unboxed)
		}

		return sandbox.InputChecked(a.Value)
	case "output":
		return sandbox.OutputChecked(a.Value)
	case "temp_file":
		return sandbox.TempFileChecked(a.Value)
	case "temp_dir":
		return sandbox.TempDirChecked(a.Value)
	case "literal":
		return sandbox.Literal(a.Value), nil
	default:
		return nil, fmt.Errorf("args: unknown type %q", a.Type)
	}
}
