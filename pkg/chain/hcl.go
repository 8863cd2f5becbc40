// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package chain

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vulntor/forge/pkg/catalog"
)

// hclRequest is the HCL form of a request:
//
//	name = "report"
//
//	step "write-file" {
//	  params {
//	    path = "/tmp/report.txt"
//	  }
//	}
//
//	step "file-checksum" {
//	  params {
//	    input = { fromStep = 0, output = "file" }
//	  }
//	}
type hclRequest struct {
	Name     string     `hcl:"name"`
	Platform string     `hcl:"platform,optional"`
	Language string     `hcl:"language,optional"`
	Steps    []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	Module  string     `hcl:"module,label"`
	Version string     `hcl:"version,optional"`
	Outputs []string   `hcl:"outputs,optional"`
	Params  *hclParams `hcl:"params,block"`
}

type hclParams struct {
	Body hcl.Body `hcl:",remain"`
}

func decodeHCL(data []byte, filename string) (*Request, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	var doc hclRequest
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	req := &Request{
		Name:     doc.Name,
		Platform: catalog.Platform(doc.Platform),
		Language: catalog.Language(doc.Language),
		Steps:    make([]Step, 0, len(doc.Steps)),
	}
	for i, s := range doc.Steps {
		step := Step{Module: s.Module, Version: s.Version, Outputs: s.Outputs}
		if s.Params != nil {
			params, err := decodeHCLParams(s.Params.Body)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i, s.Module, err)
			}
			step.Params = params
		}
		req.Steps = append(req.Steps, step)
	}
	return req, nil
}

func decodeHCLParams(body hcl.Body) (map[string]Arg, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("params: %s", diags.Error())
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	slices.Sort(names)

	params := make(map[string]Arg, len(attrs))
	for _, name := range names {
		val, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("param %q: %s", name, diags.Error())
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}

		if m, ok := native.(map[string]any); ok {
			arg, err := argFromMap(m)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", name, err)
			}
			params[name] = arg
			continue
		}
		params[name] = Literal(native)
	}
	return params, nil
}

// ctyToNative converts a cty value into plain Go values. Whole numbers become
// int64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return n, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			native, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
