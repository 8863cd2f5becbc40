// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vulntor/forge/pkg/deps"
)

const indent = "    "

const bufferTypedef = `typedef struct {
    unsigned char *data;
    size_t len;
} forge_buffer;`

func renderDriver(functions []Function) string {
	var b strings.Builder
	b.WriteString("int main(int argc, char *argv[])\n{\n")
	b.WriteString(indent + "(void)argc;\n")
	b.WriteString(indent + "(void)argv;\n")
	for _, fn := range functions {
		for _, line := range strings.Split(strings.TrimRight(fn.Call, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(indent + line + "\n")
		}
	}
	b.WriteString(indent + "return 0;\n}\n")
	return b.String()
}

func renderSource(name string, manifest deps.Manifest, buffers bool, decls []string, functions []Function, driver string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "/*\n * %s: generated by forge, do not edit.\n *\n", name)
	for _, fn := range functions {
		fmt.Fprintf(&b, " * step %d: %s %s\n", fn.Step, fn.Module, fn.Version)
	}
	b.WriteString(" */\n\n")

	if len(manifest.Includes) > 0 {
		for _, inc := range manifest.Includes {
			fmt.Fprintf(&b, "#include <%s>\n", inc)
		}
		b.WriteString("\n")
	}

	if buffers {
		b.WriteString(bufferTypedef + "\n\n")
	}

	if len(decls) > 0 {
		for _, d := range decls {
			b.WriteString(d + "\n")
		}
		b.WriteString("\n")
	}

	for _, fn := range functions {
		fmt.Fprintf(&b, "/* step %d: %s */\n", fn.Step, fn.Module)
		b.WriteString(strings.TrimRight(fn.Source, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString(driver)
	return b.String()
}

func digest(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
