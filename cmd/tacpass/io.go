package main

import (
	"encoding/json"
	"os"

	"github.com/tacpass/tacpass/internal/ir"
)

func loadProgram(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail("reading %s: %w", path, err)
	}
	var prog ir.Program
	if err := json.Unmarshal(data, &prog); err != nil {
		return nil, fail("parsing %s: %w", path, err)
	}
	return &prog, nil
}

func findFunction(prog *ir.Program, name string) (*ir.Function, error) {
	if name == "" {
		if len(prog.Functions) == 0 {
			return nil, fail("program has no functions")
		}
		return &prog.Functions[0], nil
	}
	for i := range prog.Functions {
		if prog.Functions[i].Name == name {
			return &prog.Functions[i], nil
		}
	}
	return nil, fail("no function named %q", name)
}

func writeProgram(path string, prog *ir.Program) error {
	data, err := json.MarshalIndent(prog, "", "  ")
	if err != nil {
		return fail("encoding program: %w", err)
	}
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
