package main

import (
	"fmt"
	"os"

	"github.com/jhlagado/tacit/cmd/tacit/logger"
	"github.com/jhlagado/tacit/compiler"
	"github.com/jhlagado/tacit/vm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var disasm bool

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVar(&disasm, "disasm", false, "print a disassembly of the compiled program instead of running it")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <source-file>",
		Short: "Compile a Tacit source file and run it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
}

func vmOptions() []vm.Option {
	var opts []vm.Option
	if dataStackSize > 0 {
		opts = append(opts, vm.DataStackSize(dataStackSize))
	}
	if returnStackSize > 0 {
		opts = append(opts, vm.ReturnStackSize(returnStackSize))
	}
	if globalSize > 0 {
		opts = append(opts, vm.GlobalSize(globalSize))
	}
	if codeSize > 0 {
		opts = append(opts, vm.CodeSize(codeSize))
	}
	return opts
}

func runFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "tacit: opening %s", path)
	}
	defer f.Close()

	inst, err := vm.New(vmOptions()...)
	if err != nil {
		return errors.Wrap(err, "tacit: constructing VM")
	}

	c := compiler.New(inst)
	logger.Debug("compiling", "file", path)
	if err := c.Compile(path, f); err != nil {
		return errors.Wrap(err, "tacit: compile failed")
	}

	if disasm {
		fmt.Print(c.Dump())
		return nil
	}

	logger.Debug("running", "file", path)
	if err := inst.Run(); err != nil {
		return errors.Wrap(err, "tacit: run failed")
	}
	logger.Info("run complete", "instructions", inst.Instructions(), "stack-depth", inst.Depth())

	printStack(inst)
	return nil
}

func printStack(inst *vm.Instance) {
	stack := inst.StackSlice()
	if len(stack) == 0 {
		fmt.Println("<empty stack>")
		return
	}
	for idx, c := range stack {
		if vm.IsNumber(c) {
			fmt.Printf("%d: %v\n", idx, vm.AsFloat(c))
			continue
		}
		tag, payload := vm.DecodeTag(c)
		fmt.Printf("%d: %s(%d)\n", idx, tag, payload)
	}
}
