package main

import (
	"testing"

	"github.com/jhlagado/tacit/vm"
	"github.com/stretchr/testify/assert"
)

// vmOptions translates persistent cobra flags into vm.Options; covered
// with testify since it's exactly the kind of "does this flag produce
// that option" structural check joshuapare/hivekit's CLI suite uses
// stretchr/testify for.
func TestVMOptionsOnlyFlagsActuallySet(t *testing.T) {
	dataStackSize, returnStackSize, globalSize, codeSize = 0, 0, 0, 0
	assert.Empty(t, vmOptions(), "no flags set should produce no options")

	dataStackSize = 256
	opts := vmOptions()
	assert.Len(t, opts, 1)

	inst, err := vm.New(opts...)
	assert.NoError(t, err)
	assert.Equal(t, 256, len(inst.Mem.Data))

	dataStackSize = 0
}

func TestNewRunCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := newRunCmd()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
	assert.NoError(t, cmd.Args(cmd, []string{"a"}))
}
