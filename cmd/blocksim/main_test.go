package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blocksim/blocksim/simerr"
)

func TestExitCodeForDistinguishesConfigErrors(t *testing.T) {
	assert.Equal(t, 2, exitCodeFor(simerr.NewConfigError("bad input", nil)))
	assert.Equal(t, 1, exitCodeFor(errors.New("boom")))
}

func TestNewAppRegistersRunCommand(t *testing.T) {
	app := newApp()
	assert.Len(t, app.Commands, 1)
	assert.Equal(t, "run", app.Commands[0].Name)
}
