package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tankarena/internal/arena"
)

func TestControlsPresses(t *testing.T) {
	var c controls
	assert.Equal(t, actNone, c.apply("left"))
	assert.Equal(t, actNone, c.apply(" FIRE "))
	assert.Equal(t, arena.Controls{Left: true, Fire: true}, c.frame())
	assert.Equal(t, arena.Controls{}, c.frame())
}

func TestControlsDrivePersists(t *testing.T) {
	var c controls
	c.apply("fwd")
	assert.Equal(t, 1.0, c.frame().Vertical)
	assert.Equal(t, 1.0, c.frame().Vertical)
	c.apply("back")
	assert.Equal(t, -1.0, c.frame().Vertical)
	c.apply("stop")
	assert.Equal(t, 0.0, c.frame().Vertical)
}

func TestControlsActions(t *testing.T) {
	var c controls
	assert.Equal(t, actPause, c.apply("pause"))
	assert.Equal(t, actLeave, c.apply("leave"))
	assert.Equal(t, actJoin, c.apply("join"))
	assert.Equal(t, actQuit, c.apply("q"))
	assert.Equal(t, actUnknown, c.apply("jump"))
	assert.Equal(t, actNone, c.apply(""))
}
