package main

import (
	"strings"

	"tankarena/internal/arena"
)

type action uint8

const (
	actNone action = iota
	actPause
	actLeave
	actJoin
	actQuit
	actUnknown
)

// controls holds the input state between frames. Turns and fire are one
// frame presses; driving persists until stop.
type controls struct {
	vertical float64
	left     bool
	right    bool
	fire     bool
}

// apply parses one stdin line
func (c *controls) apply(line string) action {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return actNone
	case "left", "l":
		c.left = true
	case "right", "r":
		c.right = true
	case "fire", "f":
		c.fire = true
	case "fwd", "w":
		c.vertical = 1
	case "back", "s":
		c.vertical = -1
	case "stop", "x":
		c.vertical = 0
	case "pause", "p":
		return actPause
	case "leave":
		return actLeave
	case "join":
		return actJoin
	case "quit", "q":
		return actQuit
	default:
		return actUnknown
	}
	return actNone
}

// frame returns the input for the next frame and clears the presses
func (c *controls) frame() arena.Controls {
	in := arena.Controls{Left: c.left, Right: c.right, Fire: c.fire, Vertical: c.vertical}
	c.left, c.right, c.fire = false, false, false
	return in
}
