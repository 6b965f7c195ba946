package engine

import (
	"errors"

	"git.home.luguber.info/inful/trellis/internal/render"
)

// ErrNotFound covers every way a slug can fail to resolve to a renderable
// page: missing source file, empty source, or a slug under an ignored path.
var ErrNotFound = errors.New("page not found")

// ErrFiltered aliases the render package's sentinel so callers distinguish
// "excluded by a filter" from "does not exist" without importing render.
var ErrFiltered = render.ErrFiltered
