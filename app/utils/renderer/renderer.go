package renderer

import (
	"github.com/unrolled/render"
)

// New returns the JSON renderer shared by the API handlers.
func New(indent bool) *render.Render {
	return render.New(render.Options{
		IndentJSON: indent,
		Charset:    "UTF-8",
	})
}
