package models

// LayoutTree is the transient render input for one export: the template's
// background bytes plus every positioned text node. It is owned by a single
// export invocation and discarded after rasterization.
type LayoutTree struct {
	Native     Dimensions
	Background []byte // encoded image bytes; may be nil when the asset failed to decode
	Texts      []PlacedText
}

// PlacedText is one resolved text node in native pixel space. X/Y are the
// top-left corner of the rendered string (anchor math already applied).
type PlacedText struct {
	Text       string
	X          float64
	Y          float64
	FontSize   float64
	FontFamily string
	Color      string
}
