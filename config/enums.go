package config

// Specification of horizontal text alignment.
// ENUM(justified, left)
type AlignmentMode int

// Specification of device orientation. Landscape swaps page dimensions.
// ENUM(portrait, landscape)
type Orientation int
