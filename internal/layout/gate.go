package layout

// Features is the outcome of applying the entitlement flag to a variant.
type Features struct {
	// Accent is the color actually painted.
	Accent string
	// CustomAccent reports whether the document color was honoured.
	CustomAccent bool
	// Locked marks a Pro-only variant requested without entitlement.
	// Rendering still succeeds; screen consumers show an upsell.
	Locked bool
	// Watermark is set for every render without entitlement.
	Watermark bool
	// DueBanner allows the "payment due" reminder.
	DueBanner bool
}

// Gate decides which cosmetic features a render may use. Only Pro renders
// honour a custom accent; everything else falls back to the variant default.
func Gate(d Descriptor, customAccent string, pro bool) Features {
	f := Features{
		Accent:    d.Accent,
		Locked:    d.Pro && !pro,
		Watermark: !pro,
		DueBanner: pro,
	}
	if !pro {
		return f
	}
	if c := NormalizeColor(customAccent); c != "" {
		f.Accent = c
		f.CustomAccent = true
	}
	return f
}
