package spectrum

// Reference is a non-owning view of a spectrum. It is passed into shading
// calls where copying or retaining the spectrum would be wasteful. The zero
// value is a valid reference to a spectrum that is zero everywhere.
type Reference struct {
	spectrum Spectrum
}

// Ref borrows s
func Ref(s Spectrum) Reference {
	return Reference{spectrum: s}
}

// Sample implements Spectrum
func (r Reference) Sample(wavelength float64) float64 {
	if r.spectrum == nil {
		return 0
	}
	return r.spectrum.Sample(wavelength)
}

// Valid reports whether the reference points at a spectrum
func (r Reference) Valid() bool {
	return r.spectrum != nil
}

// Reflect returns the spectrum reflected by a surface with the given
// reflectance. The product is evaluated lazily, nothing is copied.
func (r Reference) Reflect(reflectance Spectrum) Spectrum {
	if r.spectrum == nil || reflectance == nil {
		return Constant(0)
	}
	return Product{A: r.spectrum, B: reflectance}
}
