package search

// Filters restricts search candidates with relational predicates applied
// before ranking. String matches are case-insensitive exact matches; style
// and keywords match against entity metadata.
type Filters struct {
	country   string
	countries []string
	city      string
	style     string
	keywords  []string
	hasImage  *bool
}

// FiltersOption is a functional option for Filters.
type FiltersOption func(*Filters)

// WithCountry sets an exact country filter.
func WithCountry(country string) FiltersOption {
	return func(f *Filters) {
		f.country = country
	}
}

// WithCountries restricts candidates to a set of countries, matched as
// substrings so "uk" finds "United Kingdom".
func WithCountries(countries []string) FiltersOption {
	return func(f *Filters) {
		if countries != nil {
			f.countries = make([]string, len(countries))
			copy(f.countries, countries)
		}
	}
}

// WithCity sets an exact city filter.
func WithCity(city string) FiltersOption {
	return func(f *Filters) {
		f.city = city
	}
}

// WithStyle sets a metadata style filter.
func WithStyle(style string) FiltersOption {
	return func(f *Filters) {
		f.style = style
	}
}

// WithKeywords restricts candidates to entities whose metadata style or tags
// contain at least one of the keywords.
func WithKeywords(keywords []string) FiltersOption {
	return func(f *Filters) {
		if keywords != nil {
			f.keywords = make([]string, len(keywords))
			copy(f.keywords, keywords)
		}
	}
}

// WithHasImage requires (true) or excludes (false) entities with a stored
// image or logo. Unset means no constraint.
func WithHasImage(hasImage bool) FiltersOption {
	return func(f *Filters) {
		f.hasImage = &hasImage
	}
}

// NewFilters creates a new Filters with options.
func NewFilters(opts ...FiltersOption) Filters {
	f := Filters{}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Country returns the country filter.
func (f Filters) Country() string { return f.country }

// Countries returns the country-set filter.
func (f Filters) Countries() []string {
	if f.countries == nil {
		return nil
	}
	result := make([]string, len(f.countries))
	copy(result, f.countries)
	return result
}

// City returns the city filter.
func (f Filters) City() string { return f.city }

// Style returns the metadata style filter.
func (f Filters) Style() string { return f.style }

// Keywords returns the metadata keyword filter.
func (f Filters) Keywords() []string {
	if f.keywords == nil {
		return nil
	}
	result := make([]string, len(f.keywords))
	copy(result, f.keywords)
	return result
}

// HasImage returns the image-presence filter and whether it is set.
func (f Filters) HasImage() (bool, bool) {
	if f.hasImage == nil {
		return false, false
	}
	return *f.hasImage, true
}

// Merge returns a copy of f with the non-empty fields of other applied on
// top. Query enrichment folds detected keywords and regions into
// user-supplied filters this way.
func (f Filters) Merge(other Filters) Filters {
	if other.country != "" {
		f.country = other.country
	}
	if len(other.countries) > 0 {
		f.countries = other.Countries()
	}
	if other.city != "" {
		f.city = other.city
	}
	if other.style != "" {
		f.style = other.style
	}
	if len(other.keywords) > 0 {
		f.keywords = other.Keywords()
	}
	if other.hasImage != nil {
		v := *other.hasImage
		f.hasImage = &v
	}
	return f
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	return f.country == "" &&
		len(f.countries) == 0 &&
		f.city == "" &&
		f.style == "" &&
		len(f.keywords) == 0 &&
		f.hasImage == nil
}
