package coinify

// Params is the JSON object sent as a request body.
type Params map[string]any

// setString adds key only when v is non-nil.
func (p Params) setString(key string, v *string) {
	if v != nil {
		p[key] = *v
	}
}

// setAny adds key only when v is non-nil.
func (p Params) setAny(key string, v map[string]any) {
	if v != nil {
		p[key] = v
	}
}

// String returns a pointer to s, for optional parameters.
func String(s string) *string { return &s }
