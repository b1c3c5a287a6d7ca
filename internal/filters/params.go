package filters

// Params holds decode parameters from a /DecodeParms dictionary, with PDF
// values already converted to Go values (int, float64, bool, string).
type Params map[string]interface{}

// getIntParam returns the integer parameter key, or defaultValue when it is
// missing or not numeric.
func getIntParam(params Params, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

// getBoolParam returns the boolean parameter key, or defaultValue when it is
// missing or not a bool.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}
