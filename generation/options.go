package generation

// MergeOptions overlays caller-supplied options on top of the fast-path
// defaults. Caller values win key-by-key; unrecognized keys pass through to
// the backend untouched.
func MergeOptions(defaults, user map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(user))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range user {
		merged[k] = v
	}
	return merged
}
